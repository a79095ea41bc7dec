package identifier

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ndlib/vhandle/content"
	"github.com/ndlib/vhandle/core"
	"github.com/ndlib/vhandle/handle"
	"github.com/ndlib/vhandle/internal/log"
	"github.com/ndlib/vhandle/versioning"
)

const restoreSummary = "Restoring from AIP Service"

// VersionedProvider keeps one canonical handle per version history pointed
// at the latest version, and a versioned handle on every item.
//
// The provider does not serialize work on a history. Callers creating
// versions must not do so concurrently for the same work.
type VersionedProvider struct {
	Handles  *handle.Service
	Versions *versioning.Service
	Objects  *content.Service
}

var _ Provider = &VersionedProvider{}

// NewVersionedProvider wires a provider. It fails with
// ErrVersioningDisabled when versioning is switched off, since the provider
// depends on version histories being kept.
func NewVersionedProvider(h *handle.Service, v *versioning.Service, o *content.Service, versioningEnabled bool) (*VersionedProvider, error) {
	if !versioningEnabled {
		return nil, ErrVersioningDisabled
	}
	return &VersionedProvider{Handles: h, Versions: v, Objects: o}, nil
}

func (p *VersionedProvider) Supports(identifier string) bool {
	return p.Handles.Parser.Supports(identifier)
}

// Canonical strips the version ordinal from identifier.
func (p *VersionedProvider) Canonical(identifier string) string {
	return handle.Canonical(identifier)
}

// CanonicalOf returns the canonical form of obj's oldest handle, or "" if
// obj has none.
func (p *VersionedProvider) CanonicalOf(c *core.Context, obj *content.Object) (string, error) {
	return p.canonicalOf(c, obj.Ref())
}

func (p *VersionedProvider) canonicalOf(c *core.Context, ref core.Ref) (string, error) {
	h, err := p.Handles.Find(c, ref)
	if err != nil {
		return "", errors.Wrapf(err, "find handle of %s", ref)
	}
	return handle.Canonical(h), nil
}

// Mint returns obj's existing handle, or creates one. An item that is a
// later version in a history gets canonical.N, and the canonical handle
// is moved onto it.
func (p *VersionedProvider) Mint(c *core.Context, obj *content.Object) (string, error) {
	id, err := p.mint(c, obj)
	if err != nil {
		p.logFailure(obj, "mint", err)
		return "", errors.Wrapf(err, "create identifier for %s", obj.ID)
	}
	return id, nil
}

func (p *VersionedProvider) mint(c *core.Context, obj *content.Object) (string, error) {
	existing, err := p.Handles.Find(c, obj.Ref())
	if err != nil {
		return "", err
	}
	if existing != "" {
		return existing, nil
	}
	var history *versioning.History
	if obj.IsItem() {
		history, err = p.Versions.FindByItem(c, obj.ID)
		if err != nil {
			return "", err
		}
	}
	if history != nil {
		return p.fromHistory(c, obj, history)
	}
	return p.Handles.Create(c, obj.Ref())
}

// fromHistory mints the handle for an item that is part of a history.
//
// The first time a second version is made two handles come into being and
// the canonical handle moves to the newer item:
//
//	canonical.1 -> previous item
//	canonical.2 -> this item
//	canonical   -> this item
func (p *VersionedProvider) fromHistory(c *core.Context, obj *content.Object, history *versioning.History) (string, error) {
	version, err := p.Versions.VersionOf(c, obj.ID)
	if err != nil {
		return "", err
	}
	if version == nil {
		return "", errors.Wrapf(ErrIllegalState, "item %s is in history %d without a version", obj.ID, history.ID)
	}
	previous, err := p.Versions.Previous(c, history, version)
	if err != nil {
		return "", err
	}
	if previous == nil {
		// the first version of a history: nothing to derive from
		return p.Handles.Create(c, obj.Ref())
	}
	prevRef := itemRef(previous.Item)
	canonical, err := p.canonicalOf(c, prevRef)
	if err != nil {
		return "", err
	}
	if canonical == "" {
		return "", errors.Wrapf(ErrIllegalState, "previous version %d of history %d has no handle", previous.Number, history.ID)
	}

	first, err := p.Versions.IsFirstVersion(c, history, previous)
	if err != nil {
		return "", err
	}
	if first {
		prevID := handle.Versioned(canonical, previous.Number)
		_, err = p.Handles.Resolve(c, prevID)
		if errors.Is(err, handle.ErrNotFound) {
			_, err = p.Handles.CreateWithHandle(c, prevRef, prevID, true)
		}
		if err != nil {
			return "", err
		}
	}

	holder, err := p.Handles.Resolve(c, canonical)
	switch {
	case err == nil:
		if holder.ID != previous.Item {
			log.WithField("handle", canonical).
				Warnf("previous version's item %s does not hold the canonical handle, %s does", previous.Item, holder.ID)
		}
		err = p.Handles.Modify(c, canonical, obj.Ref())
	case errors.Is(err, handle.ErrNotFound):
		_, err = p.Handles.CreateWithHandle(c, obj.Ref(), canonical, false)
	}
	if err != nil {
		return "", err
	}

	// a handle for this version may be left over from a version deleted
	// while still in the workspace
	idNew := handle.Versioned(canonical, version.Number)
	_, err = p.Handles.Resolve(c, idNew)
	switch {
	case err == nil:
		err = p.Handles.Modify(c, idNew, obj.Ref())
	case errors.Is(err, handle.ErrNotFound):
		_, err = p.Handles.CreateWithHandle(c, obj.Ref(), idNew, false)
	}
	if err != nil {
		return "", err
	}
	return idNew, nil
}

// Register mints a handle for obj and records it in obj's metadata. For an
// item with a history, the canonical handle is pointed at it and the
// previous version's item is restamped with its own versioned handle.
func (p *VersionedProvider) Register(c *core.Context, obj *content.Object) (string, error) {
	id, err := p.Mint(c, obj)
	if err != nil {
		return "", err
	}
	switch obj.Type {
	case core.TypeItem:
		history, err := p.Versions.FindByItem(c, obj.ID)
		if err != nil {
			return "", errors.Wrap(err, "find history")
		}
		if history != nil {
			if err := p.takeCanonical(c, obj, history, id); err != nil {
				p.logFailure(obj, "register", err)
				return "", err
			}
		}
		fallthrough
	case core.TypeCollection, core.TypeCommunity:
		err = p.ModifyHandleMetadata(c, obj, handle.Canonical(id))
		if errors.Is(err, core.ErrNotAuthorized) {
			return "", errors.Wrapf(err, "changing %s", obj.ID)
		}
		if err != nil {
			return "", errors.Wrapf(err, "record handle of %s", obj.ID)
		}
	}
	return id, nil
}

// takeCanonical points the canonical handle at obj and makes sure the
// previous version keeps a handle of its own, recorded in its metadata.
func (p *VersionedProvider) takeCanonical(c *core.Context, obj *content.Object, history *versioning.History, id string) error {
	canonical, err := p.canonicalOf(c, obj.Ref())
	if err != nil {
		return err
	}
	if err := p.Handles.Modify(c, canonical, obj.Ref()); err != nil {
		return errors.Wrapf(err, "move %s", canonical)
	}

	version, err := p.Versions.VersionOf(c, obj.ID)
	if err != nil || version == nil {
		return err
	}
	previous, err := p.Versions.Previous(c, history, version)
	if err != nil || previous == nil {
		return err
	}
	first, err := p.Versions.IsFirstVersion(c, history, previous)
	if err != nil {
		return err
	}
	prevRef := itemRef(previous.Item)
	prevHandle, err := p.Handles.Find(c, prevRef)
	if err != nil {
		return err
	}
	prevItem, err := p.Objects.Find(c, previous.Item)
	if err != nil {
		return errors.Wrapf(err, "load previous version %d", previous.Number)
	}

	// the submitter may not have rights on the previous item
	e := c.Elevate()
	defer e.Release()

	// The previous item has no handle only if the site switched to
	// versioned handles after it was made.
	if prevHandle == "" {
		if first {
			prevHandle = handle.Versioned(id, previous.Number)
			_, err = p.Handles.CreateWithHandle(c, prevRef, prevHandle, false)
		} else {
			prevHandle, err = p.fromHistory(c, prevItem, history)
		}
		if err != nil {
			return err
		}
	}
	err = p.ModifyHandleMetadata(c, prevItem, prevHandle)
	if errors.Is(err, core.ErrNotAuthorized) {
		return errors.Wrapf(ErrIllegalState, "authorization failed while elevated: %v", err)
	}
	return err
}

// RegisterAs registers obj under identifier while replaying an archive.
//
//   - A bare canonical handle whose item already has a history is restored
//     as the next version of that history.
//   - A versioned handle whose canonical names nothing, or names an object
//     without a history, starts a new history with obj in it.
//   - A versioned handle whose canonical names an item with a history joins
//     that history at the encoded ordinal.
//   - Anything else is registered as is.
//
// Whenever the restored version is the newest, the canonical handle is
// pointed at obj. Objects other than items just get the handle.
func (p *VersionedProvider) RegisterAs(c *core.Context, obj *content.Object, identifier string) error {
	err := p.registerAs(c, obj, identifier)
	if err != nil {
		p.logFailure(obj, "register "+identifier, err)
		return errors.Wrapf(err, "create identifier %s for %s", identifier, obj.ID)
	}
	return nil
}

func (p *VersionedProvider) registerAs(c *core.Context, obj *content.Object, identifier string) error {
	if !obj.IsItem() {
		return p.createIdentifier(c, obj, identifier)
	}
	h, err := handle.Parse(identifier)
	if err != nil {
		return err
	}

	if !h.Versioned {
		history, err := p.historyOf(c, identifier)
		if err != nil {
			return err
		}
		if history != nil {
			latest, err := p.Versions.Latest(c, history)
			if err != nil {
				return err
			}
			next := 1
			if latest != nil {
				next = latest.Number + 1
			}
			v := h.WithOrdinal(next)
			return p.restoreAsVersion(c, obj, v.String(), v, history)
		}
		if err := p.createIdentifier(c, obj, identifier); err != nil {
			return err
		}
		return p.ModifyHandleMetadata(c, obj, identifier)
	}

	if h.Ordinal < 0 {
		return errors.Wrapf(handle.ErrMalformed, "ordinal out of range in %s", identifier)
	}
	history, err := p.historyOf(c, h.Canonical().String())
	if err != nil {
		return err
	}
	if history == nil {
		return p.restoreAsCanonical(c, obj, identifier, h)
	}
	return p.restoreAsVersion(c, obj, identifier, h, history)
}

// historyOf returns the history of the item identifier names, or nil when
// it names nothing or an object without one.
func (p *VersionedProvider) historyOf(c *core.Context, identifier string) (*versioning.History, error) {
	ref, err := p.Handles.Resolve(c, identifier)
	if errors.Is(err, handle.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if ref.Type != core.TypeItem {
		return nil, nil
	}
	return p.Versions.FindByItem(c, ref.ID)
}

// restoreAsVersion registers identifier, whose parsed form is h, as it was
// written. The ordinal only numbers the version.
func (p *VersionedProvider) restoreAsVersion(c *core.Context, obj *content.Object, identifier string, h handle.Handle, history *versioning.History) error {
	if err := p.createIdentifier(c, obj, identifier); err != nil {
		return err
	}
	canonical := h.Canonical().String()
	if err := p.ModifyHandleMetadata(c, obj, canonical); err != nil {
		return err
	}
	latest, err := p.Versions.Latest(c, history)
	if err != nil {
		return err
	}
	if _, err := p.Versions.CreateVersion(c, history, obj.ID, restoreSummary, time.Time{}, h.Ordinal); err != nil {
		return err
	}
	if latest == nil || latest.Number < h.Ordinal {
		return p.pointCanonical(c, canonical, obj)
	}
	return nil
}

func (p *VersionedProvider) restoreAsCanonical(c *core.Context, obj *content.Object, identifier string, h handle.Handle) error {
	if err := p.createIdentifier(c, obj, identifier); err != nil {
		return err
	}
	canonical := h.Canonical().String()
	if err := p.ModifyHandleMetadata(c, obj, canonical); err != nil {
		return err
	}
	history, err := p.Versions.Create(c)
	if err != nil {
		return err
	}
	if _, err := p.Versions.CreateVersion(c, history, obj.ID, restoreSummary, time.Time{}, h.Ordinal); err != nil {
		return err
	}
	return p.pointCanonical(c, canonical, obj)
}

// pointCanonical moves canonical to obj, creating it if it does not exist.
func (p *VersionedProvider) pointCanonical(c *core.Context, canonical string, obj *content.Object) error {
	err := p.Handles.Modify(c, canonical, obj.Ref())
	if errors.Is(err, handle.ErrNotFound) {
		_, err = p.Handles.CreateWithHandle(c, obj.Ref(), canonical, false)
	}
	return err
}

// createIdentifier registers identifier for obj, or mints a fresh handle
// when identifier is empty. Registering a handle obj already owns is not
// an error, so restores can be rerun.
func (p *VersionedProvider) createIdentifier(c *core.Context, obj *content.Object, identifier string) error {
	if identifier == "" {
		_, err := p.Handles.Create(c, obj.Ref())
		return err
	}
	_, err := p.Handles.CreateWithHandle(c, obj.Ref(), identifier, false)
	if errors.Is(err, handle.ErrExists) {
		ref, rerr := p.Handles.Resolve(c, identifier)
		if rerr == nil && ref.ID == obj.ID {
			return nil
		}
	}
	return err
}

// Reserve binds identifier to obj. No versioning rules apply.
func (p *VersionedProvider) Reserve(c *core.Context, obj *content.Object, identifier string) error {
	if _, err := p.Handles.CreateWithHandle(c, obj.Ref(), identifier, false); err != nil {
		p.logFailure(obj, "reserve "+identifier, err)
		return errors.Wrapf(err, "create identifier %s for %s", identifier, obj.ID)
	}
	return nil
}

// Resolve returns the object identifier names. Malformed identifiers,
// unknown handles and storage failures all give nil; failures other than
// "not found" are logged.
func (p *VersionedProvider) Resolve(c *core.Context, identifier string) *content.Object {
	h, err := p.Handles.Parse(identifier)
	if err != nil {
		log.WithField("handle", identifier).Errorf("resolving handle: %v", err)
		return nil
	}
	ref, err := p.Handles.Resolve(c, h)
	if errors.Is(err, handle.ErrNotFound) {
		log.Debugf("handle %s not registered", h)
		return nil
	}
	if err != nil {
		log.WithField("handle", h).Errorf("resolving handle: %v", err)
		return nil
	}
	obj, err := p.Objects.Find(c, ref.ID)
	if err != nil {
		log.WithField("handle", h).Errorf("loading %s: %v", ref, err)
		return nil
	}
	return obj
}

// Lookup returns obj's oldest handle.
func (p *VersionedProvider) Lookup(c *core.Context, obj *content.Object) (string, error) {
	h, err := p.Handles.Find(c, obj.Ref())
	if err != nil {
		return "", errors.Wrapf(ErrNotResolvable, "%s: %v", obj.ID, err)
	}
	if h == "" {
		return "", errors.Wrapf(ErrNotResolvable, "%s has no handle", obj.ID)
	}
	return h, nil
}

// Delete prepares for obj being removed. If obj is the latest of several
// versions, the canonical handle moves to the version before it. In every
// other case nothing changes.
func (p *VersionedProvider) Delete(c *core.Context, obj *content.Object) error {
	if !obj.IsItem() {
		return nil
	}
	if err := p.delete(c, obj); err != nil {
		p.logFailure(obj, "delete", err)
		return &Error{Op: "move", Object: obj.ID, Err: err}
	}
	return nil
}

func (p *VersionedProvider) delete(c *core.Context, obj *content.Object) error {
	history, err := p.Versions.FindByItem(c, obj.ID)
	if err != nil || history == nil {
		return err
	}
	versions, err := p.Versions.Versions(c, history)
	if err != nil {
		return err
	}
	if len(versions) < 2 || versions[0].Item != obj.ID {
		return nil
	}
	previous, err := p.Versions.Previous(c, history, versions[0])
	if err != nil || previous == nil {
		return err
	}
	prevRef := itemRef(previous.Item)
	canonical, err := p.canonicalOf(c, prevRef)
	if err != nil {
		return err
	}
	if canonical == "" {
		return errors.Wrapf(ErrIllegalState, "previous version %d has no handle", previous.Number)
	}
	return p.Handles.Modify(c, canonical, prevRef)
}

// ModifyHandleMetadata replaces the handles recorded in obj's
// dc.identifier.uri with h. Values that are not handles, such as DOIs,
// are kept in order; h is appended in canonical form if not empty.
func (p *VersionedProvider) ModifyHandleMetadata(c *core.Context, obj *content.Object, h string) error {
	ref := p.Handles.CanonicalForm(h)
	values := p.Objects.Metadata(obj, content.IdentifierURI, content.Any)
	if err := p.Objects.ClearMetadata(c, obj, content.IdentifierURI, content.Any); err != nil {
		return err
	}
	for _, v := range values {
		if p.Supports(v.Value) {
			continue
		}
		err := p.Objects.AddMetadata(c, obj, v.Field, v.Language, v.Value, v.Authority, v.Confidence)
		if err != nil {
			return err
		}
	}
	if ref != "" {
		if err := p.Objects.AddMetadata(c, obj, content.IdentifierURI, "", ref, "", -1); err != nil {
			return err
		}
	}
	return p.Objects.Update(c, obj)
}

func (p *VersionedProvider) logFailure(obj *content.Object, op string, err error) {
	log.WithField("object", obj.ID).
		WithField("type", obj.Type).
		Errorf("%s: %v", op, err)
}

func itemRef(id uuid.UUID) core.Ref {
	return core.Ref{ID: id, Type: core.TypeItem}
}
