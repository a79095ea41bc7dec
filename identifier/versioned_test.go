package identifier

import (
	"errors"
	"io/ioutil"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/ndlib/vhandle/content"
	"github.com/ndlib/vhandle/core"
	"github.com/ndlib/vhandle/handle"
	"github.com/ndlib/vhandle/internal/log"
	"github.com/ndlib/vhandle/sqlstore"
	"github.com/ndlib/vhandle/versioning"
)

type fixture struct {
	t *testing.T
	c *core.Context
	p *VersionedProvider
}

func newFixture(t *testing.T, canonicalPrefix string) *fixture {
	log.SetOutput(ioutil.Discard)
	return newFixtureWithStore(t, handle.NewMemoryStore(), canonicalPrefix)
}

func newFixtureWithStore(t *testing.T, hs handle.Store, canonicalPrefix string) *fixture {
	p, err := NewVersionedProvider(
		handle.NewService(hs, handle.Parser{Prefix: "1234", CanonicalPrefix: canonicalPrefix}),
		versioning.NewService(versioning.NewMemoryStore()),
		content.NewService(content.NewMemoryStore()),
		true)
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{t: t, c: core.Background(), p: p}
}

func (f *fixture) create(typ core.ObjectType) *content.Object {
	obj, err := f.p.Objects.Create(f.c, typ)
	if err != nil {
		f.t.Fatal(err)
	}
	return obj
}

// newVersion does what the submission workflow does: make a new item,
// record it as the next version of of, and register it.
func (f *fixture) newVersion(of *content.Object) *content.Object {
	obj := f.create(core.TypeItem)
	if _, err := f.p.Versions.NewVersion(f.c, of.ID, obj.ID, ""); err != nil {
		f.t.Fatal(err)
	}
	if _, err := f.p.Register(f.c, obj); err != nil {
		f.t.Fatal(err)
	}
	return obj
}

// reload gets the stored state of obj.
func (f *fixture) reload(obj *content.Object) *content.Object {
	x, err := f.p.Objects.Find(f.c, obj.ID)
	if err != nil {
		f.t.Fatal(err)
	}
	return x
}

func (f *fixture) expectResolve(identifier string, want *content.Object) {
	f.t.Helper()
	got := f.p.Resolve(f.c, identifier)
	switch {
	case want == nil && got != nil:
		f.t.Errorf("Resolve(%q) received %s, expected nil", identifier, got.ID)
	case want != nil && got == nil:
		f.t.Errorf("Resolve(%q) received nil, expected %s", identifier, want.ID)
	case want != nil && got.ID != want.ID:
		f.t.Errorf("Resolve(%q) received %s, expected %s", identifier, got.ID, want.ID)
	}
}

func (f *fixture) expectHandles(obj *content.Object, want ...string) {
	f.t.Helper()
	got, err := f.p.Handles.FindAll(f.c, obj.Ref())
	if err != nil {
		f.t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		f.t.Errorf("handles of %s mismatch (-want +got):\n%s", obj.ID, diff)
	}
}

func uris(obj *content.Object) []string {
	var result []string
	for _, v := range obj.Metadata {
		if v.Field == content.IdentifierURI {
			result = append(result, v.Value)
		}
	}
	return result
}

func TestMintFresh(t *testing.T) {
	f := newFixture(t, "")
	item := f.create(core.TypeItem)

	id, err := f.p.Mint(f.c, item)
	if err != nil || id != "1234/1" {
		t.Fatalf("Mint gave %q, %v", id, err)
	}
	again, err := f.p.Mint(f.c, item)
	if err != nil || again != id {
		t.Errorf("second Mint gave %q, %v", again, err)
	}
	f.expectHandles(item, "1234/1")
	if h, err := f.p.Lookup(f.c, item); h != id || err != nil {
		t.Errorf("Lookup gave %q, %v", h, err)
	}
	// Mint does not touch metadata
	if u := uris(f.reload(item)); len(u) != 0 {
		t.Errorf("Mint wrote metadata %v", u)
	}
}

func TestVersionLineage(t *testing.T) {
	f := newFixture(t, "")
	item1 := f.create(core.TypeItem)
	if err := f.p.RegisterAs(f.c, item1, "1234/100"); err != nil {
		t.Fatal(err)
	}
	item2 := f.newVersion(item1)

	f.expectResolve("1234/100", item2)
	f.expectResolve("1234/100.1", item1)
	f.expectResolve("1234/100.2", item2)

	item3 := f.newVersion(item1)

	f.expectResolve("1234/100", item3)
	f.expectResolve("1234/100.1", item1)
	f.expectResolve("1234/100.2", item2)
	f.expectResolve("1234/100.3", item3)

	f.expectHandles(item1, "1234/100.1")
	f.expectHandles(item2, "1234/100.2")
	f.expectHandles(item3, "1234/100", "1234/100.3")

	var table = []struct {
		obj *content.Object
		uri []string
	}{
		{item1, []string{"1234/100.1"}},
		{item2, []string{"1234/100.2"}},
		{item3, []string{"1234/100"}},
	}
	for i, row := range table {
		if diff := cmp.Diff(row.uri, uris(f.reload(row.obj))); diff != "" {
			t.Errorf("item%d metadata mismatch (-want +got):\n%s", i+1, diff)
		}
	}

	// deleting a version that is not the latest changes nothing
	if err := f.p.Delete(f.c, item1); err != nil {
		t.Fatal(err)
	}
	f.expectResolve("1234/100", item3)

	if err := f.p.Delete(f.c, item3); err != nil {
		t.Fatal(err)
	}
	f.expectResolve("1234/100", item2)
	f.expectResolve("1234/100.2", item2)
	f.expectResolve("1234/100.1", item1)
}

func TestDeleteSingleVersion(t *testing.T) {
	f := newFixture(t, "")
	item := f.create(core.TypeItem)
	id, _ := f.p.Register(f.c, item)
	if err := f.p.Delete(f.c, item); err != nil {
		t.Fatal(err)
	}
	f.expectResolve(id, item)

	coll := f.create(core.TypeCollection)
	if err := f.p.Delete(f.c, coll); err != nil {
		t.Errorf("Delete of a collection gave %v", err)
	}
}

func TestModifyHandleMetadata(t *testing.T) {
	f := newFixture(t, "")
	item := f.create(core.TypeItem)
	_ = f.p.Objects.AddMetadata(f.c, item, content.IdentifierURI, "", "1234/100", "", -1)
	_ = f.p.Objects.AddMetadata(f.c, item, content.IdentifierURI, "en", "doi:10.1/xyz", "auth", 600)

	if err := f.p.ModifyHandleMetadata(f.c, item, "1234/100.2"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"doi:10.1/xyz", "1234/100.2"}, uris(f.reload(item))); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
	kept := f.reload(item).Metadata[0]
	if kept.Language != "en" || kept.Authority != "auth" || kept.Confidence != 600 {
		t.Errorf("non-handle value not preserved: %+v", kept)
	}

	if err := f.p.ModifyHandleMetadata(f.c, item, ""); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"doi:10.1/xyz"}, uris(f.reload(item))); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestRegisterCollection(t *testing.T) {
	f := newFixture(t, "http://hdl.handle.net/")
	coll := f.create(core.TypeCollection)
	_ = f.p.Objects.AddMetadata(f.c, coll, content.IdentifierURI, "", "http://hdl.handle.net/1234/77", "", -1)

	id, err := f.p.Register(f.c, coll)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"http://hdl.handle.net/" + id}, uris(f.reload(coll))); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
	f.expectResolve("hdl:"+id, coll)
	f.expectResolve("http://hdl.handle.net/"+id, coll)
}

func TestResolveFailures(t *testing.T) {
	f := newFixture(t, "")
	for _, id := range []string{"doi:10.1/xyz", "", "garbage", "1234/404", "9999/1"} {
		f.expectResolve(id, nil)
	}
	if f.p.Supports("doi:10.1/xyz") || !f.p.Supports("1234/5") {
		t.Errorf("Supports wrong")
	}
}

func TestLookupNotResolvable(t *testing.T) {
	f := newFixture(t, "")
	item := f.create(core.TypeItem)
	_, err := f.p.Lookup(f.c, item)
	if !errors.Is(err, ErrNotResolvable) {
		t.Errorf("Received %v, expected ErrNotResolvable", err)
	}
}

func TestRestoreLineage(t *testing.T) {
	f := newFixture(t, "")
	item1 := f.create(core.TypeItem)
	item2 := f.create(core.TypeItem)
	item3 := f.create(core.TypeItem)

	// archives list older versions by their versioned handle and the
	// latest one by the canonical handle
	var steps = []struct {
		obj *content.Object
		id  string
	}{
		{item1, "1234/200.1"},
		{item2, "1234/200.2"},
		{item3, "1234/200"},
	}
	for _, s := range steps {
		if err := f.p.RegisterAs(f.c, s.obj, s.id); err != nil {
			t.Fatalf("RegisterAs(%s): %v", s.id, err)
		}
	}
	f.expectResolve("1234/200", item3)
	f.expectResolve("1234/200.1", item1)
	f.expectResolve("1234/200.2", item2)
	f.expectResolve("1234/200.3", item3)

	v, _ := f.p.Versions.VersionOf(f.c, item3.ID)
	if v == nil || v.Number != 3 || v.Summary != restoreSummary {
		t.Errorf("item3 version is %+v, expected number 3", v)
	}
	h1, _ := f.p.Versions.FindByItem(f.c, item1.ID)
	h3, _ := f.p.Versions.FindByItem(f.c, item3.ID)
	if h1 == nil || h3 == nil || h1.ID != h3.ID {
		t.Errorf("items not in one history: %v %v", h1, h3)
	}
	if diff := cmp.Diff([]string{"1234/200"}, uris(f.reload(item1))); diff != "" {
		t.Errorf("item1 metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestRestoreOutOfOrder(t *testing.T) {
	f := newFixture(t, "")
	item1 := f.create(core.TypeItem)
	item2 := f.create(core.TypeItem)

	if err := f.p.RegisterAs(f.c, item2, "1234/300.2"); err != nil {
		t.Fatal(err)
	}
	f.expectResolve("1234/300", item2)
	if err := f.p.RegisterAs(f.c, item1, "1234/300.1"); err != nil {
		t.Fatal(err)
	}
	// an older version must not take the canonical handle
	f.expectResolve("1234/300", item2)
	f.expectResolve("1234/300.1", item1)

	// replaying the same entry again is harmless up to the version record
	err := f.p.RegisterAs(f.c, item1, "1234/300.1")
	if !errors.Is(err, versioning.ErrDuplicate) {
		t.Errorf("Received %v, expected ErrDuplicate", err)
	}
}

func TestRestoreOntoUnversionedCanonical(t *testing.T) {
	f := newFixture(t, "")
	holder := f.create(core.TypeItem)
	restored := f.create(core.TypeItem)
	if err := f.p.Reserve(f.c, holder, "1234/400"); err != nil {
		t.Fatal(err)
	}
	if err := f.p.RegisterAs(f.c, restored, "1234/400.2"); err != nil {
		t.Fatal(err)
	}
	f.expectResolve("1234/400", restored)
	f.expectResolve("1234/400.2", restored)
	h, _ := f.p.Versions.FindByItem(f.c, restored.ID)
	if h == nil {
		t.Fatalf("no history created")
	}
	if other, _ := f.p.Versions.FindByItem(f.c, holder.ID); other != nil {
		t.Errorf("holder joined history %d", other.ID)
	}
}

func TestRestoreKeepsOrdinalText(t *testing.T) {
	restoreOrdinalText(newFixture(t, ""))

	db, err := sqlstore.OpenQL("memory")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	restoreOrdinalText(newFixtureWithStore(t, db.Handles(), ""))
}

// restoreOrdinalText checks that a restored handle is registered exactly as
// written, leading zeros included, and that an ordinal too large to number a
// version is refused.
func restoreOrdinalText(f *fixture) {
	t := f.t
	t.Helper()
	item := f.create(core.TypeItem)
	if err := f.p.RegisterAs(f.c, item, "1234/700.01"); err != nil {
		t.Fatal(err)
	}
	f.expectResolve("1234/700.01", item)
	f.expectResolve("1234/700", item)
	f.expectResolve("1234/700.1", nil)
	f.expectHandles(item, "1234/700.01", "1234/700")
	v, _ := f.p.Versions.VersionOf(f.c, item.ID)
	if v == nil || v.Number != 1 {
		t.Errorf("Received version %+v, expected number 1", v)
	}

	other := f.create(core.TypeItem)
	err := f.p.RegisterAs(f.c, other, "1234/800.99999999999999999999")
	if !errors.Is(err, handle.ErrMalformed) {
		t.Errorf("Received %v, expected ErrMalformed", err)
	}
	f.expectResolve("1234/800.99999999999999999999", nil)
	f.expectResolve("1234/800", nil)
}

func TestRegisterAsPlain(t *testing.T) {
	f := newFixture(t, "")
	item := f.create(core.TypeItem)
	comm := f.create(core.TypeCommunity)
	if err := f.p.RegisterAs(f.c, item, "1234/500"); err != nil {
		t.Fatal(err)
	}
	if err := f.p.RegisterAs(f.c, comm, "1234/501"); err != nil {
		t.Fatal(err)
	}
	f.expectResolve("1234/500", item)
	f.expectResolve("1234/501", comm)
	if diff := cmp.Diff([]string{"1234/500"}, uris(f.reload(item))); diff != "" {
		t.Errorf("item metadata mismatch (-want +got):\n%s", diff)
	}
	if u := uris(f.reload(comm)); len(u) != 0 {
		t.Errorf("community metadata written: %v", u)
	}
	other := f.create(core.TypeItem)
	if err := f.p.RegisterAs(f.c, other, "1234/500"); !errors.Is(err, handle.ErrExists) {
		t.Errorf("Received %v, expected ErrExists", err)
	}
}

// A site switching to versioned handles has items whose first version
// never got a versioned handle of its own.
func TestRegisterPreviousWithoutHandle(t *testing.T) {
	f := newFixture(t, "")
	item1 := f.create(core.TypeItem)
	item2 := f.create(core.TypeItem)
	if err := f.p.Reserve(f.c, item2, "1234/600"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.p.Versions.NewVersion(f.c, item1.ID, item2.ID, ""); err != nil {
		t.Fatal(err)
	}
	id, err := f.p.Register(f.c, item2)
	if err != nil || id != "1234/600" {
		t.Fatalf("Register gave %q, %v", id, err)
	}
	f.expectResolve("1234/600.1", item1)
	if diff := cmp.Diff([]string{"1234/600.1"}, uris(f.reload(item1))); diff != "" {
		t.Errorf("item1 metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestRegisterElevation(t *testing.T) {
	f := newFixture(t, "")
	item1 := f.create(core.TypeItem)
	if _, err := f.p.Register(f.c, item1); err != nil {
		t.Fatal(err)
	}
	item2 := f.create(core.TypeItem)
	if _, err := f.p.Versions.NewVersion(f.c, item1.ID, item2.ID, ""); err != nil {
		t.Fatal(err)
	}

	reviewer := core.NewContext(nil, "reviewer", core.RoleRead)
	_, err := f.p.Register(reviewer, item2)
	if !errors.Is(err, core.ErrNotAuthorized) {
		t.Errorf("Received %v, expected ErrNotAuthorized", err)
	}
	if reviewer.Elevated() {
		t.Errorf("elevation token not released")
	}
	// the previous version was restamped under elevation
	if diff := cmp.Diff([]string{"1234/1.1"}, uris(f.reload(item1))); diff != "" {
		t.Errorf("item1 metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestVersioningDisabled(t *testing.T) {
	_, err := NewVersionedProvider(nil, nil, nil, false)
	if err != ErrVersioningDisabled {
		t.Errorf("Received %v, expected ErrVersioningDisabled", err)
	}
}

// brokenStore fails every lookup of an object's handles.
type brokenStore struct {
	handle.Store
}

var errBroken = errors.New("connection refused")

func (brokenStore) Handles(c *core.Context, id uuid.UUID) ([]string, error) {
	return nil, errBroken
}

func (brokenStore) Get(c *core.Context, h string) (core.Ref, error) {
	return core.Ref{}, errBroken
}

func TestStorageFailures(t *testing.T) {
	log.SetOutput(ioutil.Discard)
	good := newFixture(t, "")
	item1 := good.create(core.TypeItem)
	good.p.Register(good.c, item1)
	item2 := good.newVersion(item1)

	f := newFixtureWithStore(t, brokenStore{handle.NewMemoryStore()}, "")
	f.p.Versions = good.p.Versions
	f.p.Objects = good.p.Objects

	err := f.p.Delete(f.c, item2)
	var ierr *Error
	if !errors.As(err, &ierr) || !errors.Is(err, errBroken) {
		t.Errorf("Received %v, expected *Error wrapping the storage failure", err)
	}
	if _, err := f.p.Mint(f.c, item1); !errors.Is(err, errBroken) {
		t.Errorf("Mint received %v", err)
	}
	if _, err := f.p.Lookup(f.c, item1); !errors.Is(err, ErrNotResolvable) {
		t.Errorf("Lookup received %v, expected ErrNotResolvable", err)
	}
	f.expectResolve("1234/1", nil)
}
