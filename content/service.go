package content

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ndlib/vhandle/core"
)

// Service creates and loads objects and edits their metadata. Metadata
// edits change the in-memory Object only; Update persists them. Every write
// is checked with the Authorizer unless the Context is elevated.
type Service struct {
	Store      Store
	Authorizer core.Authorizer
}

// NewService returns a Service using the default role authorizer.
func NewService(s Store) *Service {
	return &Service{Store: s, Authorizer: core.DefaultAuthorizer}
}

// Create makes and saves a new empty object of the given type.
func (s *Service) Create(c *core.Context, typ core.ObjectType) (*Object, error) {
	obj := &Object{ID: uuid.New(), Type: typ}
	if err := core.Check(s.Authorizer, c, obj.Ref(), core.ActionWrite); err != nil {
		return nil, err
	}
	if err := s.Store.Save(c, obj); err != nil {
		return nil, errors.Wrap(err, "create object")
	}
	return obj, nil
}

// Ensure loads the object with the given id, creating an empty one of type
// typ if it does not exist. Restores use it to recreate objects.
func (s *Service) Ensure(c *core.Context, id uuid.UUID, typ core.ObjectType) (*Object, error) {
	obj, err := s.Store.Load(c, id)
	if err == nil {
		return obj, nil
	}
	if !errors.Is(err, ErrNoObject) {
		return nil, err
	}
	obj = &Object{ID: id, Type: typ}
	if err := core.Check(s.Authorizer, c, obj.Ref(), core.ActionWrite); err != nil {
		return nil, err
	}
	if err := s.Store.Save(c, obj); err != nil {
		return nil, errors.Wrap(err, "create object")
	}
	return obj, nil
}

// Find loads an object.
func (s *Service) Find(c *core.Context, id uuid.UUID) (*Object, error) {
	return s.Store.Load(c, id)
}

// Metadata returns the values of obj matching field and lang. The field's
// qualifier and lang may be Any.
func (s *Service) Metadata(obj *Object, field Field, lang string) []MetadataValue {
	var result []MetadataValue
	for _, v := range obj.Metadata {
		if v.Field.matches(field) && languageMatches(v.Language, lang) {
			result = append(result, v)
		}
	}
	return result
}

// ClearMetadata removes the values of obj matching field and lang.
func (s *Service) ClearMetadata(c *core.Context, obj *Object, field Field, lang string) error {
	if err := core.Check(s.Authorizer, c, obj.Ref(), core.ActionWrite); err != nil {
		return err
	}
	kept := obj.Metadata[:0]
	for _, v := range obj.Metadata {
		if v.Field.matches(field) && languageMatches(v.Language, lang) {
			obj.modified = true
			continue
		}
		kept = append(kept, v)
	}
	obj.Metadata = kept
	return nil
}

// AddMetadata appends a value to obj, placing it after the existing values
// of the same field.
func (s *Service) AddMetadata(c *core.Context, obj *Object, field Field, lang, value, authority string, confidence int) error {
	if err := core.Check(s.Authorizer, c, obj.Ref(), core.ActionWrite); err != nil {
		return err
	}
	place := 0
	for _, v := range obj.Metadata {
		if v.Field == field && v.Place >= place {
			place = v.Place + 1
		}
	}
	obj.Metadata = append(obj.Metadata, MetadataValue{
		Field:      field,
		Language:   lang,
		Value:      value,
		Authority:  authority,
		Confidence: confidence,
		Place:      place,
	})
	obj.modified = true
	return nil
}

// Update saves obj.
func (s *Service) Update(c *core.Context, obj *Object) error {
	if err := core.Check(s.Authorizer, c, obj.Ref(), core.ActionWrite); err != nil {
		return err
	}
	if err := s.Store.Save(c, obj); err != nil {
		return errors.Wrapf(err, "update %s", obj.ID)
	}
	obj.modified = false
	return nil
}
