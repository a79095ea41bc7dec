package content

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/ndlib/vhandle/core"
)

var title = Field{Schema: "dc", Element: "title"}

func TestMetadataEdit(t *testing.T) {
	c := core.Background()
	s := NewService(NewMemoryStore())
	obj, err := s.Create(c, core.TypeItem)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.AddMetadata(c, obj, title, "en", "A title", "", -1)
	_ = s.AddMetadata(c, obj, IdentifierURI, "", "1234/100", "", -1)
	_ = s.AddMetadata(c, obj, IdentifierURI, "", "doi:10.1/xyz", "", -1)
	_ = s.AddMetadata(c, obj, Field{"dc", "identifier", "isbn"}, "", "978", "", -1)

	if vs := s.Metadata(obj, IdentifierURI, Any); len(vs) != 2 || vs[1].Place != 1 {
		t.Errorf("Received %v, expected 2 uri values", vs)
	}
	anyQual := Field{Schema: "dc", Element: "identifier", Qualifier: Any}
	if vs := s.Metadata(obj, anyQual, Any); len(vs) != 3 {
		t.Errorf("Received %d identifier values, expected 3", len(vs))
	}
	if vs := s.Metadata(obj, title, "EN"); len(vs) != 1 {
		t.Errorf("language match should ignore case, received %v", vs)
	}
	if !obj.Modified() {
		t.Errorf("object not marked modified")
	}

	if err := s.ClearMetadata(c, obj, IdentifierURI, Any); err != nil {
		t.Fatal(err)
	}
	if err := s.Update(c, obj); err != nil {
		t.Fatal(err)
	}

	reloaded, err := s.Find(c, obj.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Metadata) != 2 {
		t.Errorf("Received %v, expected title and isbn", reloaded.Metadata)
	}
}

func TestWriteNeedsAuthorization(t *testing.T) {
	admin := core.Background()
	s := NewService(NewMemoryStore())
	obj, _ := s.Create(admin, core.TypeCollection)

	reader := core.NewContext(nil, "reader", core.RoleRead)
	err := s.AddMetadata(reader, obj, title, "", "x", "", -1)
	if !errors.Is(err, core.ErrNotAuthorized) {
		t.Errorf("Received %v, expected ErrNotAuthorized", err)
	}

	e := reader.Elevate()
	err = s.AddMetadata(reader, obj, title, "", "x", "", -1)
	if err == nil {
		err = s.Update(reader, obj)
	}
	e.Release()
	if err != nil {
		t.Errorf("Received %v while elevated", err)
	}
	if err := s.Update(reader, obj); !errors.Is(err, core.ErrNotAuthorized) {
		t.Errorf("Received %v after release, expected ErrNotAuthorized", err)
	}
}

func TestEnsure(t *testing.T) {
	c := core.Background()
	s := NewService(NewMemoryStore())
	id := uuid.New()
	obj, err := s.Ensure(c, id, core.TypeItem)
	if err != nil || obj.ID != id || obj.Type != core.TypeItem {
		t.Fatalf("Ensure gave %v, %v", obj, err)
	}
	again, err := s.Ensure(c, id, core.TypeCommunity)
	if err != nil || again.Type != core.TypeItem {
		t.Errorf("Ensure should load the existing object, gave %v, %v", again, err)
	}
	if _, err := s.Find(c, uuid.New()); !errors.Is(err, ErrNoObject) {
		t.Errorf("Received %v, expected ErrNoObject", err)
	}
}
