//go:build integration
// +build integration

package sqlstore

import (
	"flag"
	"testing"

	"github.com/google/uuid"

	"github.com/ndlib/vhandle/core"
)

var dialmysql = flag.String("mysql", "/test", "Dial for mysql")

func TestMySQLHandles(t *testing.T) {
	db, err := OpenMySQL(*dialmysql)
	if err != nil {
		t.Fatalf("Received %s", err.Error())
	}
	defer db.Close()
	s := db.Handles()
	c := core.Background()
	ref := core.Ref{ID: uuid.New(), Type: core.TypeItem}
	h := "test/" + uuid.NewString()

	if err := s.Put(c, h, ref); err != nil {
		t.Fatal(err)
	}
	// moving onto the same object changes no rows in MySQL
	if err := s.Move(c, h, ref); err != nil {
		t.Errorf("Move received %v", err)
	}
	got, err := s.Get(c, h)
	if err != nil || got != ref {
		t.Errorf("Received %v, %v, expected %v", got, err, ref)
	}
	if err := s.Delete(c, h); err != nil {
		t.Fatal(err)
	}
	n1, _ := s.NextID(c)
	n2, _ := s.NextID(c)
	if n2 != n1+1 {
		t.Errorf("NextID gave %d then %d", n1, n2)
	}
}
