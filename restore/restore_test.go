package restore

import (
	"errors"
	"fmt"
	"io/ioutil"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/ndlib/vhandle/content"
	"github.com/ndlib/vhandle/core"
	"github.com/ndlib/vhandle/handle"
	"github.com/ndlib/vhandle/identifier"
	"github.com/ndlib/vhandle/internal/log"
	"github.com/ndlib/vhandle/sqlstore"
	"github.com/ndlib/vhandle/store"
	"github.com/ndlib/vhandle/versioning"
)

func init() {
	log.SetOutput(ioutil.Discard)
}

func TestParse(t *testing.T) {
	id := uuid.New()
	var table = []struct {
		input string
		ok    bool
		entry Entry
	}{
		{fmt.Sprintf(`{"entries":[{"id":"%s","type":"collection","handle":"1234/5"}]}`, id), true,
			Entry{ID: id, Type: core.TypeCollection, Handle: "1234/5"}},
		{fmt.Sprintf(`{"entries":[{"id":"%s"}]}`, id), true,
			Entry{ID: id, Type: core.TypeItem}},
		{`{"entries":[{"id":"not-a-uuid"}]}`, false, Entry{}},
		{fmt.Sprintf(`{"entries":[{"id":"%s","type":"folder"}]}`, id), false, Entry{}},
		{`{"items":[]}`, false, Entry{}},
		{`not json`, false, Entry{}},
	}
	for _, row := range table {
		m, err := Parse([]byte(row.input))
		if (err == nil) != row.ok {
			t.Errorf("Parse(%s) gave %v", row.input, err)
			continue
		}
		if row.ok && (len(m.Entries) != 1 || m.Entries[0] != row.entry) {
			t.Errorf("Parse(%s) gave %+v", row.input, m.Entries)
		}
	}
}

func TestOrder(t *testing.T) {
	var input []Entry
	for _, h := range []string{"1234/9", "", "1234/7", "1234/7.10", "1234/7.2", "1234/7.1", "1234/9.1"} {
		input = append(input, Entry{Handle: h})
	}
	var got []string
	for _, e := range Order(input) {
		got = append(got, e.Handle)
	}
	want := []string{"1234/7.1", "1234/7.2", "1234/7.10", "1234/7", "1234/9.1", "1234/9", ""}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

type env struct {
	c        *core.Context
	provider *identifier.VersionedProvider
	restorer *Restorer
}

func newEnv(t *testing.T, hs handle.Store, vs versioning.Store, cs content.Store) *env {
	objs := content.NewService(cs)
	p, err := identifier.NewVersionedProvider(
		handle.NewService(hs, handle.Parser{Prefix: "1234"}),
		versioning.NewService(vs),
		objs,
		true)
	if err != nil {
		t.Fatal(err)
	}
	return &env{
		c:        core.Background(),
		provider: p,
		restorer: &Restorer{Provider: p, Objects: objs},
	}
}

func manifest(entries ...Entry) *Manifest {
	return &Manifest{Entries: entries}
}

func TestRun(t *testing.T) {
	e := newEnv(t, handle.NewMemoryStore(), versioning.NewMemoryStore(), content.NewMemoryStore())
	item1, item2, item3 := uuid.New(), uuid.New(), uuid.New()
	coll, fresh := uuid.New(), uuid.New()

	// listed newest first, as an archive walk would find them
	m := manifest(
		Entry{ID: item3, Type: core.TypeItem, Handle: "1234/200"},
		Entry{ID: coll, Type: core.TypeCollection, Handle: "1234/10"},
		Entry{ID: item2, Type: core.TypeItem, Handle: "1234/200.2"},
		Entry{ID: fresh, Type: core.TypeItem},
		Entry{ID: item1, Type: core.TypeItem, Handle: "1234/200.1"},
	)
	result, err := e.restorer.Run(e.c, m)
	if err != nil {
		t.Fatal(err)
	}
	if result.Restored != 5 || result.Failed != 0 {
		t.Errorf("Received %+v", result)
	}

	var table = []struct {
		handle string
		id     uuid.UUID
	}{
		{"1234/200", item3},
		{"1234/200.1", item1},
		{"1234/200.2", item2},
		{"1234/200.3", item3},
		{"1234/10", coll},
	}
	for _, row := range table {
		obj := e.provider.Resolve(e.c, row.handle)
		if obj == nil || obj.ID != row.id {
			t.Errorf("Resolve(%s) gave %v, expected %s", row.handle, obj, row.id)
		}
	}
	obj, _ := e.provider.Objects.Find(e.c, fresh)
	if h, err := e.provider.Lookup(e.c, obj); err != nil || h == "" {
		t.Errorf("fresh item has no handle: %v", err)
	}
}

func TestRunCollectsFailures(t *testing.T) {
	e := newEnv(t, handle.NewMemoryStore(), versioning.NewMemoryStore(), content.NewMemoryStore())
	item, coll, other := uuid.New(), uuid.New(), uuid.New()
	m := manifest(
		Entry{ID: item, Type: core.TypeItem, Handle: "1234/300"},
		Entry{ID: coll, Type: core.TypeCollection, Handle: "1234/300"},
		Entry{ID: other, Type: core.TypeCommunity, Handle: "1234/301"},
	)
	result, err := e.restorer.Run(e.c, m)
	if result.Restored != 2 || result.Failed != 1 {
		t.Errorf("Received %+v", result)
	}
	var merr *multierror.Error
	if !errors.As(err, &merr) || len(merr.Errors) != 1 {
		t.Fatalf("Received %v, expected one collected error", err)
	}
	if !errors.Is(merr.Errors[0], handle.ErrExists) {
		t.Errorf("Received %v, expected ErrExists", merr.Errors[0])
	}
	if obj := e.provider.Resolve(e.c, "1234/301"); obj == nil || obj.ID != other {
		t.Errorf("entry after the failure was not restored")
	}
}

func TestRunSQL(t *testing.T) {
	db, err := sqlstore.OpenQL("memory")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	e := newEnv(t, db.Handles(), db.Versions(), db.Objects())
	e.restorer.DB = db.SQL()

	item1, item2, loser := uuid.New(), uuid.New(), uuid.New()
	ms := store.NewMemory()
	ms.Put("aip.json", []byte(fmt.Sprintf(`{"entries":[
		{"id":"%s","type":"item","handle":"1234/400"},
		{"id":"%s","type":"item","handle":"1234/400.1"},
		{"id":"%s","type":"collection","handle":"1234/400.1"}]}`, item2, item1, loser)))
	m, err := Load(ms, "aip.json")
	if err != nil {
		t.Fatal(err)
	}
	result, err := e.restorer.Run(e.c, m)
	if err == nil || result.Failed != 1 {
		t.Errorf("Received %+v, %v", result, err)
	}
	if obj := e.provider.Resolve(e.c, "1234/400"); obj == nil || obj.ID != item2 {
		t.Errorf("canonical resolves to %v, expected %s", obj, item2)
	}
	// the failed entry was rolled back, including its new object
	_, err = e.provider.Objects.Find(e.c, loser)
	if !errors.Is(err, content.ErrNoObject) {
		t.Errorf("Received %v, expected ErrNoObject", err)
	}
	if e.c.Tx() != nil {
		t.Errorf("transaction left open")
	}
}
