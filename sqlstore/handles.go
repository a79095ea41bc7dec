package sqlstore

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ndlib/vhandle/content"
	"github.com/ndlib/vhandle/core"
	"github.com/ndlib/vhandle/handle"
	"github.com/ndlib/vhandle/versioning"
)

// sequence names
const (
	seqHandleRow    = "handle_row"
	seqHandleSuffix = "handle_suffix"
	seqHistory      = "history"
	seqVersion      = "version"
)

// expected reports whether err is a domain error callers deal with.
func expected(err error) bool {
	return errors.Is(err, handle.ErrNotFound) ||
		errors.Is(err, handle.ErrExists) ||
		errors.Is(err, content.ErrNoObject) ||
		errors.Is(err, versioning.ErrNoVersion) ||
		errors.Is(err, versioning.ErrDuplicate)
}

// HandleStore is the handle table.
type HandleStore struct {
	*DB
}

var _ handle.Store = &HandleStore{}

func (s *HandleStore) Put(c *core.Context, h string, ref core.Ref) error {
	return s.withTx(c, "put handle", func(q core.Querier) error {
		_, err := s.get(c, q, h)
		if err == nil {
			return errors.Wrap(handle.ErrExists, h)
		}
		if !errors.Is(err, handle.ErrNotFound) {
			return err
		}
		row, err := s.nextVal(c, q, seqHandleRow)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(c, s.q.putHandle, h, ref.ID.String(), int64(ref.Type), row)
		return err
	})
}

func (s *HandleStore) Get(c *core.Context, h string) (core.Ref, error) {
	ref, err := s.get(c, s.querier(c), h)
	return ref, s.capture("get handle", err)
}

func (s *HandleStore) get(c *core.Context, q core.Querier, h string) (core.Ref, error) {
	var id string
	var typ int64
	err := q.QueryRowContext(c, s.q.getHandle, h).Scan(&id, &typ)
	if err == sql.ErrNoRows {
		return core.Ref{}, errors.Wrap(handle.ErrNotFound, h)
	}
	if err != nil {
		return core.Ref{}, err
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return core.Ref{}, errors.Wrapf(err, "handle %s", h)
	}
	return core.Ref{ID: u, Type: core.ObjectType(typ)}, nil
}

func (s *HandleStore) Move(c *core.Context, h string, ref core.Ref) error {
	return s.withTx(c, "move handle", func(q core.Querier) error {
		// MySQL reports zero affected rows for an update that changes
		// nothing, so test for existence first
		if _, err := s.get(c, q, h); err != nil {
			return err
		}
		_, err := q.ExecContext(c, s.q.moveHandle, ref.ID.String(), int64(ref.Type), h)
		return err
	})
}

func (s *HandleStore) Handles(c *core.Context, id uuid.UUID) ([]string, error) {
	rows, err := s.querier(c).QueryContext(c, s.q.listHandles, id.String())
	if err != nil {
		return nil, s.capture("list handles", err)
	}
	defer rows.Close()
	var result []string
	for rows.Next() {
		// QL can only sort on a selected column
		var h string
		var seq int64
		if err := rows.Scan(&h, &seq); err != nil {
			return nil, s.capture("list handles", err)
		}
		result = append(result, h)
	}
	return result, s.capture("list handles", rows.Err())
}

func (s *HandleStore) Delete(c *core.Context, h string) error {
	return s.withTx(c, "delete handle", func(q core.Querier) error {
		_, err := q.ExecContext(c, s.q.deleteHandle, h)
		return err
	})
}

func (s *HandleStore) NextID(c *core.Context) (int64, error) {
	var n int64
	err := s.withTx(c, "next handle", func(q core.Querier) error {
		var err error
		n, err = s.nextVal(c, q, seqHandleSuffix)
		return err
	})
	return n, err
}
