package sqlstore

import (
	"database/sql"

	// no _ in import mysql since we need mysql.NullTime
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ndlib/vhandle/core"
	"github.com/ndlib/vhandle/versioning"
)

// VersionStore keeps version histories.
type VersionStore struct {
	*DB
}

var _ versioning.Store = &VersionStore{}

func (s *VersionStore) CreateHistory(c *core.Context) (*versioning.History, error) {
	var h versioning.History
	err := s.withTx(c, "create history", func(q core.Querier) error {
		var err error
		h.ID, err = s.nextVal(c, q, seqHistory)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(c, s.q.insertHistory, h.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *VersionStore) VersionByItem(c *core.Context, item uuid.UUID) (*versioning.Version, error) {
	row := s.querier(c).QueryRowContext(c, s.q.versionByItem, item.String())
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(versioning.ErrNoVersion, item.String())
	}
	return v, s.capture("version by item", err)
}

func (s *VersionStore) Versions(c *core.Context, history int64) ([]*versioning.Version, error) {
	rows, err := s.querier(c).QueryContext(c, s.q.listVersions, history)
	if err != nil {
		return nil, s.capture("list versions", err)
	}
	defer rows.Close()
	var result []*versioning.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, s.capture("list versions", err)
		}
		result = append(result, v)
	}
	return result, s.capture("list versions", rows.Err())
}

func (s *VersionStore) AddVersion(c *core.Context, v *versioning.Version) error {
	return s.withTx(c, "add version", func(q core.Querier) error {
		var n int64
		err := q.QueryRowContext(c, s.q.countDuplicate, v.Item.String(), v.History, int64(v.Number)).Scan(&n)
		if err != nil {
			return err
		}
		if n > 0 {
			return errors.Wrapf(versioning.ErrDuplicate, "history %d number %d", v.History, v.Number)
		}
		id, err := s.nextVal(c, q, seqVersion)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(c, s.q.insertVersion,
			id, v.History, v.Item.String(), int64(v.Number), v.Date, v.Summary, v.Creator)
		if err == nil {
			v.ID = id
		}
		return err
	})
}

func (s *VersionStore) DeleteVersion(c *core.Context, id int64) error {
	return s.withTx(c, "delete version", func(q core.Querier) error {
		_, err := q.ExecContext(c, s.q.deleteVersion, id)
		return err
	})
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanVersion(r scanner) (*versioning.Version, error) {
	var v versioning.Version
	var item string
	var number int64
	var created mysql.NullTime
	err := r.Scan(&v.ID, &v.History, &item, &number, &created, &v.Summary, &v.Creator)
	if err != nil {
		return nil, err
	}
	v.Item, err = uuid.Parse(item)
	if err != nil {
		return nil, errors.Wrapf(err, "version %d", v.ID)
	}
	v.Number = int(number)
	if created.Valid {
		v.Date = created.Time
	}
	return &v, nil
}
