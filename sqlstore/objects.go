package sqlstore

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ndlib/vhandle/content"
	"github.com/ndlib/vhandle/core"
)

// ObjectStore keeps objects and their metadata values.
type ObjectStore struct {
	*DB
}

var _ content.Store = &ObjectStore{}

func (s *ObjectStore) Load(c *core.Context, id uuid.UUID) (*content.Object, error) {
	obj, err := s.load(c, s.querier(c), id)
	return obj, s.capture("load object", err)
}

func (s *ObjectStore) load(c *core.Context, q core.Querier, id uuid.UUID) (*content.Object, error) {
	var typ int64
	err := q.QueryRowContext(c, s.q.getObject, id.String()).Scan(&typ)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(content.ErrNoObject, id.String())
	}
	if err != nil {
		return nil, err
	}
	obj := &content.Object{ID: id, Type: core.ObjectType(typ)}

	rows, err := q.QueryContext(c, s.q.getMetadata, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var v content.MetadataValue
		var ord, confidence, place int64
		err := rows.Scan(&ord, &v.Field.Schema, &v.Field.Element, &v.Field.Qualifier,
			&v.Language, &v.Value, &v.Authority, &confidence, &place)
		if err != nil {
			return nil, err
		}
		v.Confidence = int(confidence)
		v.Place = int(place)
		obj.Metadata = append(obj.Metadata, v)
	}
	return obj, rows.Err()
}

// Save writes obj and replaces all of its metadata values.
func (s *ObjectStore) Save(c *core.Context, obj *content.Object) error {
	return s.withTx(c, "save object", func(q core.Querier) error {
		id := obj.ID.String()
		var n int64
		if err := q.QueryRowContext(c, s.q.countObject, id).Scan(&n); err != nil {
			return err
		}
		now := time.Now()
		var err error
		if n == 0 {
			_, err = q.ExecContext(c, s.q.insertObject, id, int64(obj.Type), now)
		} else {
			_, err = q.ExecContext(c, s.q.updateObject, int64(obj.Type), now, id)
		}
		if err != nil {
			return err
		}
		if _, err = q.ExecContext(c, s.q.clearMetadata, id); err != nil {
			return err
		}
		for i, v := range obj.Metadata {
			_, err = q.ExecContext(c, s.q.insertMetadata, id, int64(i),
				v.Field.Schema, v.Field.Element, v.Field.Qualifier,
				v.Language, v.Value, v.Authority, int64(v.Confidence), int64(v.Place))
			if err != nil {
				return errors.Wrapf(err, "metadata %s", v.Field)
			}
		}
		return nil
	})
}
