// Package sqlstore keeps handles, objects and version histories in a SQL
// database. Two dialects are supported: the embedded QL database, intended
// for development and tests, and MySQL for production.
//
// Every store method runs inside the transaction of its core.Context when
// one is active. Otherwise reads go straight to the database and writes get
// a transaction of their own.
package sqlstore

import (
	"database/sql"

	raven "github.com/getsentry/raven-go"
	"github.com/pkg/errors"

	"github.com/ndlib/vhandle/core"
)

// DB is an open handle database.
type DB struct {
	db      *sql.DB
	dialect string
	q       queries
}

// queries holds the statements of one dialect. Arguments are always passed
// in the same order, so the QL and MySQL versions differ only in syntax.
type queries struct {
	nextSeq   string // name
	getSeq    string // name
	insertSeq string // name

	putHandle    string // handle, object, otype, seq
	getHandle    string // handle
	moveHandle   string // object, otype, handle
	listHandles  string // object
	deleteHandle string // handle

	countObject    string // id
	insertObject   string // id, otype, updated
	updateObject   string // otype, updated, id
	getObject      string // id
	clearMetadata  string // object
	insertMetadata string // object, ord, schema, element, qualifier, lang, value, authority, confidence, place
	getMetadata    string // object

	insertHistory  string // id
	countDuplicate string // item, history, number
	insertVersion  string // id, history, item, number, created, summary, creator
	versionByItem  string // item
	listVersions   string // history
	deleteVersion  string // id
}

// SQL returns the underlying database, to begin transactions on.
func (d *DB) SQL() *sql.DB {
	return d.db
}

// Dialect is either "ql" or "mysql".
func (d *DB) Dialect() string {
	return d.dialect
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Handles returns the handle table.
func (d *DB) Handles() *HandleStore {
	return &HandleStore{d}
}

// Objects returns the object and metadata tables.
func (d *DB) Objects() *ObjectStore {
	return &ObjectStore{d}
}

// Versions returns the version history tables.
func (d *DB) Versions() *VersionStore {
	return &VersionStore{d}
}

// querier returns the Context's transaction, or the database when there is
// none.
func (d *DB) querier(c *core.Context) core.Querier {
	return c.Querier(d.db)
}

// withTx runs f inside the Context's transaction, or inside a new one which
// is committed if f succeeds. Failures are reported to Sentry.
func (d *DB) withTx(c *core.Context, op string, f func(q core.Querier) error) error {
	if tx := c.Tx(); tx != nil {
		return d.capture(op, f(tx))
	}
	tx, err := d.db.BeginTx(c, nil)
	if err != nil {
		return d.capture(op, err)
	}
	err = f(tx)
	if err != nil {
		_ = tx.Rollback()
		return d.capture(op, err)
	}
	return d.capture(op, tx.Commit())
}

// capture sends unexpected failures to Sentry. Domain errors callers are
// meant to handle are passed through silently.
func (d *DB) capture(op string, err error) error {
	if err == nil || expected(err) {
		return err
	}
	raven.CaptureError(err, map[string]string{"dialect": d.dialect, "op": op})
	return errors.Wrap(err, op)
}

// nextVal advances the named sequence and returns its new value. Sequences
// start at 1.
func (d *DB) nextVal(c *core.Context, q core.Querier, name string) (int64, error) {
	result, err := q.ExecContext(c, d.q.nextSeq, name)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		_, err = q.ExecContext(c, d.q.insertSeq, name)
		return 1, err
	}
	var v int64
	err = q.QueryRowContext(c, d.q.getSeq, name).Scan(&v)
	return v, err
}
