// Package core holds the pieces shared by every other package: the unit of
// work a request runs in, references to repository objects, caller roles and
// the authorization hook.
package core

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// Context is the unit of work an operation runs in. It carries the acting
// user and role, an optional database transaction, and the privilege
// elevation state. A Context is not safe for concurrent use; each request
// gets its own.
type Context struct {
	context.Context

	User string
	Role Role

	tx       *sql.Tx
	elevated int
}

// NewContext returns a Context for the given user acting with role.
func NewContext(parent context.Context, user string, role Role) *Context {
	if parent == nil {
		parent = context.Background()
	}
	return &Context{Context: parent, User: user, Role: role}
}

// Background returns an administrative Context with no transaction. Tools
// and tests use it.
func Background() *Context {
	return NewContext(context.Background(), "system", RoleAdmin)
}

// Querier is the part of *sql.DB and *sql.Tx the SQL stores use.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var (
	ErrTxActive   = errors.New("transaction already active")
	ErrTxInactive = errors.New("no active transaction")
)

// Begin starts a transaction on db. Every SQL store used with this Context
// will run inside it until Commit or Abort is called.
func (c *Context) Begin(db *sql.DB) error {
	if c.tx != nil {
		return ErrTxActive
	}
	tx, err := db.BeginTx(c, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	c.tx = tx
	return nil
}

// Commit commits the active transaction. It is a no-op when none is active.
func (c *Context) Commit() error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Commit()
	c.tx = nil
	return errors.Wrap(err, "commit")
}

// Abort rolls back the active transaction, if any.
func (c *Context) Abort() {
	if c.tx == nil {
		return
	}
	_ = c.tx.Rollback()
	c.tx = nil
}

// Tx returns the active transaction, or nil.
func (c *Context) Tx() *sql.Tx {
	return c.tx
}

// Querier returns the active transaction if there is one, and db otherwise.
func (c *Context) Querier(db *sql.DB) Querier {
	if c.tx != nil {
		return c.tx
	}
	return db
}
