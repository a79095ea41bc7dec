package sqlstore

import (
	"database/sql"

	_ "github.com/cznic/ql/driver"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// The QL schema. QL has no auto increment columns, so row order and ids come
// from the sequences table.
const qlInit = `
	CREATE TABLE IF NOT EXISTS sequences (
		name string,
		value int64
	);
	CREATE UNIQUE INDEX IF NOT EXISTS sequencename ON sequences (name);

	CREATE TABLE IF NOT EXISTS handles (
		handle string,
		object string,
		otype int64,
		seq int64
	);
	CREATE UNIQUE INDEX IF NOT EXISTS handlehandle ON handles (handle);
	CREATE INDEX IF NOT EXISTS handleobject ON handles (object);

	CREATE TABLE IF NOT EXISTS objects (
		id string,
		otype int64,
		updated time
	);
	CREATE UNIQUE INDEX IF NOT EXISTS objectid ON objects (id);

	CREATE TABLE IF NOT EXISTS metadata (
		object string,
		ord int64,
		field_schema string,
		field_element string,
		field_qualifier string,
		lang string,
		value string,
		authority string,
		confidence int64,
		place int64
	);
	CREATE INDEX IF NOT EXISTS metadataobject ON metadata (object);

	CREATE TABLE IF NOT EXISTS histories (
		id int64
	);

	CREATE TABLE IF NOT EXISTS versions (
		id int64,
		history int64,
		item string,
		number int64,
		created time,
		summary string,
		creator string
	);
	CREATE INDEX IF NOT EXISTS versionitem ON versions (item);
	CREATE INDEX IF NOT EXISTS versionhistory ON versions (history);
`

var qlQueries = queries{
	nextSeq:   `UPDATE sequences SET value = value + 1 WHERE name == ?1`,
	getSeq:    `SELECT value FROM sequences WHERE name == ?1`,
	insertSeq: `INSERT INTO sequences (name, value) VALUES (?1, 1)`,

	putHandle:    `INSERT INTO handles (handle, object, otype, seq) VALUES (?1, ?2, ?3, ?4)`,
	getHandle:    `SELECT object, otype FROM handles WHERE handle == ?1`,
	moveHandle:   `UPDATE handles SET object = ?1, otype = ?2 WHERE handle == ?3`,
	listHandles:  `SELECT handle, seq FROM handles WHERE object == ?1 ORDER BY seq`,
	deleteHandle: `DELETE FROM handles WHERE handle == ?1`,

	countObject:    `SELECT count(*) FROM objects WHERE id == ?1`,
	insertObject:   `INSERT INTO objects (id, otype, updated) VALUES (?1, ?2, ?3)`,
	updateObject:   `UPDATE objects SET otype = ?1, updated = ?2 WHERE id == ?3`,
	getObject:      `SELECT otype FROM objects WHERE id == ?1`,
	clearMetadata:  `DELETE FROM metadata WHERE object == ?1`,
	insertMetadata: `INSERT INTO metadata (object, ord, field_schema, field_element, field_qualifier, lang, value, authority, confidence, place) VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?10)`,
	getMetadata: `
		SELECT ord, field_schema, field_element, field_qualifier, lang, value, authority, confidence, place
		FROM metadata
		WHERE object == ?1
		ORDER BY ord`,

	insertHistory:  `INSERT INTO histories (id) VALUES (?1)`,
	countDuplicate: `SELECT count(*) FROM versions WHERE item == ?1 OR (history == ?2 AND number == ?3)`,
	insertVersion:  `INSERT INTO versions (id, history, item, number, created, summary, creator) VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7)`,
	versionByItem: `
		SELECT id, history, item, number, created, summary, creator
		FROM versions
		WHERE item == ?1
		LIMIT 1`,
	listVersions: `
		SELECT id, history, item, number, created, summary, creator
		FROM versions
		WHERE history == ?1
		ORDER BY number DESC`,
	deleteVersion: `DELETE FROM versions WHERE id == ?1`,
}

// OpenQL opens the QL database in filename, creating the tables if needed.
// The filename "memory" keeps everything in memory; each such database is
// private to the caller.
func OpenQL(filename string) (*DB, error) {
	var db *sql.DB
	var err error
	if filename == "memory" {
		db, err = sql.Open("ql-mem", "mem-"+uuid.NewString()+".db")
	} else {
		db, err = sql.Open("ql", filename)
	}
	if err != nil {
		return nil, errors.Wrap(err, "open ql")
	}
	if err = performExec(db, qlInit); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "init ql")
	}
	return &DB{db: db, dialect: "ql", q: qlQueries}, nil
}

// performExec runs query in a transaction of its own. QL only accepts
// changes inside a transaction.
func performExec(db *sql.DB, query string, args ...interface{}) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	_, err = tx.Exec(query, args...)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
