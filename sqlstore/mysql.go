package sqlstore

import (
	"github.com/BurntSushi/migration"
	"github.com/pkg/errors"
)

// List of migrations to perform. Add new ones to the end.
// DO NOT change the order of items already in this list.
var mysqlMigrations = []migration.Migrator{
	mysqlschema1,
	mysqlschema2,
}

var mysqlVersioning = dbVersion{
	GetSQL:    `SELECT max(version) FROM migration_version`,
	SetSQL:    `INSERT INTO migration_version (version, applied) VALUES (?, now())`,
	CreateSQL: `CREATE TABLE migration_version (version INTEGER, applied datetime)`,
}

var mysqlQueries = queries{
	nextSeq:   `UPDATE sequences SET value = value + 1 WHERE name = ?`,
	getSeq:    `SELECT value FROM sequences WHERE name = ?`,
	insertSeq: `INSERT INTO sequences (name, value) VALUES (?, 1)`,

	putHandle:    `INSERT INTO handles (handle, object, otype, seq) VALUES (?, ?, ?, ?)`,
	getHandle:    `SELECT object, otype FROM handles WHERE handle = ?`,
	moveHandle:   `UPDATE handles SET object = ?, otype = ? WHERE handle = ?`,
	listHandles:  `SELECT handle, seq FROM handles WHERE object = ? ORDER BY seq`,
	deleteHandle: `DELETE FROM handles WHERE handle = ?`,

	countObject:    `SELECT count(*) FROM objects WHERE id = ?`,
	insertObject:   `INSERT INTO objects (id, otype, updated) VALUES (?, ?, ?)`,
	updateObject:   `UPDATE objects SET otype = ?, updated = ? WHERE id = ?`,
	getObject:      `SELECT otype FROM objects WHERE id = ?`,
	clearMetadata:  `DELETE FROM metadata WHERE object = ?`,
	insertMetadata: `INSERT INTO metadata (object, ord, field_schema, field_element, field_qualifier, lang, value, authority, confidence, place) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	getMetadata: `
		SELECT ord, field_schema, field_element, field_qualifier, lang, value, authority, confidence, place
		FROM metadata
		WHERE object = ?
		ORDER BY ord`,

	insertHistory:  `INSERT INTO histories (id) VALUES (?)`,
	countDuplicate: `SELECT count(*) FROM versions WHERE item = ? OR (history = ? AND number = ?)`,
	insertVersion:  `INSERT INTO versions (id, history, item, number, created, summary, creator) VALUES (?, ?, ?, ?, ?, ?, ?)`,
	versionByItem: `
		SELECT id, history, item, number, created, summary, creator
		FROM versions
		WHERE item = ?
		LIMIT 1`,
	listVersions: `
		SELECT id, history, item, number, created, summary, creator
		FROM versions
		WHERE history = ?
		ORDER BY number DESC`,
	deleteVersion: `DELETE FROM versions WHERE id = ?`,
}

// OpenMySQL connects to a MySQL database and brings its schema up to date.
func OpenMySQL(dial string) (*DB, error) {
	db, err := migration.OpenWith(
		"mysql",
		dial,
		mysqlMigrations,
		mysqlVersioning.Get,
		mysqlVersioning.Set)
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	return &DB{db: db, dialect: "mysql", q: mysqlQueries}, nil
}

// database migrations. each one is a go function. Add them to the
// list mysqlMigrations at top of this file for them to be run.

func mysqlschema1(tx migration.LimitedTx) error {
	var s = []string{
		`CREATE TABLE IF NOT EXISTS sequences (
		name varchar(64) PRIMARY KEY,
		value bigint)`,

		`CREATE TABLE IF NOT EXISTS handles (
		handle varchar(255) PRIMARY KEY,
		object char(36),
		otype int,
		seq bigint,
		INDEX handles_object (object, seq))`,

		`CREATE TABLE IF NOT EXISTS histories (
		id bigint PRIMARY KEY)`,

		`CREATE TABLE IF NOT EXISTS versions (
		id bigint PRIMARY KEY,
		history bigint,
		item char(36),
		number int,
		created datetime,
		summary text,
		creator varchar(255),
		UNIQUE INDEX versions_item (item),
		UNIQUE INDEX versions_number (history, number))`,
	}
	return execlist(tx, s)
}

func mysqlschema2(tx migration.LimitedTx) error {
	var s = []string{
		`CREATE TABLE IF NOT EXISTS objects (
		id char(36) PRIMARY KEY,
		otype int,
		updated datetime)`,

		`CREATE TABLE IF NOT EXISTS metadata (
		id int PRIMARY KEY AUTO_INCREMENT,
		object char(36),
		ord int,
		field_schema varchar(64),
		field_element varchar(64),
		field_qualifier varchar(64),
		lang varchar(32),
		value LONGTEXT,
		authority varchar(255),
		confidence int,
		place int,
		INDEX metadata_object (object, ord))`,
	}
	return execlist(tx, s)
}
