package sqlstore

import (
	"github.com/BurntSushi/migration"

	"github.com/ndlib/vhandle/internal/log"
)

// dbVersion adapts the migration version functions to the table layout we
// keep in MySQL. It is a lightly modified copy of the default functions in
// github.com/BurntSushi/migration.
type dbVersion struct {
	// SQL to get the version of this db, returns one row and one column
	GetSQL string
	// SQL to insert a new version of this db. takes one parameter, the new
	// version
	SetSQL string
	// the SQL to create the version table for this db
	CreateSQL string
}

func (d dbVersion) Get(tx migration.LimitedTx) (int, error) {
	var version int
	err := tx.QueryRow(d.GetSQL).Scan(&version)
	if err != nil {
		// we assume an error means there is no migration table
		log.Debugf("schema version: %v", err)
		return 0, nil
	}
	return version, nil
}

func (d dbVersion) Set(tx migration.LimitedTx, version int) error {
	if _, err := tx.Exec(d.SetSQL, version); err == nil {
		return nil
	}
	if _, err := tx.Exec(d.CreateSQL); err != nil {
		return err
	}
	_, err := tx.Exec(d.SetSQL, version)
	return err
}

// execlist exec's each statement in order, stopping at the first error.
// The mysql driver does not take compound statements.
func execlist(tx migration.LimitedTx, stmts []string) error {
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
