// Package app opens the stores named in a configuration and wires the
// identifier provider on top of them. Both commands start this way.
package app

import (
	"database/sql"

	"github.com/getsentry/raven-go"
	"github.com/pkg/errors"

	"github.com/ndlib/vhandle/config"
	"github.com/ndlib/vhandle/content"
	"github.com/ndlib/vhandle/handle"
	"github.com/ndlib/vhandle/identifier"
	"github.com/ndlib/vhandle/internal/log"
	"github.com/ndlib/vhandle/sqlstore"
	"github.com/ndlib/vhandle/versioning"
)

// App is an opened database and the provider using it.
type App struct {
	Config   config.Config
	DB       *sqlstore.DB
	Provider *identifier.VersionedProvider
}

// Open sets up logging and error reporting, opens the configured database
// and builds the provider.
func Open(cfg config.Config) (*App, error) {
	if err := log.Setup(cfg.LogConfig()); err != nil {
		return nil, err
	}
	if cfg.Sentry.DSN != "" {
		if err := raven.SetDSN(cfg.Sentry.DSN); err != nil {
			return nil, errors.Wrap(err, "sentry")
		}
	}

	var db *sqlstore.DB
	var err error
	if cfg.Database.MySQL != "" {
		log.Info("Using MySQL")
		db, err = sqlstore.OpenMySQL(cfg.Database.MySQL)
	} else {
		log.Infof("Using internal database at %s", cfg.Database.QL)
		db, err = sqlstore.OpenQL(cfg.Database.QL)
	}
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	p, err := identifier.NewVersionedProvider(
		handle.NewService(db.Handles(), cfg.Parser()),
		versioning.NewService(db.Versions()),
		content.NewService(db.Objects()),
		cfg.Versioning.Enabled)
	if err != nil {
		db.Close()
		return nil, err
	}
	log.WithField("prefix", cfg.Handle.Prefix).
		WithField("dialect", db.Dialect()).
		Info("handle provider ready")
	return &App{Config: cfg, DB: db, Provider: p}, nil
}

// SQL returns the underlying database handle for units of work.
func (a *App) SQL() *sql.DB {
	return a.DB.SQL()
}

func (a *App) Close() error {
	return a.DB.Close()
}
