package restore

import (
	"database/sql"

	raven "github.com/getsentry/raven-go"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/ndlib/vhandle/content"
	"github.com/ndlib/vhandle/core"
	"github.com/ndlib/vhandle/identifier"
	"github.com/ndlib/vhandle/internal/log"
)

// Restorer replays manifests through an identifier provider.
type Restorer struct {
	Provider identifier.Provider
	Objects  *content.Service

	// DB, if set, gives every entry a transaction of its own, so a failed
	// entry leaves nothing behind.
	DB *sql.DB
}

// Result counts the outcome of a run.
type Result struct {
	Restored int
	Failed   int
}

// Run replays the entries of m in lineage order. A failing entry does not
// stop the run; every failure is collected into the returned error.
func (r *Restorer) Run(c *core.Context, m *Manifest) (Result, error) {
	var result Result
	var errs *multierror.Error
	for _, e := range Order(m.Entries) {
		err := r.one(c, e)
		if err != nil {
			result.Failed++
			log.WithField("object", e.ID).Errorf("restore %s: %v", e.Handle, err)
			raven.CaptureError(err, map[string]string{"object": e.ID.String(), "handle": e.Handle})
			errs = multierror.Append(errs, errors.Wrapf(err, "%s %s", e.ID, e.Handle))
			continue
		}
		result.Restored++
	}
	log.Infof("restore: %d restored, %d failed", result.Restored, result.Failed)
	return result, errs.ErrorOrNil()
}

// one restores a single entry, inside its own transaction when a database
// is set.
func (r *Restorer) one(c *core.Context, e Entry) error {
	if r.DB == nil {
		return r.apply(c, e)
	}
	if err := c.Begin(r.DB); err != nil {
		return err
	}
	if err := r.apply(c, e); err != nil {
		c.Abort()
		return err
	}
	return c.Commit()
}

func (r *Restorer) apply(c *core.Context, e Entry) error {
	obj, err := r.Objects.Ensure(c, e.ID, e.Type)
	if err != nil {
		return err
	}
	if obj.Type != e.Type {
		return errors.Errorf("object is a %s, manifest says %s", obj.Type, e.Type)
	}
	if e.Handle == "" {
		_, err = r.Provider.Register(c, obj)
		return err
	}
	return r.Provider.RegisterAs(c, obj, e.Handle)
}
