package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ndlib/vhandle/config"
	"github.com/ndlib/vhandle/content"
	"github.com/ndlib/vhandle/core"
	"github.com/ndlib/vhandle/internal/app"
)

var (
	configFile string
	verbose    bool
	user       string
)

var rootCmd = &cobra.Command{
	Use:   "vhutil",
	Short: "inspect and edit versioned handles",
	Long: `vhutil works directly on the handle database named in the
configuration file. Every command that changes something runs in one
transaction.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "configuration file (TOML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	rootCmd.PersistentFlags().StringVar(&user, "user", "vhutil", "user name recorded on new versions")
}

func openApp() (*app.App, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	} else if cfg.Log.Level == "info" {
		cfg.Log.Level = "warn"
	}
	return app.Open(cfg)
}

// withApp opens the database and runs f in a unit of work acting as an
// administrator. The work is committed only if f succeeds.
func withApp(f func(a *app.App, c *core.Context) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	c := core.NewContext(context.Background(), user, core.RoleAdmin)
	if err := c.Begin(a.SQL()); err != nil {
		return err
	}
	if err := f(a, c); err != nil {
		c.Abort()
		return err
	}
	return c.Commit()
}

// object loads the object with the id in arg.
func object(a *app.App, c *core.Context, arg string) (*content.Object, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return nil, errors.Wrapf(err, "object id %q", arg)
	}
	return a.Provider.Objects.Find(c, id)
}

func printHandle(a *app.App, obj *content.Object, h string) {
	fmt.Printf("%s\t%s\t%s\n", obj.ID, h, a.Provider.Handles.CanonicalForm(h))
}
