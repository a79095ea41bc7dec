package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ndlib/vhandle/core"
	"github.com/ndlib/vhandle/internal/app"
)

var mintCmd = &cobra.Command{
	Use:   "mint <id>",
	Short: "give an object a handle without touching its metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App, c *core.Context) error {
			obj, err := object(a, c, args[0])
			if err != nil {
				return err
			}
			h, err := a.Provider.Mint(c, obj)
			if err != nil {
				return err
			}
			printHandle(a, obj, h)
			return nil
		})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <id>",
	Short: "mint a handle for an object and record it in the metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App, c *core.Context) error {
			obj, err := object(a, c, args[0])
			if err != nil {
				return err
			}
			h, err := a.Provider.Register(c, obj)
			if err != nil {
				return err
			}
			printHandle(a, obj, h)
			return nil
		})
	},
}

var restoreOneCmd = &cobra.Command{
	Use:   "restore-one <id> <handle>",
	Short: "register an object under a handle it had before",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App, c *core.Context) error {
			obj, err := object(a, c, args[0])
			if err != nil {
				return err
			}
			if err := a.Provider.RegisterAs(c, obj, args[1]); err != nil {
				return err
			}
			printHandle(a, obj, args[1])
			return nil
		})
	},
}

var reserveCmd = &cobra.Command{
	Use:   "reserve <id> <handle>",
	Short: "bind a handle to an object",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App, c *core.Context) error {
			obj, err := object(a, c, args[0])
			if err != nil {
				return err
			}
			return a.Provider.Reserve(c, obj, args[1])
		})
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <handle>",
	Short: "print the object a handle names",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App, c *core.Context) error {
			obj := a.Provider.Resolve(c, args[0])
			if obj == nil {
				return errors.Errorf("%s does not resolve", args[0])
			}
			fmt.Printf("%s\t%s\n", obj.ID, obj.Type)
			return nil
		})
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <id>",
	Short: "print the handle of an object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App, c *core.Context) error {
			obj, err := object(a, c, args[0])
			if err != nil {
				return err
			}
			h, err := a.Provider.Lookup(c, obj)
			if err != nil {
				return err
			}
			printHandle(a, obj, h)
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "update handles for an object about to be removed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App, c *core.Context) error {
			obj, err := object(a, c, args[0])
			if err != nil {
				return err
			}
			return a.Provider.Delete(c, obj)
		})
	},
}

func init() {
	rootCmd.AddCommand(mintCmd, registerCmd, restoreOneCmd, reserveCmd,
		resolveCmd, lookupCmd, deleteCmd)
}
