package main

import (
	"fmt"

	"github.com/sanity-io/litter"
	"github.com/spf13/cobra"

	"github.com/ndlib/vhandle/core"
	"github.com/ndlib/vhandle/internal/app"
)

var createCmd = &cobra.Command{
	Use:   "create <type>",
	Short: "create an empty object (item, collection or community)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, err := core.ParseObjectType(args[0])
		if err != nil {
			return err
		}
		return withApp(func(a *app.App, c *core.Context) error {
			obj, err := a.Provider.Objects.Create(c, typ)
			if err != nil {
				return err
			}
			fmt.Println(obj.ID)
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version <item-id> [summary]",
	Short: "make a new item as the next version of an item",
	Long: `version creates a new empty item and records it as the next version
in the history of the given item. Register the new item afterwards to give
it a handle.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var summary string
		if len(args) > 1 {
			summary = args[1]
		}
		return withApp(func(a *app.App, c *core.Context) error {
			of, err := object(a, c, args[0])
			if err != nil {
				return err
			}
			obj, err := a.Provider.Objects.Create(c, core.TypeItem)
			if err != nil {
				return err
			}
			v, err := a.Provider.Versions.NewVersion(c, of.ID, obj.ID, summary)
			if err != nil {
				return err
			}
			fmt.Printf("%s\tversion %d\n", obj.ID, v.Number)
			return nil
		})
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump <id>",
	Short: "print an object with its handles and version history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App, c *core.Context) error {
			obj, err := object(a, c, args[0])
			if err != nil {
				return err
			}
			handles, err := a.Provider.Handles.FindAll(c, obj.Ref())
			if err != nil {
				return err
			}
			fmt.Println(litter.Sdump(obj))
			fmt.Println("handles:", litter.Sdump(handles))
			if !obj.IsItem() {
				return nil
			}
			h, err := a.Provider.Versions.FindByItem(c, obj.ID)
			if err != nil || h == nil {
				return err
			}
			versions, err := a.Provider.Versions.Versions(c, h)
			if err != nil {
				return err
			}
			fmt.Println("versions:", litter.Sdump(versions))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(createCmd, versionCmd, dumpCmd)
}
