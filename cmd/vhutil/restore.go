package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ndlib/vhandle/core"
	"github.com/ndlib/vhandle/restore"
	"github.com/ndlib/vhandle/store"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <location> <key>",
	Short: "replay a handle manifest",
	Long: `restore reads the manifest <key> from <location> and registers every
entry under its handle, creating missing objects. The location is a
directory, a file: URL, or an s3: URL such as s3:/bucket/prefix. Each entry
is committed on its own; failures are listed at the end.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := store.ParseLocation(args[0], "")
		if err != nil {
			return err
		}
		m, err := restore.Load(src, args[1])
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		r := &restore.Restorer{
			Provider: a.Provider,
			Objects:  a.Provider.Objects,
			DB:       a.SQL(),
		}
		result, err := r.Run(core.NewContext(context.Background(), user, core.RoleAdmin), m)
		fmt.Printf("restored %d, failed %d\n", result.Restored, result.Failed)
		return err
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}
