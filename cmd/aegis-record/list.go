package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/aegis-recorder/internal/adapters/realfs"
	"github.com/praetorian-inc/aegis-recorder/internal/library"
)

func newListCmd() *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored session recordings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := recordingsRoot()
			names, err := library.List(realfs.New().DirFS(root), pattern)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(root, name))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", "", `glob filter, e.g. "2026-08-*/demo_*.cast" (default `+library.DefaultPattern+`)`)

	return cmd
}
