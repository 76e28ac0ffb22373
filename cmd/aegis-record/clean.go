package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/praetorian-inc/aegis-recorder/internal/adapters/realclock"
	"github.com/praetorian-inc/aegis-recorder/internal/adapters/realfs"
	"github.com/praetorian-inc/aegis-recorder/internal/library"
)

func newCleanCmd() *cobra.Command {
	var olderThan int
	var yes bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete recordings past the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			days := olderThan
			if !cmd.Flags().Changed("older-than") && cfg.Recording.RetentionDays > 0 {
				days = cfg.Recording.RetentionDays
			}

			if !yes {
				var confirmed bool
				form := huh.NewForm(huh.NewGroup(
					huh.NewConfirm().
						Title(fmt.Sprintf("Delete recordings older than %d days?", days)).
						Value(&confirmed),
				))
				if err := form.Run(); err != nil {
					return err
				}
				if !confirmed {
					return nil
				}
			}

			deleted, err := library.Prune(
				realfs.New(),
				realclock.New(),
				recordingsRoot(),
				time.Duration(days)*24*time.Hour,
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d recordings\n", len(deleted))
			return nil
		},
	}

	cmd.Flags().IntVar(&olderThan, "older-than", 30, "retention window in days")
	cmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")

	return cmd
}
