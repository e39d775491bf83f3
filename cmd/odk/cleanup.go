package main

import (
	"fmt"
	"time"

	"github.com/mercadia/orderdesk/internal/session"
	"github.com/spf13/cobra"
)

func newCleanupCmd() *cobra.Command {
	var (
		configPath string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Close all expired order sessions",
		Long:  "Runs one timeout sweep: every expired ACTIVE or COLLECTING session is closed. Safe to run repeatedly.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			if dryRun {
				rep, err := session.Report(gormDB, now)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d expired session(s) would be closed\n", rep.ExpiredCount)
				for status, count := range rep.StatusCounts {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d\n", status, count)
				}
				return nil
			}

			closed, err := session.Sweep(gormDB, now)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Closed %d expired session(s)\n", closed)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "orderdesk.yaml", "path to Orderdesk config file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be closed without writing")
	return cmd
}
