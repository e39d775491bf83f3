package main

import (
	"fmt"

	"github.com/mercadia/orderdesk/internal/config"
	"github.com/mercadia/orderdesk/internal/db"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// connectFromConfig loads the config file and opens the database connection.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	gormDB, err := db.Connect(cfg.MySQL.Host, cfg.MySQL.Port, cfg.MySQL.User, cfg.MySQL.Password, cfg.MySQL.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database schema management",
	}
	cmd.AddCommand(newDBMigrateCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update all tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := db.AutoMigrate(gormDB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migration complete.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "orderdesk.yaml", "path to Orderdesk config file")
	return cmd
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		confirmed  bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate all tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("db reset is destructive; re-run with --yes to confirm")
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := db.Reset(gormDB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Reset complete.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "orderdesk.yaml", "path to Orderdesk config file")
	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm dropping all tables")
	return cmd
}
