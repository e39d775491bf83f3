package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mercadia/orderdesk/internal/db"
	"github.com/mercadia/orderdesk/internal/logging"
	"github.com/mercadia/orderdesk/internal/server"
	"github.com/mercadia/orderdesk/internal/session"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Orderdesk API server",
		Long:  "Launches the HTTP API and the in-process session timeout sweep.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "orderdesk.yaml", "path to Orderdesk config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel)

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}

	if port <= 0 {
		port = cfg.Server.Port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	// Periodic timeout sweep. "Now" is the wall-clock time at the moment
	// each run fires.
	sched := cron.New()
	if _, err := sched.AddFunc(cfg.Sessions.SweepCron, func() {
		closed, err := session.Sweep(gormDB, time.Now().UTC())
		if err != nil {
			log.Error().Err(err).Msg("scheduled sweep failed")
			return
		}
		if closed > 0 {
			log.Info().Int64("sessions_closed", closed).Msg("scheduled sweep")
		}
	}); err != nil {
		return fmt.Errorf("serve: schedule sweep %q: %w", cfg.Sessions.SweepCron, err)
	}
	sched.Start()
	defer sched.Stop()

	return server.Start(ctx, server.StartOpts{
		DB:   gormDB,
		Port: port,
		Out:  cmd.OutOrStdout(),
	})
}
