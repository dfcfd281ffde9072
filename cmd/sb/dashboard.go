package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/signalbox/internal/dashboard"
)

func newDashboardCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Start the read-only log browser",
		Long:  "Serves a JSON API over the room logs and the directory: /api/rooms, /api/rooms/:room/entries and a live /api/rooms/:room/stream.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, configPath, port)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default: dashboard.port)")
	return cmd
}

func runDashboard(cmd *cobra.Command, configPath string, port int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg, cmd.ErrOrStderr())

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Dashboard.Port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return dashboard.Start(ctx, dashboard.StartOpts{
		Dir:   cfg.ChatLog.Location,
		Store: store,
		Port:  port,
		Out:   cmd.OutOrStdout(),
	})
}
