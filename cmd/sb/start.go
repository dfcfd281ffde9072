package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/signalbox/internal/directory"
	"github.com/zulandar/signalbox/internal/telegraph"
	slackadapter "github.com/zulandar/signalbox/internal/telegraph/slack"
)

func newStartCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the Signalbox daemon",
		Long:  "Connects to Slack over Socket Mode, syncs the user/room directory and appends every loggable event to its room log.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runStart(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg, os.Stderr)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	api := slackadapter.NewAPI(cfg.Slack.BotToken, cfg.Slack.AppToken)
	dir := directory.New(store, directory.Options{API: api})

	adapter, err := slackadapter.New(slackadapter.AdapterOpts{
		AppToken:  cfg.Slack.AppToken,
		BotToken:  cfg.Slack.BotToken,
		ChannelID: cfg.Slack.DefaultChannel,
		API:       api,
	})
	if err != nil {
		return err
	}

	daemon, err := telegraph.NewDaemon(telegraph.DaemonOpts{
		Config:    cfg,
		Adapter:   adapter,
		Directory: dir,
		Syncer:    directory.NewSyncer(store, api, nil),
		Out:       cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return daemon.Run(ctx)
}
