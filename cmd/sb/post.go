package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/signalbox/internal/telegraph"
	slackadapter "github.com/zulandar/signalbox/internal/telegraph/slack"
)

type postOpts struct {
	channel string
	thread  string
	title   string
	link    string
	color   string
	fields  []string
}

func newPostCmd() *cobra.Command {
	var (
		configPath string
		opts       postOpts
	)

	cmd := &cobra.Command{
		Use:   "post <text>",
		Short: "Post a message to Slack",
		Long:  "Posts text, optionally with one attachment, to a channel (default: slack.default_channel).",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := buildOutbound(strings.Join(args, " "), opts)
			if err != nil {
				return err
			}
			return runPost(cmd, configPath, msg)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&opts.channel, "channel", "", "channel ID to post to")
	cmd.Flags().StringVar(&opts.thread, "thread", "", "thread timestamp to reply in")
	cmd.Flags().StringVar(&opts.title, "title", "", "attachment title; the text becomes its body")
	cmd.Flags().StringVar(&opts.link, "link", "", "attachment title link")
	cmd.Flags().StringVar(&opts.color, "color", "", "attachment color, e.g. good or #36a64f")
	cmd.Flags().StringArrayVar(&opts.fields, "field", nil, "attachment field as name=value (repeatable)")
	return cmd
}

// buildOutbound turns the command line into a message. Attachment flags
// without --title are rejected.
func buildOutbound(text string, opts postOpts) (telegraph.OutboundMessage, error) {
	msg := telegraph.OutboundMessage{
		ChannelID: opts.channel,
		ThreadID:  opts.thread,
		Text:      text,
	}
	if opts.title == "" {
		if opts.link != "" || opts.color != "" || len(opts.fields) > 0 {
			return msg, fmt.Errorf("post: --link, --color and --field need --title")
		}
		return msg, nil
	}

	att := telegraph.Attachment{
		Title:     opts.title,
		TitleLink: opts.link,
		Body:      text,
		Color:     opts.color,
	}
	for _, f := range opts.fields {
		name, value, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return msg, fmt.Errorf("post: field %q must be name=value", f)
		}
		att.Fields = append(att.Fields, telegraph.Field{Name: name, Value: value, Short: len(value) < 40})
	}
	msg.Text = ""
	msg.Attachments = []telegraph.Attachment{att}
	return msg, nil
}

func runPost(cmd *cobra.Command, configPath string, msg telegraph.OutboundMessage) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg, cmd.ErrOrStderr())

	adapter, err := slackadapter.New(slackadapter.AdapterOpts{
		AppToken:  cfg.Slack.AppToken,
		BotToken:  cfg.Slack.BotToken,
		ChannelID: cfg.Slack.DefaultChannel,
	})
	if err != nil {
		return err
	}
	defer adapter.Close()

	ctx := context.Background()
	if err := adapter.Connect(ctx); err != nil {
		return err
	}
	if err := adapter.Send(ctx, msg); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Message posted")
	return nil
}
