package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/signalbox/internal/chatlog"
	"github.com/zulandar/signalbox/internal/dashboard"
)

// followInterval is how often --follow polls the room logs.
var followInterval = 2 * time.Second

type logsOpts struct {
	roomID string
	user   string
	lines  int
	follow bool
}

func newLogsCmd() *cobra.Command {
	var (
		configPath string
		opts       logsOpts
	)

	cmd := &cobra.Command{
		Use:   "logs [room-id]",
		Short: "Show room logs",
		Long:  "Without a room ID, lists the room logs on disk. With one, prints the room's most recent entries across every file it was logged under.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.roomID = args[0]
			}
			return runLogs(cmd, configPath, opts)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&opts.user, "user", "", "only entries from this user ID or name")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "number of recent entries to show")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "keep printing new entries as they are logged")
	return cmd
}

func runLogs(cmd *cobra.Command, configPath string, opts logsOpts) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	dir := cfg.ChatLog.Location
	out := cmd.OutOrStdout()

	if opts.roomID == "" {
		return printLogList(out, dir)
	}

	entries, err := dashboard.RoomEntries(dir, opts.roomID, opts.user, opts.lines)
	if errors.Is(err, dashboard.ErrNoLogs) && opts.follow {
		err = nil
	}
	if errors.Is(err, dashboard.ErrNoLogs) {
		fmt.Fprintf(out, "No logs for room %s in %s\n", opts.roomID, dir)
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		printEntry(out, e.Time, e.UserName, e.UserID, e.TS, e.Message)
	}

	if !opts.follow {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return followLogs(ctx, out, dir, opts)
}

func followLogs(ctx context.Context, out io.Writer, dir string, opts logsOpts) error {
	t := chatlog.NewTailer(dir, opts.roomID)
	if err := t.SkipExisting(); err != nil {
		return err
	}

	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			lines, err := t.Poll()
			if err != nil {
				fmt.Fprintf(out, "poll error: %v\n", err)
				continue
			}
			for _, l := range lines {
				if opts.user != "" && l.UserID != opts.user && l.UserName != opts.user {
					continue
				}
				printEntry(out, l.Time, l.UserName, l.UserID, l.TS, l.Message)
			}
		}
	}
}

func printEntry(out io.Writer, when time.Time, userName, userID, ts, message string) {
	fmt.Fprintln(out, chatlog.FormatLine(when, chatlog.Entry{
		UserName: userName,
		UserID:   userID,
		TS:       ts,
		Message:  message,
	}))
}

func printLogList(out io.Writer, dir string) error {
	rooms, err := dashboard.RoomSummary(dir, nil)
	if err != nil {
		return err
	}
	if len(rooms) == 0 {
		fmt.Fprintf(out, "No room logs in %s\n", dir)
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROOM\tNAME\tFILES\tSIZE\tUPDATED")
	for _, r := range rooms {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", r.ID, r.Name, len(r.Files), r.Size, formatAge(now().Sub(r.UpdatedAt)))
	}
	return w.Flush()
}
