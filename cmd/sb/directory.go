package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/signalbox/internal/directory"
	slackadapter "github.com/zulandar/signalbox/internal/telegraph/slack"
)

func newDirectoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "directory",
		Aliases: []string{"dir"},
		Short:   "Inspect and refresh the user/room directory",
	}

	cmd.AddCommand(newDirectorySyncCmd())
	cmd.AddCommand(newDirectoryListCmd())
	return cmd
}

func newDirectorySyncCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch all users and rooms from Slack",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDirectorySync(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runDirectorySync(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg, cmd.ErrOrStderr())

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	api := slackadapter.NewAPI(cfg.Slack.BotToken, cfg.Slack.AppToken)
	res, err := directory.NewSyncer(store, api, nil).Sync(ctx, directory.TriggerManual)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Synced %d users, %d rooms in %s\n", res.Users, res.Rooms, res.Duration.Round(time.Millisecond))
	return nil
}

func newDirectoryListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:       "list [users|rooms]",
		Short:     "List directory entries",
		Long:      "Lists the users and rooms known to the directory, followed by the last sync run.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"users", "rooms"},
		RunE: func(cmd *cobra.Command, args []string) error {
			what := ""
			if len(args) == 1 {
				what = args[0]
			}
			return runDirectoryList(cmd, configPath, what)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runDirectoryList(cmd *cobra.Command, configPath, what string) error {
	switch what {
	case "", "users", "rooms":
	default:
		return fmt.Errorf("directory list: unknown kind %q (want users or rooms)", what)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if what != "rooms" {
		if err := printUsers(out, store); err != nil {
			return err
		}
	}
	if what == "" {
		fmt.Fprintln(out)
	}
	if what != "users" {
		if err := printRooms(out, store); err != nil {
			return err
		}
	}

	run, err := store.LastRun()
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, formatRun(run))
	return nil
}

func printUsers(out io.Writer, store *directory.Store) error {
	users, err := store.ListUsers()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Users (%d)\n", len(users))
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tHANDLE\tFLAGS")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Name, u.MentionName, flags(flagBit{u.IsBot, "bot"}, flagBit{u.Deleted, "deleted"}))
	}
	return w.Flush()
}

func printRooms(out io.Writer, store *directory.Store) error {
	rooms, err := store.ListRooms()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Rooms (%d)\n", len(rooms))
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tFLAGS")
	for _, r := range rooms {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.ID, r.Name, flags(flagBit{r.IsPrivate, "private"}, flagBit{r.IsIM, "im"}, flagBit{r.IsMPIM, "mpim"}, flagBit{r.IsArchived, "archived"}))
	}
	return w.Flush()
}

type flagBit struct {
	on   bool
	name string
}

// flags joins the names of the set bits, or "-" when none are set.
func flags(bits ...flagBit) string {
	var names []string
	for _, b := range bits {
		if b.on {
			names = append(names, b.name)
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}
