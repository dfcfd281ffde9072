package telegraph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/zulandar/signalbox/internal/chatlog"
	"github.com/zulandar/signalbox/internal/config"
	"github.com/zulandar/signalbox/internal/directory"
)

// Directory resolves users and rooms for the chat logger and absorbs
// events that change them.
type Directory interface {
	chatlog.Directory
	Observe(eventType string, rec chatlog.Record) error
}

// Syncer refreshes the directory from the platform.
type Syncer interface {
	Sync(ctx context.Context, trigger string) (directory.Result, error)
}

// Stats counts what the daemon did with inbound events.
type Stats struct {
	Received   int64
	Logged     int64
	Suppressed int64
	Failed     int64
}

// Daemon is the main signalbox process. It connects to a chat platform via
// an Adapter, keeps the directory fresh, and writes every inbound event to
// the per-room chat logs.
type Daemon struct {
	cfg       *config.Config
	adapter   Adapter
	directory Directory
	syncer    Syncer
	out       io.Writer
	clock     func() time.Time

	received, logged, suppressed, failed atomic.Int64
}

// DaemonOpts holds parameters for creating a new Daemon.
type DaemonOpts struct {
	Config    *config.Config
	Adapter   Adapter
	Directory Directory        // optional; unknown rooms and users are logged with placeholders
	Syncer    Syncer           // optional; disables start and cron syncs
	Out       io.Writer        // defaults to os.Stdout
	Clock     func() time.Time // defaults to time.Now
}

// NewDaemon creates a Daemon with the given options.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("telegraph: config is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("telegraph: adapter is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Daemon{
		cfg:       opts.Config,
		adapter:   opts.Adapter,
		directory: opts.Directory,
		syncer:    opts.Syncer,
		out:       out,
		clock:     clock,
	}, nil
}

// Run starts the daemon. It connects the adapter, syncs the directory if
// configured, and blocks logging events until the context is cancelled or
// the adapter's event channel closes. On shutdown it closes the adapter.
func (d *Daemon) Run(ctx context.Context) error {
	fmt.Fprintf(d.out, "Signalbox connecting...\n")
	if err := d.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("telegraph: connect: %w", err)
	}

	var botUserID string
	if bui, ok := d.adapter.(BotUserIDer); ok {
		botUserID = bui.BotUserID()
	}

	opts := chatlog.Options{
		Enabled: d.cfg.ChatLog.Enabled,
		Dir:     d.cfg.ChatLog.Location,
		RobotID: botUserID,
		Clock:   d.clock,
	}
	if d.directory != nil {
		opts.Directory = d.directory
	}
	logger, err := chatlog.New(opts)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("telegraph: build chat logger: %w", err)
	}

	if d.syncer != nil && d.cfg.Directory.SyncOnStartEnabled() {
		d.sync(ctx, directory.TriggerStart)
	}

	inbound, err := d.adapter.Listen(ctx)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("telegraph: listen: %w", err)
	}

	go d.runSyncScheduler(ctx)

	state := "disabled"
	if logger.Enabled() {
		state = "enabled, writing to " + d.cfg.ChatLog.Location
	}
	fmt.Fprintf(d.out, "Signalbox online (bot %s, chat logging %s)\n", botUserID, state)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(d.out, "Signalbox shutting down...\n")
			if err := d.adapter.Close(); err != nil {
				slog.Warn("telegraph: close adapter", "error", err)
			}
			d.printStats()
			return nil

		case ev, ok := <-inbound:
			if !ok {
				fmt.Fprintf(d.out, "Signalbox inbound channel closed\n")
				d.printStats()
				return nil
			}
			d.handle(logger, ev)
		}
	}
}

// Stats returns a snapshot of the event counters.
func (d *Daemon) Stats() Stats {
	return Stats{
		Received:   d.received.Load(),
		Logged:     d.logged.Load(),
		Suppressed: d.suppressed.Load(),
		Failed:     d.failed.Load(),
	}
}

// handle logs one event, then lets the directory absorb it. A failing event
// is reported and skipped.
func (d *Daemon) handle(logger *chatlog.Logger, ev InboundEvent) {
	d.received.Add(1)

	dec, err := logger.Log(ev.Type, ev.Record)
	switch {
	case err != nil:
		d.failed.Add(1)
		slog.Warn("telegraph: event not logged", "type", ev.Type, "error", err)
	case dec.Suppressed():
		d.suppressed.Add(1)
		slog.Debug("telegraph: event suppressed", "type", ev.Type, "reason", string(dec.Reason))
	default:
		d.logged.Add(1)
	}

	if d.directory != nil {
		if err := d.directory.Observe(ev.Type, ev.Record); err != nil {
			slog.Warn("telegraph: directory update", "type", ev.Type, "error", err)
		}
	}
}

// runSyncScheduler re-syncs the directory on the configured cron schedule.
// It returns immediately if no schedule or syncer is configured.
func (d *Daemon) runSyncScheduler(ctx context.Context) {
	expr := d.cfg.Directory.SyncCron
	if d.syncer == nil || expr == "" {
		return
	}
	wait := nextCronDuration(expr, d.clock())
	if wait <= 0 {
		slog.Warn("telegraph: sync schedule never fires", "cron", expr)
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			d.sync(ctx, directory.TriggerCron)
			next := nextCronDuration(expr, d.clock())
			if next <= 0 {
				return
			}
			timer.Reset(next)
		}
	}
}

func (d *Daemon) sync(ctx context.Context, trigger string) {
	res, err := d.syncer.Sync(ctx, trigger)
	if errors.Is(err, directory.ErrSyncInProgress) {
		slog.Info("telegraph: directory sync skipped", "trigger", trigger, "reason", err)
		return
	}
	if err != nil {
		slog.Error("telegraph: directory sync failed", "trigger", trigger, "error", err)
		return
	}
	fmt.Fprintf(d.out, "Directory synced: %d users, %d rooms\n", res.Users, res.Rooms)
}

func (d *Daemon) printStats() {
	s := d.Stats()
	fmt.Fprintf(d.out, "Signalbox stopped: %d events, %d logged, %d suppressed, %d failed\n",
		s.Received, s.Logged, s.Suppressed, s.Failed)
}
