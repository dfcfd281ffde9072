package telegraph

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zulandar/signalbox/internal/chatlog"
	"github.com/zulandar/signalbox/internal/config"
	"github.com/zulandar/signalbox/internal/directory"
)

var testWall = time.Date(2024, 3, 9, 14, 5, 7, 0, time.FixedZone("", -5*3600))

func testClock() time.Time { return testWall }

func testCfg(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(fmt.Sprintf(`
slack:
  app_token: xapp-test
  bot_token: xoxb-test
chatlog:
  enabled: true
  location: %s
`, filepath.Join(t.TempDir(), "chatlogs"))))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

// syncBuffer is a bytes.Buffer safe for the daemon goroutine to write while
// the test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// fakeDirectory serves fixed users and rooms and records observed events.
type fakeDirectory struct {
	mu       sync.Mutex
	users    map[string]chatlog.User
	rooms    map[string]chatlog.Room
	observed []string
	err      error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users: map[string]chatlog.User{
			"UBOT": {ID: "UBOT", Name: "Signalbox"},
			"U2":   {ID: "U2", Name: "alice"},
		},
		rooms: map[string]chatlog.Room{
			"C1": {ID: "C1", Name: "general"},
			"G1": {ID: "G1", Name: "secret", Private: true},
		},
	}
}

func (f *fakeDirectory) FindUser(id string) (chatlog.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	return u, ok
}

func (f *fakeDirectory) FindRoom(id string) (chatlog.Room, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[id]
	return r, ok
}

func (f *fakeDirectory) Observe(eventType string, rec chatlog.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observed = append(f.observed, eventType)
	return f.err
}

func (f *fakeDirectory) observedTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.observed...)
}

// fakeSyncer counts syncs by trigger.
type fakeSyncer struct {
	mu       sync.Mutex
	triggers []string
	err      error
}

func (f *fakeSyncer) Sync(ctx context.Context, trigger string) (directory.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, trigger)
	return directory.Result{Users: 2, Rooms: 2}, f.err
}

func (f *fakeSyncer) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.triggers...)
}

// startDaemon runs d in the background and waits until it is online.
func startDaemon(t *testing.T, d *Daemon, ctx context.Context, out *syncBuffer) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx)
	}()
	waitFor(t, func() bool {
		return strings.Contains(out.String(), "Signalbox online")
	}, 2*time.Second)
	return done
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Run to return")
	}
}

// ---------------------------------------------------------------------------
// NewDaemon validation
// ---------------------------------------------------------------------------

func TestNewDaemon_NilConfig(t *testing.T) {
	_, err := NewDaemon(DaemonOpts{Adapter: NewMockAdapter()})
	if err == nil {
		t.Fatal("expected error for nil config")
	}
	if !strings.Contains(err.Error(), "config is required") {
		t.Errorf("error = %q", err)
	}
}

func TestNewDaemon_NilAdapter(t *testing.T) {
	_, err := NewDaemon(DaemonOpts{Config: testCfg(t)})
	if err == nil {
		t.Fatal("expected error for nil adapter")
	}
	if !strings.Contains(err.Error(), "adapter is required") {
		t.Errorf("error = %q", err)
	}
}

// ---------------------------------------------------------------------------
// Run lifecycle tests
// ---------------------------------------------------------------------------

func TestRun_ConnectsAndShutdown(t *testing.T) {
	mock := NewMockAdapter()
	mock.SetBotUserID("UBOT")
	syncer := &fakeSyncer{}
	out := &syncBuffer{}

	d, err := NewDaemon(DaemonOpts{
		Config:    testCfg(t),
		Adapter:   mock,
		Directory: newFakeDirectory(),
		Syncer:    syncer,
		Out:       out,
		Clock:     testClock,
	})
	if err != nil {
		t.Fatalf("NewDaemon: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := startDaemon(t, d, ctx, out)

	if got := syncer.calls(); len(got) != 1 || got[0] != directory.TriggerStart {
		t.Errorf("syncs = %v, want [start]", got)
	}
	if !strings.Contains(out.String(), "bot UBOT, chat logging enabled") {
		t.Errorf("online line missing bot id or state: %s", out.String())
	}

	cancel()
	waitDone(t, done)

	output := out.String()
	if !strings.Contains(output, "Signalbox shutting down") {
		t.Errorf("missing shutdown message in output: %s", output)
	}
	if !strings.Contains(output, "Signalbox stopped: 0 events") {
		t.Errorf("missing stopped message in output: %s", output)
	}
	if !mock.IsClosed() {
		t.Error("adapter not closed on shutdown")
	}
	if mock.SentCount() != 0 {
		t.Errorf("daemon posted %d messages, want none", mock.SentCount())
	}
}

func TestRun_ConnectError(t *testing.T) {
	mock := NewMockAdapter()
	mock.SetConnectError(fmt.Errorf("invalid_auth"))
	d, _ := NewDaemon(DaemonOpts{Config: testCfg(t), Adapter: mock, Out: &syncBuffer{}})

	err := d.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "telegraph: connect") {
		t.Fatalf("Run error = %v, want telegraph: connect", err)
	}
}

func TestRun_SyncOnStartDisabled(t *testing.T) {
	cfg := testCfg(t)
	off := false
	cfg.Directory.SyncOnStart = &off
	syncer := &fakeSyncer{}
	out := &syncBuffer{}
	d, _ := NewDaemon(DaemonOpts{Config: cfg, Adapter: NewMockAdapter(), Syncer: syncer, Out: out})

	ctx, cancel := context.WithCancel(context.Background())
	done := startDaemon(t, d, ctx, out)
	cancel()
	waitDone(t, done)

	if got := syncer.calls(); len(got) != 0 {
		t.Errorf("syncs = %v, want none", got)
	}
}

func TestRun_SyncFailureIsNotFatal(t *testing.T) {
	syncer := &fakeSyncer{err: fmt.Errorf("missing_scope")}
	out := &syncBuffer{}
	d, _ := NewDaemon(DaemonOpts{Config: testCfg(t), Adapter: NewMockAdapter(), Syncer: syncer, Out: out})

	ctx, cancel := context.WithCancel(context.Background())
	done := startDaemon(t, d, ctx, out)
	cancel()
	waitDone(t, done)
}

func TestRun_SyncInProgressSkipped(t *testing.T) {
	syncer := &fakeSyncer{err: fmt.Errorf("%w (run 1)", directory.ErrSyncInProgress)}
	out := &syncBuffer{}
	d, _ := NewDaemon(DaemonOpts{Config: testCfg(t), Adapter: NewMockAdapter(), Syncer: syncer, Out: out})

	ctx, cancel := context.WithCancel(context.Background())
	done := startDaemon(t, d, ctx, out)
	cancel()
	waitDone(t, done)

	if strings.Contains(out.String(), "Directory synced") {
		t.Errorf("skipped sync reported as done: %s", out.String())
	}
	if got := syncer.calls(); len(got) != 1 {
		t.Errorf("sync calls = %v, want one start attempt", got)
	}
}

func TestRun_HandlesClosed(t *testing.T) {
	mock := NewMockAdapter()
	out := &syncBuffer{}
	d, _ := NewDaemon(DaemonOpts{Config: testCfg(t), Adapter: mock, Out: out})

	done := startDaemon(t, d, context.Background(), out)

	// Close the adapter externally (simulates adapter disconnect).
	mock.Close()
	waitDone(t, done)

	if !strings.Contains(out.String(), "inbound channel closed") {
		t.Errorf("missing channel closed message in output: %s", out.String())
	}
}

// ---------------------------------------------------------------------------
// Event logging
// ---------------------------------------------------------------------------

func TestRun_EventsWrittenToRoomLogs(t *testing.T) {
	cfg := testCfg(t)
	mock := NewMockAdapter()
	mock.SetBotUserID("UBOT")
	dir := newFakeDirectory()
	out := &syncBuffer{}

	d, _ := NewDaemon(DaemonOpts{Config: cfg, Adapter: mock, Directory: dir, Out: out, Clock: testClock})
	ctx, cancel := context.WithCancel(context.Background())
	done := startDaemon(t, d, ctx, out)

	mock.SimulateEvent(chatlog.Record{"type": "hello"})
	mock.SimulateEvent(chatlog.Record{"type": "message", "channel": "C1", "user": "U2", "text": "hi", "event_ts": "1.1"})
	mock.SimulateEvent(chatlog.Record{"type": "message", "channel": "G1", "user": "U2", "text": "private"})
	mock.SimulateEvent(chatlog.Record{"type": "user_typing", "channel": "C1", "user": "U2"})
	mock.SimulateEvent(chatlog.Record{"type": "reaction_added", "user": "U2"})

	waitFor(t, func() bool { return d.Stats().Received == 5 }, 2*time.Second)
	cancel()
	waitDone(t, done)

	stats := d.Stats()
	if stats.Logged != 2 || stats.Suppressed != 2 || stats.Failed != 1 {
		t.Errorf("Stats = %+v, want 2 logged, 2 suppressed, 1 failed", stats)
	}

	general, err := os.ReadFile(filepath.Join(cfg.ChatLog.Location, "C1-general.log"))
	if err != nil {
		t.Fatalf("read room log: %v", err)
	}
	if want := "[2024-03-09 14:05:07 -0500] [alice/U2] [1.1] hi\n"; string(general) != want {
		t.Errorf("C1 log = %q, want %q", general, want)
	}
	slack, err := os.ReadFile(filepath.Join(cfg.ChatLog.Location, "Slack-Slack.log"))
	if err != nil {
		t.Fatalf("read Slack log: %v", err)
	}
	if !strings.Contains(string(slack), "[Signalbox/UBOT] [] Signalbox connected to Slack") {
		t.Errorf("Slack log = %q", slack)
	}
	if _, err := os.Stat(filepath.Join(cfg.ChatLog.Location, "G1-secret.log")); !os.IsNotExist(err) {
		t.Error("private room was logged")
	}

	if got := dir.observedTypes(); len(got) != 5 {
		t.Errorf("observed %v, want every event passed to the directory", got)
	}
}

func TestRun_LoggingDisabled(t *testing.T) {
	cfg := testCfg(t)
	cfg.ChatLog.Enabled = false
	mock := NewMockAdapter()
	out := &syncBuffer{}

	d, _ := NewDaemon(DaemonOpts{Config: cfg, Adapter: mock, Out: out})
	ctx, cancel := context.WithCancel(context.Background())
	done := startDaemon(t, d, ctx, out)

	if !strings.Contains(out.String(), "chat logging disabled") {
		t.Errorf("online line = %s", out.String())
	}
	mock.SimulateEvent(chatlog.Record{"type": "message", "channel": "C1", "user": "U2", "text": "hi"})
	waitFor(t, func() bool { return d.Stats().Received == 1 }, 2*time.Second)
	cancel()
	waitDone(t, done)

	if _, err := os.Stat(cfg.ChatLog.Location); !os.IsNotExist(err) {
		t.Error("log dir created while logging disabled")
	}
}

func TestHandle_DirectoryErrorIsNotFatal(t *testing.T) {
	cfg := testCfg(t)
	dir := newFakeDirectory()
	dir.err = fmt.Errorf("db locked")
	d, _ := NewDaemon(DaemonOpts{Config: cfg, Adapter: NewMockAdapter(), Directory: dir, Clock: testClock})

	logger, err := chatlog.New(chatlog.Options{Enabled: true, Dir: cfg.ChatLog.Location, Directory: dir, Clock: testClock})
	if err != nil {
		t.Fatal(err)
	}
	d.handle(logger, InboundEvent{Type: "message", Record: chatlog.Record{"channel": "C1", "user": "U2", "text": "hi"}})
	if s := d.Stats(); s.Logged != 1 {
		t.Errorf("Stats = %+v, want the event logged", s)
	}
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// waitFor polls condition fn until it returns true or timeout expires.
func waitFor(t *testing.T, fn func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("waitFor timed out after %v", timeout)
}
