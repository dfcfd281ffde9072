package directory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/slack-go/slack"
	"github.com/zulandar/signalbox/internal/models"
	"github.com/zulandar/signalbox/internal/ratelimit"
)

// Sync triggers, recorded on each SyncRun.
const (
	TriggerStart  = "start"
	TriggerCron   = "cron"
	TriggerManual = "manual"
)

// pageSize is the per-request limit for users.list and conversations.list.
const pageSize = 200

// conversationTypes are the conversation kinds the directory tracks.
var conversationTypes = []string{"public_channel", "private_channel", "mpim", "im"}

// Result summarizes a completed sync.
type Result struct {
	Users    int
	Rooms    int
	Duration time.Duration
}

// Syncer copies the workspace's users and conversations into a Store.
type Syncer struct {
	store *Store
	api   API
	now   func() time.Time
}

// NewSyncer returns a Syncer. A nil clock uses time.Now.
func NewSyncer(store *Store, api API, clock func() time.Time) *Syncer {
	if clock == nil {
		clock = time.Now
	}
	return &Syncer{store: store, api: api, now: clock}
}

// Sync fetches all users, then all conversations, and upserts them. Users go
// first so direct-message rooms can be named after their member. The run is
// recorded whether or not it succeeds.
func (s *Syncer) Sync(ctx context.Context, trigger string) (Result, error) {
	start := s.now()
	run, err := s.store.StartRun(trigger, start)
	if err != nil {
		return Result{}, err
	}

	res, syncErr := s.sync(ctx)
	res.Duration = s.now().Sub(start)
	if err := s.store.FinishRun(run, res.Users, res.Rooms, syncErr, s.now()); err != nil {
		slog.Warn("directory: recording sync run failed", "run", run.ID, "error", err)
	}
	if syncErr != nil {
		return res, syncErr
	}
	slog.Info("directory: sync complete",
		"trigger", trigger,
		"users", res.Users,
		"rooms", res.Rooms,
		"duration", res.Duration,
	)
	return res, nil
}

func (s *Syncer) sync(ctx context.Context) (Result, error) {
	var res Result

	var users []slack.User
	err := ratelimit.Retry(ctx, func() error {
		var apiErr error
		users, apiErr = s.api.GetUsersContext(ctx, slack.GetUsersOptionLimit(pageSize))
		return apiErr
	})
	if err != nil {
		return res, fmt.Errorf("directory: users.list: %w", err)
	}

	now := s.now()
	rows := make([]models.User, 0, len(users))
	names := make(map[string]string, len(users))
	for _, u := range users {
		row := userFromSlack(u, now)
		rows = append(rows, row)
		names[row.ID] = row.Name
	}
	if err := s.store.UpsertUsers(rows); err != nil {
		return res, err
	}
	res.Users = len(rows)

	userName := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}

	cursor := ""
	for {
		params := &slack.GetConversationsParameters{
			Cursor: cursor,
			Limit:  pageSize,
			Types:  conversationTypes,
		}

		var chans []slack.Channel
		var next string
		err := ratelimit.Retry(ctx, func() error {
			var apiErr error
			chans, next, apiErr = s.api.GetConversationsContext(ctx, params)
			return apiErr
		})
		if err != nil {
			return res, fmt.Errorf("directory: conversations.list: %w", err)
		}

		rooms := make([]models.Room, 0, len(chans))
		for _, ch := range chans {
			rooms = append(rooms, roomFromSlack(ch, userName, now))
		}
		if err := s.store.UpsertRooms(rooms); err != nil {
			return res, err
		}
		res.Rooms += len(rooms)

		if next == "" {
			break
		}
		cursor = next
	}
	return res, nil
}
