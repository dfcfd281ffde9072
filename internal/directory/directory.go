// Package directory keeps the Slack user and room directory the chat logger
// resolves IDs against. Rows are synced from the Web API into the database
// and looked up there first; misses fall back to users.info and
// conversations.info.
package directory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/slack-go/slack"
	"github.com/zulandar/signalbox/internal/chatlog"
	"github.com/zulandar/signalbox/internal/models"
)

const (
	defaultLookupTimeout = 5 * time.Second
	defaultMissTTL       = 5 * time.Minute
)

// API abstracts the Slack Web API methods the directory uses, enabling
// test mocks. *slack.Client satisfies it.
type API interface {
	GetUsersContext(ctx context.Context, options ...slack.GetUsersOption) ([]slack.User, error)
	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
	GetConversationsContext(ctx context.Context, params *slack.GetConversationsParameters) ([]slack.Channel, string, error)
	GetConversationInfoContext(ctx context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error)
}

// Options configures a Directory.
type Options struct {
	API           API           // nil: resolve from the store only
	LookupTimeout time.Duration // per API fallback call
	MissTTL       time.Duration // how long a failed fallback is not retried
	Clock         func() time.Time
}

// Directory implements chatlog.Directory over a Store with Web API fallback.
// Lookup failures are logged and reported as not found.
type Directory struct {
	store   *Store
	api     API
	timeout time.Duration
	missTTL time.Duration
	now     func() time.Time

	mu     sync.Mutex
	misses map[string]time.Time
}

var _ chatlog.Directory = (*Directory)(nil)

// New returns a Directory reading from store.
func New(store *Store, opts Options) *Directory {
	d := &Directory{
		store:   store,
		api:     opts.API,
		timeout: opts.LookupTimeout,
		missTTL: opts.MissTTL,
		now:     opts.Clock,
		misses:  make(map[string]time.Time),
	}
	if d.timeout <= 0 {
		d.timeout = defaultLookupTimeout
	}
	if d.missTTL <= 0 {
		d.missTTL = defaultMissTTL
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// Store returns the underlying store.
func (d *Directory) Store() *Store { return d.store }

// FindUser resolves a user ID.
func (d *Directory) FindUser(id string) (chatlog.User, bool) {
	u, found, err := d.store.User(id)
	if err != nil {
		slog.Warn("directory: user lookup failed", "user", id, "error", err)
		return chatlog.User{}, false
	}
	if found {
		return toChatlogUser(u), true
	}
	if !d.shouldFetch("user:" + id) {
		return chatlog.User{}, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	su, err := d.api.GetUserInfoContext(ctx, id)
	if err != nil {
		slog.Warn("directory: users.info failed", "user", id, "error", err)
		d.recordMiss("user:" + id)
		return chatlog.User{}, false
	}
	u = userFromSlack(*su, d.now())
	if err := d.store.UpsertUsers([]models.User{u}); err != nil {
		slog.Warn("directory: caching user failed", "user", id, "error", err)
	}
	return toChatlogUser(u), true
}

// FindRoom resolves a room ID.
func (d *Directory) FindRoom(id string) (chatlog.Room, bool) {
	r, found, err := d.store.Room(id)
	if err != nil {
		slog.Warn("directory: room lookup failed", "room", id, "error", err)
		return chatlog.Room{}, false
	}
	if found {
		return toChatlogRoom(r), true
	}
	if !d.shouldFetch("room:" + id) {
		return chatlog.Room{}, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	ch, err := d.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{ChannelID: id})
	if err != nil {
		slog.Warn("directory: conversations.info failed", "room", id, "error", err)
		d.recordMiss("room:" + id)
		return chatlog.Room{}, false
	}
	r = roomFromSlack(*ch, d.userName, d.now())
	if err := d.store.UpsertRooms([]models.Room{r}); err != nil {
		slog.Warn("directory: caching room failed", "room", id, "error", err)
	}
	return toChatlogRoom(r), true
}

// userName resolves a user ID from the store, falling back to the ID.
func (d *Directory) userName(id string) string {
	if u, found, err := d.store.User(id); err == nil && found {
		return u.Name
	}
	return id
}

func (d *Directory) shouldFetch(key string) bool {
	if d.api == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	at, ok := d.misses[key]
	if !ok {
		return true
	}
	if d.now().Sub(at) >= d.missTTL {
		delete(d.misses, key)
		return true
	}
	return false
}

func (d *Directory) recordMiss(key string) {
	d.mu.Lock()
	d.misses[key] = d.now()
	d.mu.Unlock()
}
