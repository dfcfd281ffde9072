// Package telegraph connects signalbox to a chat platform and feeds every
// inbound event through the chat logger.
package telegraph

import (
	"context"
	"time"

	"github.com/zulandar/signalbox/internal/chatlog"
)

// Adapter is the interface that platform-specific implementations must satisfy.
// Each adapter handles connection management and event delivery for a single
// chat platform.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound events from the platform.
	// The channel is closed when the context is cancelled or the adapter
	// is closed. Listen must only be called after Connect.
	Listen(ctx context.Context) (<-chan InboundEvent, error)

	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg OutboundMessage) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// InboundEvent is one real-time event as the platform delivered it. Record
// keeps the raw payload; the chat logger parses it.
type InboundEvent struct {
	Platform   string // e.g. "slack"
	Type       string // event type, e.g. "message", "reaction_added"
	Record     chatlog.Record
	ReceivedAt time.Time
}

// OutboundMessage represents a message to be sent to the chat platform.
type OutboundMessage struct {
	ChannelID   string       // target channel; adapter default when empty
	ThreadID    string       // thread to reply in (empty for new top-level message)
	Text        string       // message text (platform-native formatting)
	Attachments []Attachment // legacy attachments
}

// Attachment is a titled block shown under a message.
type Attachment struct {
	Title     string
	TitleLink string
	Body      string
	Color     string  // sidebar color hint (e.g. "#36a64f")
	Fields    []Field // key-value metadata pairs
}

// Field is a key-value pair displayed in an attachment.
type Field struct {
	Name  string
	Value string
	Short bool // hint: render side-by-side with another field
}

// BotUserIDer is an optional interface that adapters can implement to
// expose the bot's own user ID, which the hello event is attributed to.
type BotUserIDer interface {
	BotUserID() string
}
