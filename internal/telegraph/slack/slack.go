// Package slack implements the telegraph Adapter for Slack using Socket Mode.
package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"github.com/zulandar/signalbox/internal/chatlog"
	"github.com/zulandar/signalbox/internal/ratelimit"
	"github.com/zulandar/signalbox/internal/telegraph"
)

const (
	// platform tags inbound events from this adapter.
	platform = "slack"
	// baseBackoff is the initial backoff duration for reconnection.
	baseBackoff = 2 * time.Second
	// maxBackoff caps the exponential backoff for reconnection.
	maxBackoff = 2 * time.Minute
	// maxReconnectAttempts limits reconnection retries before giving up.
	maxReconnectAttempts = 10
	// inboundBuffer is the capacity of the inbound event channel.
	inboundBuffer = 256
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	AuthTestContext(ctx context.Context) (*slackapi.AuthTestResponse, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// socketClient abstracts the Socket Mode client methods we use.
type socketClient interface {
	RunContext(ctx context.Context) error
	EventsChan() chan socketmode.Event
	Ack(req socketmode.Request, payload ...interface{})
}

// realSocketClient wraps *socketmode.Client to implement socketClient.
type realSocketClient struct {
	client *socketmode.Client
}

func (r *realSocketClient) RunContext(ctx context.Context) error { return r.client.RunContext(ctx) }
func (r *realSocketClient) EventsChan() chan socketmode.Event    { return r.client.Events }
func (r *realSocketClient) Ack(req socketmode.Request, payload ...interface{}) {
	r.client.Ack(req, payload...)
}

// Adapter implements telegraph.Adapter for Slack Socket Mode. Every Events
// API callback is forwarded with its raw inner event so the chat logger sees
// the payload exactly as Slack sent it.
type Adapter struct {
	client       slackClient
	socket       socketClient
	api          *slackapi.Client
	botUserID    string
	appToken     string
	botToken     string
	channelID    string // default channel for messages without explicit channel
	mu           sync.Mutex
	connected    bool
	listening    bool
	closed       bool
	inbound      chan telegraph.InboundEvent
	cancelFunc   context.CancelFunc
	now          func() time.Time
	baseBackoff  time.Duration // reconnection base backoff (default: baseBackoff const)
	maxBackoff   time.Duration // reconnection max backoff (default: maxBackoff const)
	maxReconnect int           // max reconnection attempts (default: maxReconnectAttempts)
}

// AdapterOpts holds parameters for creating a Slack Adapter.
type AdapterOpts struct {
	AppToken  string // xapp-... Slack app-level token for Socket Mode
	BotToken  string // xoxb-... Slack bot token
	ChannelID string // default channel to post to
	// API is a shared Web API client, e.g. one the directory also uses.
	// Built from the tokens when nil.
	API *slackapi.Client
	// For testing: inject mock clients instead of real Slack API.
	Client slackClient
	Socket socketClient
}

// New creates a Slack Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Client == nil && opts.API == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.Socket == nil && opts.AppToken == "" {
		return nil, fmt.Errorf("slack: app token is required for socket mode")
	}

	return &Adapter{
		client:       opts.Client,
		socket:       opts.Socket,
		api:          opts.API,
		appToken:     opts.AppToken,
		botToken:     opts.BotToken,
		channelID:    opts.ChannelID,
		inbound:      make(chan telegraph.InboundEvent, inboundBuffer),
		now:          time.Now,
		baseBackoff:  baseBackoff,
		maxBackoff:   maxBackoff,
		maxReconnect: maxReconnectAttempts,
	}, nil
}

// NewAPI builds the Web API client for a bot token and app-level token.
func NewAPI(botToken, appToken string) *slackapi.Client {
	return slackapi.New(botToken, slackapi.OptionAppLevelToken(appToken))
}

// Connect verifies the bot token and records the bot's user ID.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("slack: adapter already closed")
	}
	if a.connected {
		return nil
	}

	// Create real clients if not injected (production path).
	if a.client == nil {
		if a.api == nil {
			a.api = NewAPI(a.botToken, a.appToken)
		}
		a.client = a.api
	}
	if a.socket == nil {
		api := a.api
		if api == nil {
			api = NewAPI(a.botToken, a.appToken)
		}
		a.socket = &realSocketClient{client: socketmode.New(api)}
	}

	auth, err := a.client.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack: auth test: %w", err)
	}
	a.botUserID = auth.UserID

	a.connected = true
	return nil
}

// Listen returns a channel of inbound events. Starts the Socket Mode
// event pump in a background goroutine. Must be called after Connect.
func (a *Adapter) Listen(ctx context.Context) (<-chan telegraph.InboundEvent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, fmt.Errorf("slack: not connected")
	}
	if a.listening {
		return a.inbound, nil
	}

	listenCtx, cancel := context.WithCancel(ctx)
	a.cancelFunc = cancel
	a.listening = true

	// Start socket mode in background with reconnection logic.
	go a.runWithReconnect(listenCtx)

	// Pump events from socket mode to inbound channel. The pump owns the
	// channel and closes it on exit.
	go a.pumpEvents(listenCtx)

	return a.inbound, nil
}

// Send delivers a message to Slack.
func (a *Adapter) Send(ctx context.Context, msg telegraph.OutboundMessage) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("slack: not connected")
	}
	a.mu.Unlock()

	channelID := msg.ChannelID
	if channelID == "" {
		channelID = a.channelID
	}
	if channelID == "" {
		return fmt.Errorf("slack: no channel specified")
	}

	options := buildMessageOptions(msg)

	err := ratelimit.Retry(ctx, func() error {
		_, _, postErr := a.client.PostMessageContext(ctx, channelID, options...)
		return postErr
	})
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}

// Close shuts down the adapter. The inbound channel is closed once the
// event pump has stopped.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.connected = false
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	if !a.listening {
		close(a.inbound)
	}
	return nil
}

// BotUserID returns the bot's Slack user ID (available after Connect).
func (a *Adapter) BotUserID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.botUserID
}

// runWithReconnect runs the Socket Mode client and retries with exponential
// backoff when it returns an error (e.g., reconnection failure).
func (a *Adapter) runWithReconnect(ctx context.Context) {
	for attempt := 0; attempt < a.maxReconnect; attempt++ {
		err := a.socket.RunContext(ctx)
		if err == nil {
			return // clean shutdown
		}

		// Check if we're shutting down.
		select {
		case <-ctx.Done():
			return
		default:
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * a.baseBackoff
		if wait > a.maxBackoff {
			wait = a.maxBackoff
		}

		slog.Warn("slack: socket mode disconnected, reconnecting",
			"attempt", attempt+1,
			"max", a.maxReconnect,
			"wait", wait,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
	slog.Error("slack: socket mode exhausted reconnection attempts, giving up", "attempts", a.maxReconnect)
}

// pumpEvents reads Socket Mode events and forwards them as InboundEvents.
func (a *Adapter) pumpEvents(ctx context.Context) {
	defer close(a.inbound)
	events := a.socket.EventsChan()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			a.handleSocketEvent(ctx, evt)
		}
	}
}

// handleSocketEvent processes a single Socket Mode event.
func (a *Adapter) handleSocketEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeHello:
		a.forward(ctx, chatlog.TypeHello, chatlog.Record{"type": chatlog.TypeHello})

	case socketmode.EventTypeEventsAPI:
		// Acknowledge the event.
		if evt.Request != nil {
			a.socket.Ack(*evt.Request)
		}
		rec, err := innerEvent(evt)
		if err != nil {
			slog.Warn("slack: undecodable events api payload", "error", err)
			return
		}
		if rec == nil {
			return
		}
		a.forward(ctx, rec.Str("type").Value, rec)

	case socketmode.EventTypeConnecting:
		slog.Info("slack: connecting to Socket Mode")

	case socketmode.EventTypeConnected:
		slog.Info("slack: connected to Socket Mode")

	case socketmode.EventTypeConnectionError:
		slog.Warn("slack: connection error", "data", evt.Data)

	case socketmode.EventTypeDisconnect:
		slog.Info("slack: server requested disconnect, will reconnect")

	case socketmode.EventTypeInvalidAuth:
		slog.Error("slack: invalid auth for socket mode")
	}
}

// forward hands an event to the daemon, giving up if the listener stops.
func (a *Adapter) forward(ctx context.Context, eventType string, rec chatlog.Record) {
	ev := telegraph.InboundEvent{
		Platform:   platform,
		Type:       eventType,
		Record:     rec,
		ReceivedAt: a.now(),
	}
	select {
	case a.inbound <- ev:
	case <-ctx.Done():
	}
}

// callbackEnvelope is the outer Events API payload.
type callbackEnvelope struct {
	Type  string          `json:"type"`
	Event json.RawMessage `json:"event"`
}

// innerEvent extracts the raw inner event from an Events API request. A nil
// record means the payload carries no callback event (e.g. url_verification).
func innerEvent(evt socketmode.Event) (chatlog.Record, error) {
	if evt.Request != nil && len(evt.Request.Payload) > 0 {
		var env callbackEnvelope
		if err := json.Unmarshal(evt.Request.Payload, &env); err != nil {
			return nil, fmt.Errorf("slack: decode envelope: %w", err)
		}
		if env.Type != slackevents.CallbackEvent || len(env.Event) == 0 {
			return nil, nil
		}
		return chatlog.DecodeRecord(env.Event)
	}

	// No raw request: rebuild the record from the typed event.
	api, ok := evt.Data.(slackevents.EventsAPIEvent)
	if !ok || api.Type != slackevents.CallbackEvent || api.InnerEvent.Data == nil {
		return nil, nil
	}
	data, err := json.Marshal(api.InnerEvent.Data)
	if err != nil {
		return nil, fmt.Errorf("slack: encode inner event: %w", err)
	}
	rec, err := chatlog.DecodeRecord(data)
	if err != nil {
		return nil, err
	}
	// Typed events marshal every field; drop the empty ones Slack would
	// have omitted so "thread_ts": "" does not read as a thread.
	pruneEmpty(rec)
	if _, ok := rec["type"]; !ok {
		rec["type"] = api.InnerEvent.Type
	}
	return rec, nil
}

func pruneEmpty(m map[string]any) {
	for k, v := range m {
		switch v := v.(type) {
		case nil:
			delete(m, k)
		case string:
			if v == "" {
				delete(m, k)
			}
		case map[string]any:
			pruneEmpty(v)
		case []any:
			for _, item := range v {
				if sub, ok := item.(map[string]any); ok {
					pruneEmpty(sub)
				}
			}
		}
	}
}

// buildMessageOptions translates an OutboundMessage into Slack MsgOptions.
func buildMessageOptions(msg telegraph.OutboundMessage) []slackapi.MsgOption {
	var options []slackapi.MsgOption

	// Thread reply.
	if msg.ThreadID != "" {
		options = append(options, slackapi.MsgOptionTS(msg.ThreadID))
	}

	if len(msg.Attachments) > 0 {
		var attachments []slackapi.Attachment
		for _, att := range msg.Attachments {
			attachments = append(attachments, toSlackAttachment(att))
		}
		options = append(options, slackapi.MsgOptionAttachments(attachments...))
		// Use text as fallback.
		if msg.Text != "" {
			options = append(options, slackapi.MsgOptionText(msg.Text, false))
		}
	} else {
		options = append(options, slackapi.MsgOptionText(msg.Text, false))
	}

	return options
}

// toSlackAttachment converts an Attachment to a Slack Attachment.
func toSlackAttachment(att telegraph.Attachment) slackapi.Attachment {
	out := slackapi.Attachment{
		Title:     att.Title,
		TitleLink: att.TitleLink,
		Text:      att.Body,
		Color:     att.Color,
		Fallback:  att.Title,
	}

	for _, f := range att.Fields {
		out.Fields = append(out.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: f.Short,
		})
	}

	return out
}
