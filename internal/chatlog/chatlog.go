// Package chatlog transcribes Slack events into per-room audit log files.
//
// Each inbound event is parsed into an Event, classified (private rooms,
// typing notifications, duplicate message subtypes and empty messages are
// suppressed), rendered into a single message string and appended to
// <dir>/<room_id>-<room_name>.log as
//
//	[<wall time>] [<user name>/<user id>] [<event ts>] <message>
package chatlog

import (
	"fmt"
	"time"
)

// Logger classifies events and appends the loggable ones to a Sink.
type Logger struct {
	enabled    bool
	robotID    string
	classifier Classifier
	sink       *Sink
}

// Options configures a Logger.
type Options struct {
	Enabled   bool             // when false, Log is a no-op
	Dir       string           // log directory
	RobotID   string           // the bot's own Slack user ID
	Directory Directory        // user and room lookups
	Clock     func() time.Time // defaults to time.Now
}

// New creates a Logger.
func New(opts Options) (*Logger, error) {
	if opts.Enabled && opts.Dir == "" {
		return nil, fmt.Errorf("chatlog: log directory is required")
	}
	return &Logger{
		enabled:    opts.Enabled,
		robotID:    opts.RobotID,
		classifier: NewClassifier(opts.Directory),
		sink:       NewSink(opts.Dir, opts.Clock),
	}, nil
}

// Enabled reports whether events are being logged.
func (l *Logger) Enabled() bool {
	return l.enabled
}

// Decide classifies an event without writing anything.
func (l *Logger) Decide(eventType string, rec Record) (Decision, error) {
	if !l.enabled {
		return suppressed(ReasonDisabled), nil
	}
	return l.classifier.Classify(eventType, rec, l.robotID)
}

// Log classifies an event and appends it when loggable. The returned
// Decision says what happened; the error is either a malformed payload or a
// write failure.
func (l *Logger) Log(eventType string, rec Record) (Decision, error) {
	d, err := l.Decide(eventType, rec)
	if err != nil {
		return Decision{}, fmt.Errorf("chatlog: %s event: %w", eventType, err)
	}
	if d.Suppressed() {
		return d, nil
	}
	if err := l.sink.Append(d.Entry); err != nil {
		return d, err
	}
	return d, nil
}
