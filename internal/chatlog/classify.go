package chatlog

import "log/slog"

// Entry is one rendered log line before the wall-clock time is stamped.
type Entry struct {
	RoomID   string
	RoomName string
	UserName string
	UserID   string
	TS       string
	Message  string
}

// Reason explains why an event was not logged.
type Reason string

const (
	ReasonPrivateRoom Reason = "private room"
	ReasonNoise       Reason = "noise"
	ReasonDuplicate   Reason = "duplicate"
	ReasonEmpty       Reason = "empty message"
	ReasonDisabled    Reason = "logging disabled"
)

// Decision is the outcome of classifying one event: an Entry to append, or a
// suppression Reason.
type Decision struct {
	Entry  Entry
	Reason Reason
}

// Suppressed reports whether nothing should be written for the event.
func (d Decision) Suppressed() bool {
	return d.Reason != ""
}

func suppressed(r Reason) Decision {
	return Decision{Reason: r}
}

// Classifier decides whether an event is logged and renders it.
type Classifier struct {
	gate  Gate
	users Resolver
}

// NewClassifier returns a Classifier resolving rooms and users through dir.
func NewClassifier(dir Directory) Classifier {
	return Classifier{gate: NewGate(dir), users: NewResolver(dir)}
}

// Classify turns one raw event into a Decision. robotID is the bot's own
// user ID, used for the hello event. The only error is a malformed payload
// (see ErrMalformedEvent).
func (c Classifier) Classify(eventType string, rec Record, robotID string) (Decision, error) {
	roomID := roomOf(rec).OrPlaceholder(KindRoomID)

	room, found, loggable := c.gate.Resolve(roomID)
	if !loggable {
		slog.Debug("chatlog: private room, not logging", "room", roomID, "type", eventType)
		return suppressed(ReasonPrivateRoom), nil
	}
	roomName := Placeholder(KindRoomName)
	if found {
		roomName = room.Name
	}

	switch eventType {
	case TypeUserTyping, TypeFilePublic, TypeFileShared:
		return suppressed(ReasonNoise), nil
	}

	ev, err := Parse(eventType, rec)
	if err != nil {
		return Decision{}, err
	}
	return c.decide(ev, roomID, roomName, robotID), nil
}

func (c Classifier) decide(ev Event, roomID, roomName, robotID string) Decision {
	switch ev.Body.(type) {
	case Noise:
		return suppressed(ReasonNoise)
	case Duplicate:
		return suppressed(ReasonDuplicate)
	}

	r := render(ev, c.users, robotID)
	msg := r.message
	if ev.Type == TypeMessage {
		msg = threadPrefix(ev, msg)
	}
	msg += renderFiles(ev.Files, "")

	if r.slackRoom {
		roomID, roomName = SlackRoom, SlackRoom
	}

	slog.Debug("chatlog: event",
		"type", ev.Type,
		"subtype", ev.Subtype,
		"room", roomID,
		"user", r.userID,
		"ts", ev.TS,
	)

	if msg == "" {
		return suppressed(ReasonEmpty)
	}
	return Decision{Entry: Entry{
		RoomID:   roomID,
		RoomName: roomName,
		UserName: r.userName,
		UserID:   r.userID,
		TS:       ev.TS,
		Message:  msg,
	}}
}
