package chatlog

import (
	"errors"
	"fmt"
)

// Event types with dedicated rendering.
const (
	TypeHello               = "hello"
	TypeMessage             = "message"
	TypeReactionAdded       = "reaction_added"
	TypeReactionRemoved     = "reaction_removed"
	TypeMemberJoinedChannel = "member_joined_channel"
	TypeMemberLeftChannel   = "member_left_channel"
	TypeUserChange          = "user_change"
	TypeDNDUpdatedUser      = "dnd_updated_user"
	TypeUserTyping          = "user_typing"
	TypeFilePublic          = "file_public"
	TypeFileShared          = "file_shared"
)

// Message subtypes with dedicated rendering.
const (
	SubtypeMessageChanged = "message_changed"
	SubtypeMessageDeleted = "message_deleted"
	SubtypeMessageReplied = "message_replied"
	SubtypeChannelJoin    = "channel_join"
	SubtypeChannelLeave   = "channel_leave"
	SubtypeBotMessage     = "bot_message"
)

// ErrMalformedEvent is wrapped by Parse when a field the event type
// guarantees is absent or has the wrong shape.
var ErrMalformedEvent = errors.New("chatlog: malformed event")

// Event is a parsed Slack event: the fields common to every type plus a
// type-specific Body.
type Event struct {
	Type     string
	Subtype  string
	RoomID   Lookup
	UserID   string
	TS       string
	ThreadTS Lookup
	Text     string
	Files    []File
	Body     Body
}

// Body is the type-specific part of an Event. The set of implementations is
// closed.
type Body interface {
	body()
}

// File is an attachment reference.
type File struct {
	URLPrivateDownload string
}

// MessageRef is a nested message inside an edit or delete notification.
type MessageRef struct {
	UserID string
	Text   string
	TS     string
	Files  []File
}

// Attachment is a legacy message attachment posted by a bot.
type Attachment struct {
	Title     string
	TitleLink string
	Text      string
}

type (
	Hello        struct{}
	PlainMessage struct{}

	MessageChanged struct {
		Previous MessageRef
		Current  MessageRef
	}

	MessageDeleted struct {
		Previous MessageRef
	}

	// Duplicate is a message subtype that repeats information logged
	// through another event (thread origin re-sends, join/leave notices).
	Duplicate struct{}

	BotMessage struct {
		Username    string
		BotID       string
		BotName     string
		Attachments []Attachment
	}

	OtherSubtype struct{}

	Reaction struct {
		Added    bool
		Name     string
		ItemType string
		ItemTS   string
	}

	MemberJoined struct {
		Inviter Lookup
	}

	MemberLeft struct{}

	UserChange struct {
		UserID      string
		DisplayName string
		StatusEmoji string
		StatusText  string
	}

	DNDUpdated struct {
		Enabled bool
		Start   int64
		End     int64
	}

	// Noise is an event type that is never logged.
	Noise struct{}

	Unhandled struct{}
)

func (Hello) body()          {}
func (PlainMessage) body()   {}
func (MessageChanged) body() {}
func (MessageDeleted) body() {}
func (Duplicate) body()      {}
func (BotMessage) body()     {}
func (OtherSubtype) body()   {}
func (Reaction) body()       {}
func (MemberJoined) body()   {}
func (MemberLeft) body()     {}
func (UserChange) body()     {}
func (DNDUpdated) body()     {}
func (Noise) body()          {}
func (Unhandled) body()      {}

// Parse converts a raw record into an Event. It fails only when a field the
// event type guarantees is missing; unknown types and subtypes parse into
// Unhandled and OtherSubtype.
func Parse(eventType string, rec Record) (Event, error) {
	ev := Event{
		Type:     eventType,
		Subtype:  rec.Str("subtype").Or(""),
		UserID:   rec.Str("user").Or(""),
		TS:       rec.Str("event_ts").Or(""),
		ThreadTS: rec.Str("thread_ts"),
		Text:     rec.Str("text").Or(""),
		Files:    parseFiles(rec),
	}
	ev.RoomID = roomOf(rec)

	body, err := parseBody(eventType, ev.Subtype, rec)
	if err != nil {
		return Event{}, err
	}
	ev.Body = body
	return ev, nil
}

// roomOf reads the conversation ID: reaction events carry it on the item.
func roomOf(rec Record) Lookup {
	item, _ := rec.Rec("item")
	return FirstOf(rec.Str("channel"), item.Str("channel"))
}

func parseBody(eventType, subtype string, rec Record) (Body, error) {
	switch eventType {
	case TypeHello:
		return Hello{}, nil
	case TypeUserTyping, TypeFilePublic, TypeFileShared:
		return Noise{}, nil
	case TypeMessage:
		return parseMessage(subtype, rec)
	case TypeReactionAdded, TypeReactionRemoved:
		item, ok := rec.Rec("item")
		if !ok {
			return nil, malformed(eventType, "item")
		}
		return Reaction{
			Added:    eventType == TypeReactionAdded,
			Name:     rec.Str("reaction").Or(""),
			ItemType: item.Str("type").Or(""),
			ItemTS:   item.Str("ts").Or(""),
		}, nil
	case TypeMemberJoinedChannel:
		return MemberJoined{Inviter: rec.Str("inviter")}, nil
	case TypeMemberLeftChannel:
		return MemberLeft{}, nil
	case TypeUserChange:
		user, ok := rec.Rec("user")
		if !ok {
			return nil, malformed(eventType, "user")
		}
		id := user.Str("id")
		if !id.Found {
			return nil, malformed(eventType, "user.id")
		}
		profile, ok := user.Rec("profile")
		if !ok {
			return nil, malformed(eventType, "user.profile")
		}
		return UserChange{
			UserID:      id.Value,
			DisplayName: profile.Str("display_name").Or(""),
			StatusEmoji: profile.Str("status_emoji").Or(""),
			StatusText:  profile.Str("status_text").Or(""),
		}, nil
	case TypeDNDUpdatedUser:
		status, ok := rec.Rec("dnd_status")
		if !ok {
			return nil, malformed(eventType, "dnd_status")
		}
		enabled, _ := status.Bool("dnd_enabled")
		start, _ := status.Int("next_dnd_start_ts")
		end, _ := status.Int("next_dnd_end_ts")
		return DNDUpdated{Enabled: enabled, Start: start, End: end}, nil
	}
	return Unhandled{}, nil
}

func parseMessage(subtype string, rec Record) (Body, error) {
	switch subtype {
	case "":
		return PlainMessage{}, nil
	case SubtypeMessageChanged:
		prev, err := parseMessageRef(rec, "previous_message")
		if err != nil {
			return nil, err
		}
		cur, err := parseMessageRef(rec, "message")
		if err != nil {
			return nil, err
		}
		return MessageChanged{Previous: prev, Current: cur}, nil
	case SubtypeMessageDeleted:
		prev, err := parseMessageRef(rec, "previous_message")
		if err != nil {
			return nil, err
		}
		return MessageDeleted{Previous: prev}, nil
	case SubtypeMessageReplied, SubtypeChannelJoin, SubtypeChannelLeave:
		return Duplicate{}, nil
	case SubtypeBotMessage:
		profile, ok := rec.Rec("bot_profile")
		if !ok {
			return nil, malformed(TypeMessage+"/"+SubtypeBotMessage, "bot_profile")
		}
		bot := BotMessage{
			Username: rec.Str("username").Or(""),
			BotID:    rec.Str("bot_id").Or(""),
			BotName:  profile.Str("name").Or(""),
		}
		for _, a := range rec.Recs("attachments") {
			bot.Attachments = append(bot.Attachments, Attachment{
				Title:     a.Str("title").Or(""),
				TitleLink: a.Str("title_link").Or(""),
				Text:      a.Str("text").Or(""),
			})
		}
		return bot, nil
	}
	return OtherSubtype{}, nil
}

func parseMessageRef(rec Record, key string) (MessageRef, error) {
	m, ok := rec.Rec(key)
	if !ok {
		return MessageRef{}, malformed(TypeMessage+"/"+rec.Str("subtype").Or(""), key)
	}
	return MessageRef{
		UserID: m.Str("user").Or(""),
		Text:   m.Str("text").Or(""),
		TS:     m.Str("ts").Or(""),
		Files:  parseFiles(m),
	}, nil
}

func parseFiles(rec Record) []File {
	recs := rec.Recs("files")
	if len(recs) == 0 {
		return nil
	}
	files := make([]File, 0, len(recs))
	for _, f := range recs {
		files = append(files, File{URLPrivateDownload: f.Str("url_private_download").Or("")})
	}
	return files
}

func malformed(eventType, field string) error {
	return fmt.Errorf("%w: %s event missing %s", ErrMalformedEvent, eventType, field)
}
