package chatlog

import (
	"fmt"
	"strings"
	"time"
)

// SlackRoom is the room id and name used for workspace-level events that do
// not belong to a conversation.
const SlackRoom = "Slack"

// rendition is what one body variant renders to, before the thread prefix
// and file suffix are applied.
type rendition struct {
	userName  string
	userID    string
	message   string
	slackRoom bool
}

// render dispatches on the body variant. Every branch returns a complete
// rendition; defaults come from the event's own user.
func render(ev Event, users Resolver, robotID string) rendition {
	base := rendition{
		userName: users.Name(ev.UserID),
		userID:   ev.UserID,
	}

	switch b := ev.Body.(type) {
	case Hello:
		return renderHello(users, robotID)
	case PlainMessage:
		base.message = ev.Text
		return base
	case MessageChanged:
		return renderMessageChanged(b, users)
	case MessageDeleted:
		return renderMessageDeleted(b, users)
	case Duplicate, Noise:
		return base
	case BotMessage:
		return renderBotMessage(b)
	case OtherSubtype:
		base.message = fmt.Sprintf("Message SubType: %s : %s", ev.Subtype, ev.Text)
		return base
	case Reaction:
		base.message = renderReaction(b)
		return base
	case MemberJoined:
		base.message = "Joined channel"
		if b.Inviter.Found {
			base.message += fmt.Sprintf(" (invited by %s)", users.Name(b.Inviter.Value))
		}
		return base
	case MemberLeft:
		base.message = "Left channel"
		return base
	case UserChange:
		return rendition{
			userName: users.Name(b.UserID),
			userID:   b.UserID,
			message: fmt.Sprintf("User profile changed: display_name: '%s', status_emoji: '%s', status_text: '%s'",
				b.DisplayName, b.StatusEmoji, b.StatusText),
			slackRoom: true,
		}
	case DNDUpdated:
		base.message = fmt.Sprintf("DND updated: enabled: %t, next start: %s, next end: %s",
			b.Enabled, epoch(b.Start), epoch(b.End))
		base.slackRoom = true
		return base
	}

	base.message = renderUnhandled(ev)
	return base
}

func renderHello(users Resolver, robotID string) rendition {
	name := users.Name(robotID)
	return rendition{
		userName:  name,
		userID:    robotID,
		message:   name + " connected to Slack",
		slackRoom: true,
	}
}

func renderMessageChanged(b MessageChanged, users Resolver) rendition {
	msg := fmt.Sprintf("Message changed: [%s] %s -> %s", b.Previous.TS, b.Previous.Text, b.Current.Text)
	msg += renderFiles(b.Previous.Files, FilesPrevious)
	msg += renderFiles(b.Current.Files, FilesNew)
	return rendition{
		userName: users.Name(b.Current.UserID),
		userID:   b.Current.UserID,
		message:  msg,
	}
}

// renderMessageDeleted attributes the entry to the author of the deleted
// message. Slack does not say who deleted it.
func renderMessageDeleted(b MessageDeleted, users Resolver) rendition {
	name := users.Name(b.Previous.UserID)
	msg := fmt.Sprintf("Message deleted: [%s/%s] [%s] %s", name, b.Previous.UserID, b.Previous.TS, b.Previous.Text)
	msg += renderFiles(b.Previous.Files, FilesDeleted)
	return rendition{
		userName: name,
		userID:   b.Previous.UserID,
		message:  msg,
	}
}

// renderBotMessage uses the bot's own fields: bots are not directory users.
func renderBotMessage(b BotMessage) rendition {
	var msg strings.Builder
	fmt.Fprintf(&msg, "Bot message from '%s'", b.BotName)
	for _, a := range b.Attachments {
		fmt.Fprintf(&msg, "\n%s - %s\n%s", a.Title, a.TitleLink, a.Text)
	}
	return rendition{
		userName: b.Username,
		userID:   b.BotID,
		message:  msg.String(),
	}
}

func renderReaction(b Reaction) string {
	verb := "removed from"
	if b.Added {
		verb = "added to"
	}
	return fmt.Sprintf("Reaction :%s: %s %s [%s]", b.Name, verb, b.ItemType, b.ItemTS)
}

func renderUnhandled(ev Event) string {
	subtype := ""
	if ev.Subtype != "" {
		subtype = fmt.Sprintf("Message SubType: %s : ", ev.Subtype)
	}
	return fmt.Sprintf("Message Type: %s : %s%s (unhandled)", ev.Type, subtype, ev.Text)
}

// threadPrefix marks thread replies. An empty message stays empty.
func threadPrefix(ev Event, message string) string {
	if message == "" || !ev.ThreadTS.Found {
		return message
	}
	return fmt.Sprintf("Thread reply [%s] %s", ev.ThreadTS.Value, message)
}

func epoch(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
