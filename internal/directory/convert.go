package directory

import (
	"time"

	"github.com/slack-go/slack"
	"github.com/zulandar/signalbox/internal/chatlog"
	"github.com/zulandar/signalbox/internal/models"
)

// DisplayName is the name written to logs for a Slack user: the real name
// when set, otherwise the handle.
func DisplayName(u slack.User) string {
	if u.RealName != "" {
		return u.RealName
	}
	if u.Profile.RealName != "" {
		return u.Profile.RealName
	}
	return u.Name
}

func userFromSlack(u slack.User, now time.Time) models.User {
	return models.User{
		ID:          u.ID,
		Name:        DisplayName(u),
		MentionName: u.Name,
		RealName:    u.RealName,
		IsBot:       u.IsBot,
		Deleted:     u.Deleted,
		UpdatedAt:   now,
	}
}

// roomFromSlack converts a conversation. Direct messages have no name of
// their own and are named after the other member, resolved with userName.
func roomFromSlack(ch slack.Channel, userName func(string) string, now time.Time) models.Room {
	name := ch.Name
	if ch.IsIM {
		name = "im-" + userName(ch.User)
	}
	if name == "" {
		name = chatlog.RoomNameNotDiscovered
	}
	return models.Room{
		ID:         ch.ID,
		Name:       name,
		IsPrivate:  ch.IsPrivate,
		IsIM:       ch.IsIM,
		IsMPIM:     ch.IsMpIM,
		IsArchived: ch.IsArchived,
		Topic:      truncate(ch.Topic.Value, 256),
		UpdatedAt:  now,
	}
}

func toChatlogUser(u models.User) chatlog.User {
	return chatlog.User{ID: u.ID, Name: u.Name}
}

func toChatlogRoom(r models.Room) chatlog.Room {
	return chatlog.Room{ID: r.ID, Name: r.Name, Private: r.IsPrivate}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
