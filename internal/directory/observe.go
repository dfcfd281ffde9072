package directory

import (
	"encoding/json"
	"fmt"

	"github.com/slack-go/slack"
	"github.com/zulandar/signalbox/internal/chatlog"
	"github.com/zulandar/signalbox/internal/models"
)

// Directory-changing event types.
const (
	eventUserChange     = "user_change"
	eventTeamJoin       = "team_join"
	eventChannelCreated = "channel_created"
	eventChannelRename  = "channel_rename"
	eventGroupRename    = "group_rename"
)

// Observe applies events that change the directory so lookups reflect them
// before the next sync. Other event types are ignored.
func (d *Directory) Observe(eventType string, rec chatlog.Record) error {
	switch eventType {
	case eventUserChange, eventTeamJoin:
		raw, ok := rec.Rec("user")
		if !ok {
			return fmt.Errorf("directory: %s event without user", eventType)
		}
		var u slack.User
		if err := remarshal(raw, &u); err != nil {
			return fmt.Errorf("directory: decode %s user: %w", eventType, err)
		}
		if u.ID == "" {
			return fmt.Errorf("directory: %s event without user id", eventType)
		}
		return d.store.UpsertUsers([]models.User{userFromSlack(u, d.now())})

	case eventChannelCreated, eventChannelRename, eventGroupRename:
		ch, ok := rec.Rec("channel")
		if !ok {
			return fmt.Errorf("directory: %s event without channel", eventType)
		}
		id, name := ch.Str("id"), ch.Str("name")
		if !id.Found || id.Value == "" || !name.Found {
			return fmt.Errorf("directory: %s event without channel id or name", eventType)
		}
		return d.store.RenameRoom(id.Value, name.Value, eventType == eventGroupRename, d.now())
	}
	return nil
}

func remarshal(in chatlog.Record, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
