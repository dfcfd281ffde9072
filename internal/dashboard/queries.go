package dashboard

import (
	"errors"
	"path/filepath"
	"sort"
	"time"

	"github.com/zulandar/signalbox/internal/chatlog"
	"github.com/zulandar/signalbox/internal/directory"
)

// ErrNoLogs is returned when a room has no log files.
var ErrNoLogs = errors.New("dashboard: no logs for room")

// RoomRow holds one room for display. A room renamed while logging has
// several files; they are folded into one row.
type RoomRow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Files     []string  `json:"files"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
	Private   bool      `json:"private"`
	Known     bool      `json:"known"` // present in the directory
}

// Entry is one log entry as served over the API.
type Entry struct {
	Time     time.Time `json:"time"`
	UserName string    `json:"user_name"`
	UserID   string    `json:"user_id"`
	TS       string    `json:"ts,omitempty"`
	Message  string    `json:"message"`
}

// SyncStatus summarizes the most recent directory sync.
type SyncStatus struct {
	Trigger     string     `json:"trigger"`
	Status      string     `json:"status"`
	Users       int        `json:"users"`
	Rooms       int        `json:"rooms"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// RoomSummary lists the rooms that have logs in dir, most recently written
// first. Names come from the directory when store is set, else from the
// newest log file name.
func RoomSummary(dir string, store *directory.Store) ([]RoomRow, error) {
	logs, err := chatlog.ListLogs(dir)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*RoomRow)
	var order []string
	for _, l := range logs {
		row, ok := byID[l.RoomID]
		if !ok {
			row = &RoomRow{ID: l.RoomID}
			byID[l.RoomID] = row
			order = append(order, l.RoomID)
		}
		row.Files = append(row.Files, l.Name)
		row.Size += l.Size
		if !l.ModTime.Before(row.UpdatedAt) {
			row.UpdatedAt = l.ModTime
			row.Name = l.RoomName
		}
	}

	rows := make([]RoomRow, 0, len(order))
	for _, id := range order {
		row := byID[id]
		if store != nil {
			room, found, err := store.Room(id)
			if err != nil {
				return nil, err
			}
			if found {
				row.Name = room.Name
				row.Private = room.IsPrivate
				row.Known = true
			}
		}
		rows = append(rows, *row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].UpdatedAt.After(rows[j].UpdatedAt) })
	return rows, nil
}

// RoomEntries returns the last limit entries logged for roomID across all
// of its log files, oldest first. A non-empty user keeps only entries whose
// user ID or name matches.
func RoomEntries(dir, roomID, user string, limit int) ([]Entry, error) {
	logs, err := chatlog.FindLogs(dir, roomID)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, ErrNoLogs
	}

	var entries []Entry
	for _, l := range logs {
		lines, err := chatlog.ReadFile(filepath.Join(dir, l.Name))
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			if user != "" && line.UserID != user && line.UserName != user {
				continue
			}
			entries = append(entries, toEntry(line))
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Time.Before(entries[j].Time) })
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

func toEntry(l chatlog.Line) Entry {
	return Entry{
		Time:     l.Time,
		UserName: l.UserName,
		UserID:   l.UserID,
		TS:       l.TS,
		Message:  l.Message,
	}
}
