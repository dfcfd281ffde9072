package chatlog

// Gate decides whether events in a room may be logged.
//
// A room the directory knows and marks private is never logged. A room the
// directory does not know is logged: events can arrive for a conversation
// before it has been synced, and dropping them silently loses history.
type Gate struct {
	dir Directory
}

// NewGate returns a Gate backed by dir.
func NewGate(dir Directory) Gate {
	return Gate{dir: dir}
}

// Resolve looks up roomID and reports whether it may be logged.
func (g Gate) Resolve(roomID string) (room Room, found, loggable bool) {
	if g.dir == nil || roomID == NoChannelID {
		return Room{}, false, true
	}
	room, found = g.dir.FindRoom(roomID)
	if !found {
		return Room{}, false, true
	}
	return room, true, !room.Private
}

// Loggable reports whether events in roomID may be logged.
func (g Gate) Loggable(roomID string) bool {
	_, _, ok := g.Resolve(roomID)
	return ok
}
