package chatlog

// Lookup is the result of an optional field read or a directory lookup:
// either Found with a value or Missing.
type Lookup struct {
	Value string
	Found bool
}

// Missing is the empty lookup result.
var Missing = Lookup{}

// Found wraps a present value.
func Found(v string) Lookup {
	return Lookup{Value: v, Found: true}
}

// Or returns the value, or fallback when missing.
func (l Lookup) Or(fallback string) string {
	if l.Found {
		return l.Value
	}
	return fallback
}

// OrPlaceholder returns the value, or the placeholder for kind when missing.
func (l Lookup) OrPlaceholder(kind Kind) string {
	return l.Or(Placeholder(kind))
}

// FirstOf returns the first found lookup, in order.
func FirstOf(lookups ...Lookup) Lookup {
	for _, l := range lookups {
		if l.Found {
			return l
		}
	}
	return Missing
}

// Kind names what a lookup was for, so the placeholder policy lives in one
// place.
type Kind int

const (
	KindRoomID Kind = iota
	KindRoomName
	KindUserName
)

// Placeholder strings written in place of values that could not be resolved.
const (
	NoChannelID           = "no-channel-id"
	RoomNameNotDiscovered = "room-name-not-discovered"
	UserNameNotDiscovered = "user-name-not-discovered"
)

// Placeholder returns the text logged for an unresolved value of kind.
func Placeholder(kind Kind) string {
	switch kind {
	case KindRoomID:
		return NoChannelID
	case KindRoomName:
		return RoomNameNotDiscovered
	default:
		return UserNameNotDiscovered
	}
}

// User is a directory entry for a Slack user.
type User struct {
	ID   string
	Name string
}

// Room is a directory entry for a channel, group or DM.
type Room struct {
	ID      string
	Name    string
	Private bool
}

// Directory resolves IDs to users and rooms. Implementations must be safe
// for concurrent use and must not fail: a lookup error is a miss.
type Directory interface {
	FindUser(id string) (User, bool)
	FindRoom(id string) (Room, bool)
}

// Resolver maps user IDs to display names.
type Resolver struct {
	dir Directory
}

// NewResolver returns a Resolver backed by dir.
func NewResolver(dir Directory) Resolver {
	return Resolver{dir: dir}
}

// Lookup resolves a user ID. An empty ID is always missing.
func (r Resolver) Lookup(userID string) Lookup {
	if userID == "" || r.dir == nil {
		return Missing
	}
	u, ok := r.dir.FindUser(userID)
	if !ok || u.Name == "" {
		return Missing
	}
	return Found(u.Name)
}

// Name resolves a user ID to a display name or the placeholder.
func (r Resolver) Name(userID string) string {
	return r.Lookup(userID).OrPlaceholder(KindUserName)
}
