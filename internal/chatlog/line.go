package chatlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// WallTimeLayout is the layout of the leading timestamp on every line.
const WallTimeLayout = "2006-01-02 15:04:05 -0700"

// Line is one parsed log entry.
type Line struct {
	Time     time.Time
	UserName string
	UserID   string
	TS       string
	Message  string
}

// lineRE matches an entry header. The user name is matched lazily so that
// names containing "/" still split on the last "/" before the user ID.
var lineRE = regexp.MustCompile(`^\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} [+-]\d{4})\] \[(.*?)/([^/\]]*)\] \[([^\]]*)\] (.*)$`)

// continuationIndent prefixes every continuation line of a multi-line
// message that does not already start with a tab, so only a real entry can
// put a header in column 0.
const continuationIndent = "  "

// FormatLine renders e stamped with wall time now, without a trailing
// newline.
func FormatLine(now time.Time, e Entry) string {
	return fmt.Sprintf("[%s] [%s/%s] [%s] %s", now.Format(WallTimeLayout), e.UserName, e.UserID, e.TS, indentContinuations(e.Message))
}

func indentContinuations(msg string) string {
	if !strings.Contains(msg, "\n") {
		return msg
	}
	parts := strings.Split(msg, "\n")
	for i := 1; i < len(parts); i++ {
		if !strings.HasPrefix(parts[i], "\t") {
			parts[i] = continuationIndent + parts[i]
		}
	}
	return strings.Join(parts, "\n")
}

// ParseLine parses a single header line.
func ParseLine(s string) (Line, error) {
	m := lineRE.FindStringSubmatch(strings.TrimRight(s, "\r\n"))
	if m == nil {
		return Line{}, fmt.Errorf("chatlog: not a log line: %q", s)
	}
	t, err := time.Parse(WallTimeLayout, m[1])
	if err != nil {
		return Line{}, fmt.Errorf("chatlog: parse wall time %q: %w", m[1], err)
	}
	return Line{
		Time:     t,
		UserName: m[2],
		UserID:   m[3],
		TS:       m[4],
		Message:  m[5],
	}, nil
}

// ReadLines parses a room log. Physical lines that do not start a new entry
// (multi-line text, file references, bot attachments) are appended to the
// previous entry's message with the continuation indent removed. Text
// before the first entry is ignored.
func ReadLines(r io.Reader) ([]Line, error) {
	var lines []Line
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		raw := sc.Text()
		if l, err := ParseLine(raw); err == nil {
			lines = append(lines, l)
			continue
		}
		if len(lines) > 0 {
			lines[len(lines)-1].Message += "\n" + strings.TrimPrefix(raw, continuationIndent)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("chatlog: read log: %w", err)
	}
	return lines, nil
}

// ReadFile parses the room log at path.
func ReadFile(path string) ([]Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("chatlog: open %s: %w", path, err)
	}
	defer f.Close()
	return ReadLines(f)
}

// LogFile describes one room log on disk.
type LogFile struct {
	Name     string
	RoomID   string
	RoomName string
	Size     int64
	ModTime  time.Time
}

// ListLogs returns the room logs in dir sorted by file name. A missing
// directory yields no logs.
func ListLogs(dir string) ([]LogFile, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("chatlog: list %s: %w", dir, err)
	}
	var logs []LogFile
	for _, de := range entries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".log" {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		id, name := splitLogName(de.Name())
		logs = append(logs, LogFile{
			Name:     de.Name(),
			RoomID:   id,
			RoomName: name,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].Name < logs[j].Name })
	return logs, nil
}

// FindLogs returns the logs belonging to roomID.
func FindLogs(dir, roomID string) ([]LogFile, error) {
	all, err := ListLogs(dir)
	if err != nil {
		return nil, err
	}
	var out []LogFile
	for _, l := range all {
		if l.RoomID == roomID {
			out = append(out, l)
		}
	}
	return out, nil
}

// splitLogName splits "<room_id>-<room_name>.log". Slack IDs never contain
// "-"; the unknown-room placeholder does.
func splitLogName(file string) (roomID, roomName string) {
	base := strings.TrimSuffix(file, ".log")
	if strings.HasPrefix(base, NoChannelID+"-") {
		return NoChannelID, strings.TrimPrefix(base, NoChannelID+"-")
	}
	id, name, ok := strings.Cut(base, "-")
	if !ok {
		return base, ""
	}
	return id, name
}
