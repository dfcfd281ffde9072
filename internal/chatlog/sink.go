package chatlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Sink appends entries to per-room log files under a directory.
//
// Appends to the same file are serialized; appends to different files run
// in parallel. A failed write leaves the file at its previous size.
type Sink struct {
	dir   string
	clock func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSink returns a Sink writing under dir. clock defaults to time.Now.
func NewSink(dir string, clock func() time.Time) *Sink {
	if clock == nil {
		clock = time.Now
	}
	return &Sink{
		dir:   dir,
		clock: clock,
		locks: make(map[string]*sync.Mutex),
	}
}

// Dir returns the log directory.
func (s *Sink) Dir() string {
	return s.dir
}

// Path returns the log file for a room.
func (s *Sink) Path(roomID, roomName string) string {
	return filepath.Join(s.dir, LogFileName(roomID, roomName))
}

// LogFileName returns "<room_id>-<room_name>.log" with path separators
// replaced.
func LogFileName(roomID, roomName string) string {
	return safeName(roomID) + "-" + safeName(roomName) + ".log"
}

var pathReplacer = strings.NewReplacer("/", "_", `\`, "_")

func safeName(s string) string {
	return pathReplacer.Replace(s)
}

// Append writes one line for e. An entry with an empty message writes
// nothing.
func (s *Sink) Append(e Entry) (err error) {
	if e.Message == "" {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("chatlog: create log dir %s: %w", s.dir, err)
	}

	path := s.Path(e.RoomID, e.RoomName)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("chatlog: open %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("chatlog: close %s: %w", path, cerr)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("chatlog: stat %s: %w", path, err)
	}
	line := FormatLine(s.clock(), e) + "\n"
	n, err := f.WriteString(line)
	if err == nil && n < len(line) {
		err = io.ErrShortWrite
	}
	if err != nil {
		// Roll back whatever part of the line made it to disk.
		_ = f.Truncate(info.Size())
		return fmt.Errorf("chatlog: append %s: %w", path, err)
	}
	return nil
}

func (s *Sink) lockFor(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	return l
}
