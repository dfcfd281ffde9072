package chatlog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Tailer follows every log file of one room, including files created after
// the room is renamed.
type Tailer struct {
	dir     string
	roomID  string
	offsets map[string]int64
	sizes   map[string]int64 // file size seen by the previous call
}

// NewTailer returns a Tailer that starts at the beginning of every file.
func NewTailer(dir, roomID string) *Tailer {
	return &Tailer{
		dir:     dir,
		roomID:  roomID,
		offsets: make(map[string]int64),
		sizes:   make(map[string]int64),
	}
}

// SkipExisting moves past everything already written.
func (t *Tailer) SkipExisting() error {
	logs, err := FindLogs(t.dir, t.roomID)
	if err != nil {
		return err
	}
	for _, l := range logs {
		t.offsets[l.Name] = l.Size
		t.sizes[l.Name] = l.Size
	}
	return nil
}

// Poll returns the entries appended since the last call. The last entry of
// a file is held back until a later entry follows it or the file stops
// growing between two calls, since a multi-line entry may still be being
// written. A trailing partial line is always left for the next call.
func (t *Tailer) Poll() ([]Line, error) {
	logs, err := FindLogs(t.dir, t.roomID)
	if err != nil {
		return nil, err
	}
	var out []Line
	for _, l := range logs {
		prev, seen := t.sizes[l.Name]
		t.sizes[l.Name] = l.Size
		settled := seen && prev == l.Size

		off := t.offsets[l.Name]
		if l.Size <= off {
			continue
		}
		chunk, err := readRange(filepath.Join(t.dir, l.Name), off, l.Size)
		if err != nil {
			return out, err
		}
		end := bytes.LastIndexByte(chunk, '\n')
		if end < 0 {
			continue
		}
		chunk = chunk[:end+1]
		if !settled {
			chunk = chunk[:lastHeader(chunk)]
		}
		if len(chunk) == 0 {
			continue
		}
		lines, err := ReadLines(bytes.NewReader(chunk))
		if err != nil {
			return out, err
		}
		t.offsets[l.Name] = off + int64(len(chunk))
		out = append(out, lines...)
	}
	return out, nil
}

// lastHeader returns the offset of the last line in chunk that starts an
// entry, or 0 when there is none.
func lastHeader(chunk []byte) int {
	last, start := 0, 0
	for start < len(chunk) {
		end := bytes.IndexByte(chunk[start:], '\n')
		if end < 0 {
			end = len(chunk) - start
		}
		if _, err := ParseLine(string(chunk[start : start+end])); err == nil {
			last = start
		}
		start += end + 1
	}
	return last
}

func readRange(path string, from, to int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("chatlog: open %s: %w", path, err)
	}
	defer f.Close()
	buf := make([]byte, to-from)
	n, err := f.ReadAt(buf, from)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("chatlog: read %s: %w", path, err)
	}
	return buf[:n], nil
}
