package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/signalbox/internal/chatlog"
)

const heartbeatInterval = 15 * time.Second

// stream tails a room's logs as server-sent events. Entries already on
// disk when the client connects are not replayed.
func (h *handlers) stream(c *gin.Context) {
	roomID := c.Param("room")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	t := chatlog.NewTailer(h.dir, roomID)
	if err := t.SkipExisting(); err != nil {
		writeSSE(c.Writer, "error", map[string]string{"error": err.Error()})
		c.Writer.Flush()
		return
	}

	writeSSE(c.Writer, "connected", map[string]string{"room": roomID})
	c.Writer.Flush()

	ctx := c.Request.Context()
	ticker := time.NewTicker(h.poll)
	heartbeat := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			writeSSE(c.Writer, "heartbeat", map[string]string{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			c.Writer.Flush()
		case <-ticker.C:
			lines, err := t.Poll()
			if err != nil {
				writeSSE(c.Writer, "error", map[string]string{"error": err.Error()})
				c.Writer.Flush()
				continue
			}
			for _, l := range lines {
				writeSSE(c.Writer, "entry", toEntry(l))
			}
			if len(lines) > 0 {
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
