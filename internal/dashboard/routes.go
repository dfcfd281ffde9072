package dashboard

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/signalbox/internal/directory"
)

const (
	defaultEntryLimit = 100
	maxEntryLimit     = 1000
)

type handlers struct {
	dir   string
	store *directory.Store
	poll  time.Duration // stream poll interval
}

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, h *handlers) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/rooms", h.rooms)
	api.GET("/rooms/:room/entries", h.entries)
	api.GET("/rooms/:room/stream", h.stream)
	api.GET("/directory/status", h.status)
}

func (h *handlers) rooms(c *gin.Context) {
	rows, err := RoomSummary(h.dir, h.store)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rows})
}

func (h *handlers) entries(c *gin.Context) {
	limit := defaultEntryLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxEntryLimit)
	}

	entries, err := RoomEntries(h.dir, c.Param("room"), c.Query("user"), limit)
	if errors.Is(err, ErrNoLogs) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": c.Param("room"), "entries": entries})
}

func (h *handlers) status(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "directory not configured"})
		return
	}
	run, err := h.store.LastRun()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if run == nil {
		c.JSON(http.StatusOK, gin.H{"last_run": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"last_run": SyncStatus{
		Trigger:     run.Trigger,
		Status:      run.Status,
		Users:       run.Users,
		Rooms:       run.Rooms,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Error:       run.ErrorMessage,
	}})
}
