package main

import (
	"fmt"
	"time"

	"github.com/zulandar/signalbox/internal/models"
)

// now is overridden in tests.
var now = time.Now

// formatRun summarizes a directory sync run.
func formatRun(run *models.SyncRun) string {
	if run == nil {
		return "Last sync: never"
	}
	s := fmt.Sprintf("Last sync: %s (%s, %s)", run.Status, run.Trigger, formatAge(now().Sub(run.StartedAt)))
	if run.CompletedAt != nil {
		s += fmt.Sprintf(", %d users, %d rooms", run.Users, run.Rooms)
	}
	if run.ErrorMessage != "" {
		s += ": " + run.ErrorMessage
	}
	return s
}

// formatAge renders a duration as a compact "ago" string (e.g. 90s -> "1m ago").
func formatAge(d time.Duration) string {
	switch {
	case d < 0:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
