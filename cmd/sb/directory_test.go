package main

import (
	"strings"
	"testing"
	"time"

	"github.com/zulandar/signalbox/internal/config"
	"github.com/zulandar/signalbox/internal/directory"
	"github.com/zulandar/signalbox/internal/models"
)

func seedDirectory(t *testing.T, cfgPath string) {
	t.Helper()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	store, err := openStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertUsers([]models.User{
		{ID: "U2", Name: "Alice Liddell", MentionName: "alice"},
		{ID: "B1", Name: "deploybot", IsBot: true},
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertRooms([]models.Room{
		{ID: "C1", Name: "general"},
		{ID: "G1", Name: "secret", IsPrivate: true},
	}); err != nil {
		t.Fatal(err)
	}
	r, err := store.StartRun(directory.TriggerManual, time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.FinishRun(r, 2, 2, nil, time.Now().Add(-2*time.Hour)); err != nil {
		t.Fatal(err)
	}
}

func TestDirectoryList_All(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	seedDirectory(t, cfgPath)

	out, err := run(t, "directory", "list", "-c", cfgPath)
	if err != nil {
		t.Fatalf("directory list: %v", err)
	}
	for _, want := range []string{"Users (2)", "Alice Liddell", "deploybot", "bot", "Rooms (2)", "general", "private", "Last sync: succeeded (manual, 2h ago), 2 users, 2 rooms"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDirectoryList_Rooms(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	seedDirectory(t, cfgPath)

	out, err := run(t, "dir", "list", "rooms", "-c", cfgPath)
	if err != nil {
		t.Fatalf("directory list rooms: %v", err)
	}
	if strings.Contains(out, "Users (") {
		t.Errorf("rooms listing includes users:\n%s", out)
	}
	if !strings.Contains(out, "Rooms (2)") {
		t.Errorf("output = %s", out)
	}
}

func TestDirectoryList_Empty(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	out, err := run(t, "directory", "list", "users", "-c", cfgPath)
	if err != nil {
		t.Fatalf("directory list users: %v", err)
	}
	if !strings.Contains(out, "Users (0)") || !strings.Contains(out, "Last sync: never") {
		t.Errorf("output = %s", out)
	}
}

func TestDirectoryList_UnknownKind(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	_, err := run(t, "directory", "list", "channels", "-c", cfgPath)
	if err == nil || !strings.Contains(err.Error(), "unknown kind") {
		t.Errorf("err = %v, want unknown kind", err)
	}
}

func TestFlags(t *testing.T) {
	if got := flags(); got != "-" {
		t.Errorf("flags() = %q, want -", got)
	}
	if got := flags(flagBit{true, "private"}, flagBit{false, "im"}, flagBit{true, "archived"}); got != "private,archived" {
		t.Errorf("flags = %q", got)
	}
}
