package models

import (
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestUser_Fields(t *testing.T) {
	typ := reflect.TypeOf(User{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "size:32")
	assertGormTag(t, typ, "Name", "not null")
	assertGormTag(t, typ, "MentionName", "size:128")
	assertGormTag(t, typ, "IsBot", "default:false")

	assertFieldType(t, typ, "ID", "string")
	assertFieldType(t, typ, "Deleted", "bool")
	assertFieldType(t, typ, "UpdatedAt", "time.Time")
}

func TestRoom_Fields(t *testing.T) {
	typ := reflect.TypeOf(Room{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "size:32")
	assertGormTag(t, typ, "Name", "not null")
	assertGormTag(t, typ, "Name", "index")
	assertGormTag(t, typ, "IsPrivate", "default:false")
	assertGormTag(t, typ, "IsPrivate", "index")
	assertGormTag(t, typ, "Topic", "size:256")

	assertFieldType(t, typ, "IsPrivate", "bool")
	assertFieldType(t, typ, "IsIM", "bool")
	assertFieldType(t, typ, "UpdatedAt", "time.Time")
}

func TestSyncRun_Fields(t *testing.T) {
	typ := reflect.TypeOf(SyncRun{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "autoIncrement")
	assertGormTag(t, typ, "Trigger", "not null")
	assertGormTag(t, typ, "Status", "default:running")
	assertGormTag(t, typ, "ErrorMessage", "type:text")

	assertFieldType(t, typ, "Users", "int")
	assertFieldType(t, typ, "StartedAt", "time.Time")
	assertFieldType(t, typ, "CompletedAt", "*time.Time")
}
