package db

import (
	"path/filepath"
	"strings"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/zulandar/signalbox/internal/config"
	"github.com/zulandar/signalbox/internal/models"
)

func mysqlConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Driver:   config.DriverMySQL,
		Host:     "10.0.0.5",
		Port:     3307,
		User:     "audit",
		Password: "hunter2",
		Name:     "signalbox_prod",
	}
}

func TestDSN(t *testing.T) {
	dsn := DSN(mysqlConfig(), "signalbox_prod")

	parsed, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN(%q): %v", dsn, err)
	}
	if parsed.User != "audit" || parsed.Passwd != "hunter2" {
		t.Errorf("credentials = %s/%s, want audit/hunter2", parsed.User, parsed.Passwd)
	}
	if parsed.Net != "tcp" || parsed.Addr != "10.0.0.5:3307" {
		t.Errorf("addr = %s(%s), want tcp(10.0.0.5:3307)", parsed.Net, parsed.Addr)
	}
	if parsed.DBName != "signalbox_prod" {
		t.Errorf("DBName = %q, want signalbox_prod", parsed.DBName)
	}
	if !parsed.ParseTime {
		t.Error("ParseTime = false, want true")
	}
}

func TestDSN_Format(t *testing.T) {
	dsn := DSN(mysqlConfig(), "mydb")
	if !strings.HasPrefix(dsn, "audit:hunter2@tcp(") {
		t.Errorf("DSN should start with audit:hunter2@tcp(: %s", dsn)
	}
	if !strings.Contains(dsn, "10.0.0.5:3307") {
		t.Errorf("DSN should contain host:port: %s", dsn)
	}
	if !strings.Contains(dsn, "/mydb?") {
		t.Errorf("DSN should contain /database?: %s", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("DSN missing parseTime=true: %s", dsn)
	}
}

func TestDSN_NoDatabase(t *testing.T) {
	dsn := DSN(mysqlConfig(), "")
	parsed, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN(%q): %v", dsn, err)
	}
	if parsed.DBName != "" {
		t.Errorf("DBName = %q, want empty", parsed.DBName)
	}
}

func TestDialector(t *testing.T) {
	tests := []struct {
		driver string
		name   string
	}{
		{config.DriverSQLite, "sqlite"},
		{"", "sqlite"},
		{config.DriverMySQL, "mysql"},
	}
	for _, tt := range tests {
		cfg := mysqlConfig()
		cfg.Driver = tt.driver
		cfg.Path = ":memory:"
		d, err := Dialector(cfg)
		if err != nil {
			t.Fatalf("Dialector(%q): %v", tt.driver, err)
		}
		if d.Name() != tt.name {
			t.Errorf("Dialector(%q).Name() = %q, want %q", tt.driver, d.Name(), tt.name)
		}
	}
	if _, err := Dialector(config.DatabaseConfig{Driver: "postgres"}); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestAllModels_Count(t *testing.T) {
	models := AllModels()
	if len(models) != 3 {
		t.Errorf("AllModels() returned %d models, want 3", len(models))
	}
}

func TestInit_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signalbox.db")
	db, err := Init(config.DatabaseConfig{Driver: config.DriverSQLite, Path: path})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	for _, m := range AllModels() {
		if !db.Migrator().HasTable(m) {
			t.Errorf("table for %T not created", m)
		}
	}

	if err := db.Create(&models.Room{ID: "C1", Name: "general"}).Error; err != nil {
		t.Fatalf("create room: %v", err)
	}
	// Migrating again keeps existing rows.
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("second AutoMigrate: %v", err)
	}
	var n int64
	db.Model(&models.Room{}).Count(&n)
	if n != 1 {
		t.Errorf("rooms = %d, want 1", n)
	}
}

func TestConnect_Error(t *testing.T) {
	// Port 1 is unlikely to have a MySQL server; expect connection error.
	cfg := mysqlConfig()
	cfg.Host, cfg.Port = "127.0.0.1", 1
	_, err := Connect(cfg)
	if err == nil {
		t.Fatal("expected error connecting to invalid port")
	}
	if !strings.Contains(err.Error(), "db: connect to") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db: connect to")
	}
}

func TestConnectAdmin_Error(t *testing.T) {
	cfg := mysqlConfig()
	cfg.Host, cfg.Port = "127.0.0.1", 1
	_, err := ConnectAdmin(cfg)
	if err == nil {
		t.Fatal("expected error connecting to invalid port")
	}
	if !strings.Contains(err.Error(), "db: admin connect to") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db: admin connect to")
	}
}
