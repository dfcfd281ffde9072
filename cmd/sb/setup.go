package main

import (
	"fmt"
	"io"

	"github.com/zulandar/signalbox/internal/config"
	"github.com/zulandar/signalbox/internal/db"
	"github.com/zulandar/signalbox/internal/directory"
	"github.com/zulandar/signalbox/internal/logging"
)

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// setupLogging installs the diagnostics logger on w.
func setupLogging(cfg *config.Config, w io.Writer) {
	logging.Init(w, logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)
}

// openStore prepares the directory database and wraps it in a Store.
func openStore(cfg *config.Config) (*directory.Store, error) {
	gormDB, err := db.Init(cfg.Database)
	if err != nil {
		return nil, err
	}
	return directory.NewStore(gormDB), nil
}
