package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/signalbox/internal/config"
	"github.com/zulandar/signalbox/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the directory database",
		Long:  "Creates the database if needed (MySQL) and migrates the user, room and sync run tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	gormDB, err := db.Init(cfg.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}

	fmt.Fprintf(out, "Database %s ready\n", describeDatabase(cfg.Database))
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))
	return nil
}

func describeDatabase(cfg config.DatabaseConfig) string {
	if cfg.Driver == config.DriverMySQL {
		return fmt.Sprintf("mysql %s@%s:%d/%s", cfg.User, cfg.Host, cfg.Port, cfg.Name)
	}
	return fmt.Sprintf("sqlite %s", cfg.Path)
}
