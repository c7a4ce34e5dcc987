// Package timesheet exports a project's monthly timesheets to a workbook.
package timesheet

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	entrypoint "github.com/shiftproof/shiftproof/internal/platform/cmd"
	"github.com/shiftproof/shiftproof/internal/services/attendance/export"
	"github.com/shiftproof/shiftproof/internal/services/attendance/service"
	attendancesqlite "github.com/shiftproof/shiftproof/internal/services/attendance/storage/sqlite"
)

// Config holds timesheet export configuration.
type Config struct {
	DBPath          string `env:"SHIFTPROOF_ATTENDANCE_DB_PATH" envDefault:"data/attendance.db"`
	DefaultTimezone string `env:"SHIFTPROOF_DEFAULT_TIMEZONE" envDefault:"UTC"`
	ProjectID       string
	Month           string
	Timezone        string
	// Out is the workbook path; "-" writes to stdout.
	Out string
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg, err := entrypoint.ParseConfig(fs, args, func(fs *flag.FlagSet, cfg *Config) {
		fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Path to the attendance SQLite database")
		fs.StringVar(&cfg.ProjectID, "project", "", "Project whose members are exported")
		fs.StringVar(&cfg.Month, "month", "", "Month to export, YYYY-MM")
		fs.StringVar(&cfg.Timezone, "timezone", "", "IANA timezone (default: project timezone)")
		fs.StringVar(&cfg.Out, "out", "", "Output path (default: timesheets-<project>-<month>.xlsx, - for stdout)")
	})
	if err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return Config{}, errors.New("-project is required")
	}
	if strings.TrimSpace(cfg.Month) == "" {
		return Config{}, errors.New("-month is required")
	}
	if cfg.Out == "" {
		cfg.Out = fmt.Sprintf("timesheets-%s-%s.xlsx", cfg.ProjectID, cfg.Month)
	}
	return cfg, nil
}

// Run computes every member's month and writes the workbook.
func Run(ctx context.Context, cfg Config, stdout io.Writer) error {
	loc, err := time.LoadLocation(strings.TrimSpace(cfg.DefaultTimezone))
	if err != nil {
		return fmt.Errorf("load default timezone: %w", err)
	}
	store, err := attendancesqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open attendance store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close attendance store: %v", err)
		}
	}()

	svc, err := service.New(
		service.Stores{Events: store, Challenges: store, Registry: store},
		service.Config{DefaultLocation: loc},
	)
	if err != nil {
		return err
	}
	sheets, err := svc.ProjectTimesheets(ctx, cfg.ProjectID, cfg.Month, cfg.Timezone)
	if err != nil {
		return err
	}

	if cfg.Out == "-" {
		return export.WriteWorkbook(stdout, sheets)
	}
	file, err := os.Create(cfg.Out)
	if err != nil {
		return fmt.Errorf("create %s: %w", cfg.Out, err)
	}
	if err := export.WriteWorkbook(file, sheets); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", cfg.Out, err)
	}
	log.Printf("timesheets exported project=%s month=%s employees=%d out=%s", cfg.ProjectID, cfg.Month, len(sheets), cfg.Out)
	return nil
}
