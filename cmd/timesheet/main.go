// Package main exports a project's monthly timesheets to an XLSX workbook.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	timesheetcmd "github.com/shiftproof/shiftproof/internal/cmd/timesheet"
	entrypoint "github.com/shiftproof/shiftproof/internal/platform/cmd"
	"github.com/shiftproof/shiftproof/internal/platform/config"
)

func main() {
	cfg, err := timesheetcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	config.ExitOnError("parse flags", err)
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceTimesheet))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := timesheetcmd.Run(ctx, cfg, os.Stdout); err != nil {
		log.Fatalf("export timesheets: %v", err)
	}
}
