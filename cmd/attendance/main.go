// Package main starts the attendance HTTP service process lifecycle.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	attendancecmd "github.com/shiftproof/shiftproof/internal/cmd/attendance"
	"github.com/shiftproof/shiftproof/internal/platform/config"
)

func main() {
	cfg, err := attendancecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	config.ExitOnError("parse config", err)
	log.SetPrefix("[ATTENDANCE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := attendancecmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
