// Package cmd holds the startup plumbing shared by shiftproof binaries.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shiftproof/shiftproof/internal/platform/config"
	"github.com/shiftproof/shiftproof/internal/platform/otel"
)

// Service names double as telemetry resource names and log prefixes.
const (
	ServiceAttendance = "attendance"
	ServiceTimesheet  = "timesheet"
)

const telemetryFlushTimeout = 5 * time.Second

// ParseConfig fills a T from the environment, then parses args with fs.
// bind registers flags on fs; flags registered with the env-derived values as
// defaults override the environment only when passed.
func ParseConfig[T any](fs *flag.FlagSet, args []string, bind func(*flag.FlagSet, *T)) (T, error) {
	var cfg T
	if fs == nil {
		return cfg, errors.New("flag set is required")
	}
	if err := config.ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	if bind != nil {
		bind(fs, &cfg)
	}
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LogPrefix returns the bracketed log prefix for a service, e.g. "[ATTENDANCE] ".
func LogPrefix(service string) string {
	service = strings.TrimSpace(service)
	if service == "" {
		return ""
	}
	return "[" + strings.ToUpper(service) + "] "
}

// RunWithTelemetry sets the log prefix, installs tracing for service and runs
// run. Buffered spans are flushed after run returns.
func RunWithTelemetry(ctx context.Context, service string, run func(context.Context) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return errors.New("service name is required")
	}
	if run == nil {
		return errors.New("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	log.SetPrefix(LogPrefix(service))

	shutdown, err := otel.Setup(ctx, service)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer flushTelemetry(service, shutdown)
	return run(ctx)
}

func flushTelemetry(service string, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Printf("telemetry shutdown service=%s err=%v", service, err)
	}
}
