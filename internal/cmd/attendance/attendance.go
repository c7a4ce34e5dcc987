// Package attendance parses attendance service flags and launches the service.
package attendance

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"strings"

	entrypoint "github.com/shiftproof/shiftproof/internal/platform/cmd"
	"github.com/shiftproof/shiftproof/internal/platform/config"
	attendanceapi "github.com/shiftproof/shiftproof/internal/services/attendance/api/http/attendance"
	server "github.com/shiftproof/shiftproof/internal/services/attendance/app"
)

// Config holds attendance command configuration.
type Config struct {
	Port                int     `env:"SHIFTPROOF_ATTENDANCE_PORT" envDefault:"8093"`
	HealthPort          int     `env:"SHIFTPROOF_ATTENDANCE_HEALTH_PORT" envDefault:"8094"`
	DBPath              string  `env:"SHIFTPROOF_ATTENDANCE_DB_PATH" envDefault:"data/attendance.db"`
	DefaultTimezone     string  `env:"SHIFTPROOF_DEFAULT_TIMEZONE" envDefault:"UTC"`
	DefaultRadiusMeters float64 `env:"SHIFTPROOF_DEFAULT_RADIUS_METERS" envDefault:"150"`
	AuthHMACKey         string  `env:"SHIFTPROOF_AUTH_HMAC_KEY"`
	AuthIssuer          string  `env:"SHIFTPROOF_AUTH_ISSUER"`
	AuthAudience        string  `env:"SHIFTPROOF_AUTH_AUDIENCE"`

	authKey []byte
}

// ParseConfig parses environment and flags into Config and validates it.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg, err := entrypoint.ParseConfig(fs, args, func(fs *flag.FlagSet, cfg *Config) {
		fs.IntVar(&cfg.Port, "port", cfg.Port, "The attendance HTTP server port")
		fs.IntVar(&cfg.HealthPort, "health-port", cfg.HealthPort, "The gRPC health server port")
		fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Path to the attendance SQLite database")
		fs.StringVar(&cfg.DefaultTimezone, "default-timezone", cfg.DefaultTimezone, "IANA timezone for projects without one")
		fs.Float64Var(&cfg.DefaultRadiusMeters, "default-radius", cfg.DefaultRadiusMeters, "Geofence radius in meters for projects without one")
	})
	if err != nil {
		return Config{}, err
	}

	if err := config.Required("SHIFTPROOF_AUTH_HMAC_KEY", cfg.AuthHMACKey); err != nil {
		return Config{}, err
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(cfg.AuthHMACKey))
	if err != nil {
		return Config{}, fmt.Errorf("decode SHIFTPROOF_AUTH_HMAC_KEY: %w", err)
	}
	if cfg.DefaultRadiusMeters <= 0 {
		return Config{}, fmt.Errorf("default radius must be positive, got %v", cfg.DefaultRadiusMeters)
	}
	cfg.authKey = key
	return cfg, nil
}

func (c Config) serverConfig() server.Config {
	return server.Config{
		HTTPAddr:            fmt.Sprintf(":%d", c.Port),
		HealthAddr:          fmt.Sprintf(":%d", c.HealthPort),
		DBPath:              c.DBPath,
		DefaultTimezone:     c.DefaultTimezone,
		DefaultRadiusMeters: c.DefaultRadiusMeters,
		Auth: attendanceapi.AuthConfig{
			Key:      c.authKey,
			Issuer:   c.AuthIssuer,
			Audience: c.AuthAudience,
		},
	}
}

// Run starts the attendance HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceAttendance, func(ctx context.Context) error {
		return server.Run(ctx, cfg.serverConfig())
	})
}
