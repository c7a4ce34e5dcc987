package attendance

import (
	"flag"
	"testing"
)

const testKey = "c2VjcmV0LWtleQ==" // "secret-key"

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv("SHIFTPROOF_AUTH_HMAC_KEY", testKey)

	fs := flag.NewFlagSet("attendance", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 8093 || cfg.HealthPort != 8094 {
		t.Fatalf("ports = %d/%d, want 8093/8094", cfg.Port, cfg.HealthPort)
	}
	if cfg.DBPath != "data/attendance.db" || cfg.DefaultTimezone != "UTC" || cfg.DefaultRadiusMeters != 150 {
		t.Fatalf("defaults = %+v", cfg)
	}
	if string(cfg.authKey) != "secret-key" {
		t.Fatalf("auth key = %q, want secret-key", cfg.authKey)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("SHIFTPROOF_AUTH_HMAC_KEY", testKey)
	t.Setenv("SHIFTPROOF_ATTENDANCE_PORT", "9000")
	t.Setenv("SHIFTPROOF_AUTH_ISSUER", "id.example")

	fs := flag.NewFlagSet("attendance", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-port", "9001", "-default-timezone", "Europe/Berlin"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9001 {
		t.Fatalf("port = %d, want flag override 9001", cfg.Port)
	}
	srv := cfg.serverConfig()
	if srv.HTTPAddr != ":9001" || srv.DefaultTimezone != "Europe/Berlin" || srv.Auth.Issuer != "id.example" {
		t.Fatalf("server config = %+v", srv)
	}
}

func TestParseConfigRequiresKey(t *testing.T) {
	t.Setenv("SHIFTPROOF_AUTH_HMAC_KEY", "")

	fs := flag.NewFlagSet("attendance", flag.ContinueOnError)
	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatal("expected error for missing key")
	}

	t.Setenv("SHIFTPROOF_AUTH_HMAC_KEY", "%%%")
	fs = flag.NewFlagSet("attendance", flag.ContinueOnError)
	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatal("expected error for undecodable key")
	}
}

func TestParseConfigRejectsRadius(t *testing.T) {
	t.Setenv("SHIFTPROOF_AUTH_HMAC_KEY", testKey)

	fs := flag.NewFlagSet("attendance", flag.ContinueOnError)
	if _, err := ParseConfig(fs, []string{"-default-radius", "0"}); err == nil {
		t.Fatal("expected error for zero radius")
	}
}
