// Package authkey generates the shared bearer-token key and signs local
// development tokens with it.
package authkey

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// EnvKey is the variable the attendance service reads the key from.
const EnvKey = "SHIFTPROOF_AUTH_HMAC_KEY"

// Config holds key generation and token signing options.
type Config struct {
	Bytes int
	// Key reuses an existing base64 key instead of generating one.
	Key string
	// Employee, when set, signs a token with this subject.
	Employee string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Bytes: 32, TTL: 12 * time.Hour}
	fs.IntVar(&cfg.Bytes, "bytes", cfg.Bytes, "number of random key bytes")
	fs.StringVar(&cfg.Key, "key", "", "existing base64 key (default: generate one)")
	fs.StringVar(&cfg.Employee, "employee", "", "sign a bearer token for this employee id")
	fs.StringVar(&cfg.Issuer, "issuer", "", "token issuer claim")
	fs.StringVar(&cfg.Audience, "audience", "", "token audience claim")
	fs.DurationVar(&cfg.TTL, "ttl", cfg.TTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run writes the key as an env assignment and, when requested, a signed token.
func Run(cfg Config, out io.Writer, reader io.Reader, now time.Time) error {
	if out == nil {
		return errors.New("output is required")
	}
	key, err := resolveKey(cfg, reader)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(out, "%s=%s\n", EnvKey, base64.StdEncoding.EncodeToString(key)); err != nil {
		return err
	}

	employee := strings.TrimSpace(cfg.Employee)
	if employee == "" {
		return nil
	}
	if cfg.TTL <= 0 {
		return errors.New("ttl must be positive")
	}
	claims := jwt.RegisteredClaims{
		Subject:   employee,
		Issuer:    strings.TrimSpace(cfg.Issuer),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
	}
	if audience := strings.TrimSpace(cfg.Audience); audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	_, err = fmt.Fprintf(out, "TOKEN=%s\n", token)
	return err
}

func resolveKey(cfg Config, reader io.Reader) ([]byte, error) {
	if raw := strings.TrimSpace(cfg.Key); raw != "" {
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("decode key: %w", err)
		}
		return key, nil
	}
	if cfg.Bytes <= 0 {
		return nil, errors.New("bytes must be greater than zero")
	}
	if reader == nil {
		reader = rand.Reader
	}
	key := make([]byte, cfg.Bytes)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("generate random bytes: %w", err)
	}
	return key, nil
}
