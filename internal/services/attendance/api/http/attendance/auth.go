package attendance

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/shiftproof/shiftproof/internal/platform/errors"
	"github.com/shiftproof/shiftproof/internal/platform/errors/i18n"
	"github.com/shiftproof/shiftproof/internal/platform/httpx"
	"github.com/shiftproof/shiftproof/internal/platform/requestctx"
)

// AuthConfig defines how bearer tokens are verified.
type AuthConfig struct {
	// Key is the shared HS256 secret of the identity provider.
	Key      []byte
	Issuer   string
	Audience string
	Now      func() time.Time
}

// Verifier validates bearer tokens and resolves the employee id.
type Verifier struct {
	key    []byte
	parser *jwt.Parser
}

// NewVerifier builds a Verifier. Issuer and audience are checked only when set.
func NewVerifier(cfg AuthConfig) (*Verifier, error) {
	if len(cfg.Key) == 0 {
		return nil, fmt.Errorf("auth key is required")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer := strings.TrimSpace(cfg.Issuer); issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience := strings.TrimSpace(cfg.Audience); audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	if cfg.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(cfg.Now))
	}
	return &Verifier{key: cfg.Key, parser: jwt.NewParser(opts...)}, nil
}

// EmployeeID verifies a raw token and returns its subject.
func (v *Verifier) EmployeeID(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse bearer token: %w", err)
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", errors.New("bearer token has no subject")
	}
	return subject, nil
}

// Authenticate negotiates the response locale, then requires a valid bearer
// token and stores its subject as the request user.
func Authenticate(v *Verifier) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestctx.WithLocale(r.Context(), i18n.Negotiate(r.Header.Get("Accept-Language")))
			r = r.WithContext(ctx)

			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, r, apperrors.New(apperrors.CodeUnauthenticated, "missing bearer token"))
				return
			}
			employeeID, err := v.EmployeeID(raw)
			if err != nil {
				writeError(w, r, apperrors.Wrap(apperrors.CodeUnauthenticated, "invalid bearer token", err))
				return
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithUserID(ctx, employeeID)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
