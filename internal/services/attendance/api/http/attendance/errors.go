package attendance

import (
	"log"
	"net/http"

	"google.golang.org/protobuf/encoding/protojson"

	apperrors "github.com/shiftproof/shiftproof/internal/platform/errors"
	"github.com/shiftproof/shiftproof/internal/platform/errors/i18n"
	"github.com/shiftproof/shiftproof/internal/platform/httpx"
	"github.com/shiftproof/shiftproof/internal/platform/requestctx"
)

// writeError renders err as a google.rpc.Status body. Errors without a
// domain code are logged and hidden behind an internal error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	domainErr, ok := apperrors.As(err)
	if !ok {
		log.Printf("request failed method=%s path=%s request_id=%s err=%v", r.Method, r.URL.Path, r.Header.Get(httpx.RequestIDHeader), err)
		domainErr = apperrors.Wrap(apperrors.CodeUnknown, "internal error", err)
	}

	locale := requestctx.LocaleFromContext(r.Context())
	if locale == "" {
		locale = i18n.BaseLocale
	}
	message := i18n.GetCatalog(locale).Format(string(domainErr.Code), domainErr.Metadata)
	body, marshalErr := protojson.Marshal(domainErr.Status(locale, message).Proto())
	if marshalErr != nil {
		log.Printf("marshal error status code=%s err=%v", domainErr.Code, marshalErr)
		_ = httpx.WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(domainErr.Code.HTTPStatus())
	_, _ = w.Write(body)
}

// badRequest reports a malformed request body or parameter.
func badRequest(message string, cause error) error {
	return apperrors.Wrap(apperrors.CodeInvalidRequest, message, cause)
}
