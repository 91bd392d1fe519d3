// Package httputil centralizes JSON encoding and domain error translation
// for the HTTP layer so every handler emits the same envelopes.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	dErrors "vigil/pkg/domain-errors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into a JSON error envelope. Internal
// and infrastructure failures omit the description so storage details never
// leak to callers; cooldown rejections carry a Retry-After header.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := statusOf(code)

	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal && code != dErrors.CodeUnavailable {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body["error_description"] = de.Message
			if de.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(de.RetryAfter))
			}
		}
	}

	WriteJSON(w, status, body)
}

// Decode parses the JSON request body into T. On failure it writes an
// invalid_input envelope and returns false; the handler should just return.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if logger != nil {
			logger.WarnContext(r.Context(), "request decode failed", "error", err)
		}
		WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "malformed request body"))
		return req, false
	}
	return req, true
}

func statusOf(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput, dErrors.CodePolicyInvalid:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeInvariantViolation:
		return http.StatusConflict
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeCaptchaRequired:
		return http.StatusForbidden
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
