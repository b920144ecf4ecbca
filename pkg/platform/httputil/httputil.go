// Package httputil centralizes JSON envelopes and domain-error translation so
// every handler answers with the same shape.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "veriloc/pkg/domain-errors"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError translates a domain error into the standard error envelope.
// Internal errors omit the description so infrastructure details never leak
// to callers; all other codes include it for remediation.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)

	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal && code != dErrors.CodeExportFailed && code != dErrors.CodeErasureFailed {
		var de *dErrors.Error
		if errors.As(err, &de) && de.Message != "" {
			body["error_description"] = de.Message
		}
	}
	WriteJSON(w, status, body)
}

// DecodeJSON decodes the request body into T. On failure it writes a
// bad_request envelope and returns ok=false so handlers can bail out early.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if logger != nil {
			logger.WarnContext(r.Context(), "request body decode failed", "error", err)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		var zero T
		return zero, false
	}
	return req, true
}
