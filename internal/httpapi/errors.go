package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"matchbook.org/internal/account"
	"matchbook.org/internal/audit"
	"matchbook.org/internal/auth"
	"matchbook.org/internal/obs"
)

const (
	msgUserExists         = "User already exists"
	msgUserNotFound       = "User not found"
	msgInvalidCredentials = "Invalid email or password"
	msgUnauthorized       = "Unauthorized"
	msgInternal           = "Internal server error"
	msgTimeout            = "Request timed out"
)

// envelope is the body shape of every account endpoint.
type envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, code int, message string, data any) {
	writeJSON(w, code, envelope{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, code int, message string) {
	writeJSON(w, code, envelope{Message: message, RequestID: requestIDFrom(r)})
}

func requestIDFrom(r *http.Request) string {
	if r == nil {
		return ""
	}
	return audit.RequestIDFromContext(r.Context())
}

// decodeJSON reads exactly one JSON object into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: request body too large", account.ErrInvalidInput)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is required", account.ErrInvalidInput)
		default:
			return fmt.Errorf("%w: malformed JSON: %s", account.ErrInvalidInput, err.Error())
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must contain a single JSON object", account.ErrInvalidInput)
	}
	return nil
}

// fail maps a workflow error onto the response. notFound is the status used
// for account.ErrNotFound, which differs between login and profile lookup.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error, notFound int) {
	switch {
	case errors.Is(err, account.ErrAlreadyExists):
		writeError(w, r, http.StatusBadRequest, msgUserExists)
	case errors.Is(err, account.ErrNotFound):
		writeError(w, r, notFound, msgUserNotFound)
	case errors.Is(err, account.ErrInvalidCredentials):
		writeError(w, r, http.StatusBadRequest, msgInvalidCredentials)
	case errors.Is(err, account.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, inputDetail(err))
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, msgUnauthorized)
	case errors.Is(err, context.DeadlineExceeded):
		obs.Logger().Warn("request deadline exceeded",
			"request_id", requestIDFrom(r), "path", r.URL.Path)
		writeError(w, r, http.StatusServiceUnavailable, msgTimeout)
	default:
		obs.Logger().Error("request failed",
			"request_id", requestIDFrom(r), "path", r.URL.Path, "error", err.Error())
		writeError(w, r, http.StatusInternalServerError, msgInternal)
	}
}

func inputDetail(err error) string {
	msg := strings.TrimPrefix(err.Error(), account.ErrInvalidInput.Error()+": ")
	if msg == "" || msg == account.ErrInvalidInput.Error() {
		return "Invalid request"
	}
	return msg
}
