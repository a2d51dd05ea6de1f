package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/xraph/conveyor"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}

func httpError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, errorResponse{Error: fmt.Sprintf(format, args...)})
}

// writeError maps conveyor sentinel errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	httpError(w, statusFor(err), "%v", err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, conveyor.ErrUnknownTopic),
		errors.Is(err, conveyor.ErrUnknownQueue):
		return http.StatusBadRequest
	case errors.Is(err, conveyor.ErrJobNotFound),
		errors.Is(err, conveyor.ErrWorkerNotFound):
		return http.StatusNotFound
	case errors.Is(err, conveyor.ErrSingletonConflict),
		errors.Is(err, conveyor.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, conveyor.ErrDisabled),
		errors.Is(err, conveyor.ErrNotConfigured),
		errors.Is(err, conveyor.ErrQueueNotStarted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func decodeJSON(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func errorStrings(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}
