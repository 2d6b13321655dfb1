package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors handlers wrap to select a response status.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrLocked       = errors.New("resource is locked")
	ErrGone         = errors.New("resource is gone")
	ErrUpstream     = errors.New("upstream service failed")
)

// RespondError maps sentinel errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	RespondErrorWith(w, err, nil)
}

// RespondErrorWith is RespondError with extension members added to the
// problem body. Unmapped errors become a 500 without detail.
func RespondErrorWith(w http.ResponseWriter, err error, ext map[string]any) {
	status, title := statusOf(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = ""
	}
	ProblemWith(w, status, title, detail, ext)
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, "Validation Failed"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, ErrLocked):
		return http.StatusLocked, "Locked"
	case errors.Is(err, ErrGone):
		return http.StatusGone, "Gone"
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway, "Bad Gateway"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}
