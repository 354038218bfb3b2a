package handlers

import (
	"errors"
	"net/http"
	"strings"

	"restauro/internal/domain"
	"restauro/internal/middleware"
)

type errorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status,omitempty"`
}

// statusFor maps the error taxonomy onto HTTP status codes and a client-facing
// message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "the image service is rate limited, please try again shortly"
	case errors.Is(err, domain.ErrConfiguration):
		msg := err.Error()
		marker := domain.ErrConfiguration.Error() + ": "
		if i := strings.LastIndex(msg, marker); i >= 0 {
			msg = msg[i+len(marker):]
		}
		return http.StatusInternalServerError, "server configuration error: " + msg
	case errors.Is(err, domain.ErrGenerationFailed):
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusBadGateway, "image service error: " + err.Error()
	}
}

func (a *App) fail(w http.ResponseWriter, r *http.Request, err error, withStatus bool) {
	code, msg := statusFor(err)
	event := a.Logger.Warn()
	if code >= http.StatusInternalServerError {
		event = a.Logger.Error()
	}
	event.Err(err).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("path", r.URL.Path).
		Int("status", code).
		Msg("request failed")
	resp := errorResponse{Error: msg}
	if withStatus {
		resp.Status = "error"
	}
	a.json(w, code, resp)
}

func (a *App) badRequest(w http.ResponseWriter, r *http.Request, msg string, withStatus bool) {
	a.fail(w, r, validation(msg), withStatus)
}

func validation(msg string) error {
	return &validationError{msg: msg}
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }
func (e *validationError) Unwrap() error { return domain.ErrValidation }
