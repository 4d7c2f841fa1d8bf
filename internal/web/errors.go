package web

// errors.go turns handler errors into JSON responses. The technical error is
// logged with the request ID; the client gets core.MapError's user message.

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/postclean/internal/core"
	"github.com/JonMunkholm/postclean/internal/logging"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyCleans):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrNoFile), errors.Is(err, core.ErrMalformedInput):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrMissingColumn), errors.Is(err, core.ErrParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// bodyError reports an oversized request body as ErrFileTooLarge, whatever
// layer wrapped the reader's error.
func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, tooLarge.Limit)
	}
	return err
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request error", "status", status, "code", msg.Code, "error", err)
	} else {
		logger.Warn("request rejected", "status", status, "code", msg.Code, "error", err)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}
