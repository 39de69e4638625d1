package server

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/jonathan/talent-pipeline/internal/apperr"
)

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		notFound   *apperr.NotFoundError
		validation *apperr.ValidationError
		conflict   *apperr.ConflictError
		forbidden  *apperr.AuthorizationError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a service error onto a JSON error response. Internal
// failures are logged and answered with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		s.errorResponse(w, status, http.StatusText(status))
		return
	}

	var validation *apperr.ValidationError
	if errors.As(err, &validation) && validation.Field != "" {
		s.jsonResponse(w, status, map[string]string{
			"error": validation.Message,
			"field": validation.Field,
		})
		return
	}
	s.errorResponse(w, status, err.Error())
}
