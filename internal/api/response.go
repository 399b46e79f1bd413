package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/sgtreasury/tally/internal/gemini"
	"gitlab.com/sgtreasury/tally/internal/logger"
	"gitlab.com/sgtreasury/tally/internal/report"
	"gitlab.com/sgtreasury/tally/internal/repository"
	"gitlab.com/sgtreasury/tally/internal/service"
	"gitlab.com/sgtreasury/tally/internal/storage"
	"gitlab.com/sgtreasury/tally/internal/validation"
)

// Envelope codes.
const (
	CodeSuccess         = "SUCCESS"
	CodeBadRequest      = "BAD_REQUEST"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
	CodeInternalError   = "INTERNAL_ERROR"
)

// Envelope wraps every JSON response.
type Envelope struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func codeFor(status int) string {
	switch {
	case status < 300:
		return CodeSuccess
	case status == http.StatusBadRequest:
		return CodeBadRequest
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusForbidden:
		return CodeForbidden
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusConflict:
		return CodeConflict
	case status == http.StatusTooManyRequests:
		return CodeTooManyRequests
	case status == http.StatusMethodNotAllowed, status == http.StatusRequestEntityTooLarge:
		return CodeBadRequest
	default:
		return CodeInternalError
	}
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respond(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, Envelope{Code: CodeSuccess, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, message string, data any) {
	writeEnvelope(w, status, Envelope{Code: codeFor(status), Message: message, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, Envelope{Code: codeFor(status), Message: message})
}

// statusFor maps an error to the HTTP status and caller-facing message.
// entity names the row kind for not-found and conflict messages.
func statusFor(err error, entity string) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "request body too large"
	case errors.Is(err, errNoActor), errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, validation.ErrInvalidInput):
		return http.StatusBadRequest, "invalid request body"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, entity + " not found"
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, entity + " already exists"
	case errors.Is(err, repository.ErrInvalidReference):
		return http.StatusBadRequest, "referenced record does not exist"
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInviteExpired):
		return http.StatusBadRequest, service.ErrInviteExpired.Error()
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, service.ErrForbidden.Error()
	case errors.Is(err, service.ErrNotTreasurer):
		return http.StatusForbidden, service.ErrNotTreasurer.Error()
	case errors.Is(err, storage.ErrInvalidRef):
		return http.StatusBadRequest, storage.ErrInvalidRef.Error()
	case errors.Is(err, report.ErrEmptyBudget):
		return http.StatusNotFound, report.ErrEmptyBudget.Error()
	case errors.Is(err, gemini.ErrNoData), errors.Is(err, gemini.ErrNoImage):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// fail logs err and writes the mapped error envelope.
func fail(w http.ResponseWriter, r *http.Request, entity string, err error) {
	status, message := statusFor(err, entity)
	ev := logger.Log.Warn()
	if status >= http.StatusInternalServerError {
		ev = logger.Log.Error()
	}
	var verr *validation.Error
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		ev = ev.Strs("fields", verr.Fields)
	}
	if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
		ev = ev.Str("trace_id", sc.TraceID().String())
	}
	ev.Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("Request failed")
	respondError(w, status, message)
}
