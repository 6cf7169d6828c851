package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mrops-br/catalog-api/internal/domain"
)

const genericErrorMessage = "Error"

// ErrorResponse is the body of every operational error
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// UnexpectedErrorResponse is the body sent when internals must stay hidden
type UnexpectedErrorResponse struct {
	Message string `json:"message"`
}

// ValidationErrorResponse lists every rule a payload broke
type ValidationErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		slog.Error("Error encoding response to JSON", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Text sends a plain text response
func Text(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// ValidationFailed sends a 400 listing all violations
func ValidationFailed(w http.ResponseWriter, details []string) {
	JSON(w, http.StatusBadRequest, ValidationErrorResponse{
		Error:   "Validation failed",
		Details: details,
	})
}

// NewErrorTranslator returns the terminal error handler of the request pipeline.
// Operational errors are returned to the client with their own status and message.
// Anything else is logged and answered with a bare 500.
func NewErrorTranslator(logger *slog.Logger) func(w http.ResponseWriter, r *http.Request, err error) {
	logger = logger.With("component", "error_translator")

	return func(w http.ResponseWriter, r *http.Request, err error) {
		appErr, ok := domain.AsError(err)
		if !ok {
			appErr = domain.NewUnexpected(err)
		}
		status := appErr.StatusCode
		if status == 0 {
			status = http.StatusInternalServerError
		}

		if appErr.IsOperational() {
			JSON(w, status, ErrorResponse{
				Status:  appErr.Status(),
				Message: appErr.Message,
			})
			return
		}

		logger.ErrorContext(r.Context(), "Unexpected error while handling request",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		JSON(w, http.StatusInternalServerError, UnexpectedErrorResponse{Message: genericErrorMessage})
	}
}
