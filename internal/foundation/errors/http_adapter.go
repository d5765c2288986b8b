package errors

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

var statusCodes = map[ErrorCategory]int{
	CategoryValidation: http.StatusBadRequest,
	CategoryConfig:     http.StatusBadRequest,
	CategoryAuth:       http.StatusUnauthorized,
	CategoryNotFound:   http.StatusNotFound,
	CategoryNetwork:    http.StatusBadGateway,
	CategoryGit:        http.StatusBadGateway,
	CategoryCommand:    http.StatusBadGateway,
	CategoryParse:      http.StatusUnprocessableEntity,
	CategoryDaemon:     http.StatusServiceUnavailable,
}

// HTTPErrorAdapter writes classified errors as JSON responses for the
// daemon's HTTP endpoints.
type HTTPErrorAdapter struct {
	logger *slog.Logger
}

// NewHTTPErrorAdapter creates an adapter; a nil logger uses slog.Default.
func NewHTTPErrorAdapter(logger *slog.Logger) *HTTPErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPErrorAdapter{logger: logger}
}

// HTTPErrorResponse is the JSON body of an error response.
type HTTPErrorResponse struct {
	Error     string         `json:"error"`
	Code      string         `json:"code,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
}

// StatusCodeFor maps err to an HTTP status; unknown errors are 500.
func (a *HTTPErrorAdapter) StatusCodeFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if c, ok := AsClassified(err); ok {
		if status, known := statusCodes[c.Category()]; known {
			return status
		}
	}
	return http.StatusInternalServerError
}

// WriteErrorResponse writes err as JSON and logs it.
func (a *HTTPErrorAdapter) WriteErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	status := a.StatusCodeFor(err)
	body := HTTPErrorResponse{Error: err.Error()}
	level := slog.LevelError
	if c, ok := AsClassified(err); ok {
		body = HTTPErrorResponse{
			Error:     c.Message(),
			Code:      string(c.Category()),
			Retryable: c.CanRetry(),
		}
		if len(c.Context()) > 0 {
			body.Details = map[string]any(c.Context())
		}
		level = levelFor(c.Severity())
		if status < http.StatusInternalServerError && level == slog.LevelError {
			level = slog.LevelWarn
		}
	}

	b, jerr := json.Marshal(body)
	if jerr != nil {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)

	a.logger.Log(r.Context(), level, "Request failed",
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("error", err.Error()))
}
