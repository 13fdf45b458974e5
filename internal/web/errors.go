package web

// errors.go turns handler errors into responses. The technical error is
// logged with the request id; the client gets the core.MapError message as
// JSON on /api routes or an HTML alert on pages.

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/userimport/internal/avatar"
	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/JonMunkholm/userimport/internal/logging"
	"github.com/JonMunkholm/userimport/internal/web/templates"
)

var (
	errNoFile       = errors.New("no file provided")
	errBodyTooLarge = errors.New("request body too large")
	errRateLimited  = errors.New("rate limit exceeded")
	errBadUserID    = errors.New("invalid user id")
	errBadSettings  = errors.New("invalid settings body")
)

// ErrorResponse is the JSON body of API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for an error returned by core or avatar.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrUserNotFound), errors.Is(err, avatar.ErrNoAvatar):
		return http.StatusNotFound
	case errors.Is(err, avatar.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, avatar.ErrTooLarge), errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, avatar.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, avatar.ErrUnsafeName), errors.Is(err, errNoFile),
		errors.Is(err, errBadUserID), errors.Is(err, errBadSettings):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the user-facing message in the format
// the client expects.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)
	if errors.Is(err, errBadUserID) || errors.Is(err, errBadSettings) {
		userMsg = core.UserMessage{Message: capitalize(err.Error()), Code: "REQ001"}
	}

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", chimw.GetReqID(r.Context()),
	}
	if statusCode >= 500 {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	switch {
	case wantsJSON(r):
		respondErrorJSON(w, userMsg, statusCode)
	default:
		respondErrorHTML(w, r, userMsg, statusCode)
	}
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// respondErrorHTML renders the import page with an error alert. HTMX
// requests get only the alert fragment.
func respondErrorHTML(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)

	alert := templates.ErrorAlert(msg.Message, msg.Action, msg.Code)
	if isHTMX(r) {
		_ = alert.Render(r.Context(), w)
		return
	}
	_ = templates.ImportPage(alert).Render(r.Context(), w)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the client expects a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
