package http

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"timed-quiz-service/internal/domain"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the error kind to a status code. Store failures are logged and masked.
func writeError(w http.ResponseWriter, logger *zap.Logger, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindConflict:
		status = http.StatusBadRequest
	case domain.KindNotFound:
		status = http.StatusNotFound
	default:
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, envelope{Success: false, Message: domain.PublicMessage(err)})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: message})
}

// flexInt accepts a JSON number or a numeric string, like form-posted round numbers.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	n, err := parseFlexInt(data)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

func parseFlexInt(data []byte) (int, error) {
	raw := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		var fl float64
		if jsonErr := json.Unmarshal([]byte(raw), &fl); jsonErr != nil {
			return 0, err
		}
		n = int(fl)
	}
	return n, nil
}

// clientIP returns the remote host; chi's RealIP middleware has already applied proxy headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
