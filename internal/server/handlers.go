package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/nephila016/emailvalidate/internal/ratelimit"
	"github.com/nephila016/emailvalidate/internal/verifier"
)

type validateRequest struct {
	Email json.RawMessage `json:"email"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ISO-8601 with millisecond precision, as "2026-01-02T15:04:05.000Z"
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

var badRequest = verifier.Response{Valid: false, Message: verifier.MessageInvalidFormat}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("validation error", zap.String("reason", "undecodable body"), zap.Error(err),
			zap.String("ip", ratelimit.IPKeyFunc(r)))
		writeJSON(w, http.StatusBadRequest, badRequest)
		return
	}

	var email string
	if err := json.Unmarshal(req.Email, &email); err != nil || !verifier.IsBasicAddress(email) {
		s.logger.Warn("validation error", zap.String("reason", "email missing or malformed"),
			zap.String("ip", ratelimit.IPKeyFunc(r)))
		writeJSON(w, http.StatusBadRequest, badRequest)
		return
	}

	ctx := verifier.WithClientAddr(r.Context(), ratelimit.IPKeyFunc(r))
	result := s.pipeline.Validate(ctx, email)

	if s.metrics != nil {
		s.metrics.ObserveOutcome(string(result.Outcome), result.LookupDegraded)
	}

	writeJSON(w, result.StatusCode(), result.Response)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "OK",
		Message:   "Server is running",
		Timestamp: s.now().UTC().Format(timestampLayout),
	})
}

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
