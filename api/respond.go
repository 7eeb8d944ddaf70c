package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	adminauth "github.com/420website/CRM-sub000"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Generic denial bodies. Session problems and credential problems each fold
// into one message so the wire surface leaks nothing about which check
// failed.
const (
	msgSessionInvalid = "session invalid"
	msgAuthFailed     = "authentication failed"
)

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, adminauth.ErrSessionNotFound),
		errors.Is(err, adminauth.ErrSessionExpired),
		errors.Is(err, adminauth.ErrInsufficientTrust):
		writeError(w, http.StatusUnauthorized, msgSessionInvalid)
	case errors.Is(err, adminauth.ErrInvalidCredential),
		errors.Is(err, adminauth.ErrAccountLocked),
		errors.Is(err, adminauth.ErrCodeInvalid),
		errors.Is(err, adminauth.ErrCodeExpired):
		writeError(w, http.StatusUnauthorized, msgAuthFailed)
	case errors.Is(err, adminauth.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "invalid email address")
	case errors.Is(err, adminauth.ErrEmailNotConfigured):
		writeError(w, http.StatusBadRequest, "no second-factor email configured")
	case errors.Is(err, adminauth.ErrWeakSecret):
		writeError(w, http.StatusBadRequest, "secret does not meet requirements")
	case errors.Is(err, adminauth.ErrCodeRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many codes requested")
	case errors.Is(err, adminauth.ErrStoreUnavailable),
		errors.Is(err, adminauth.ErrEngineNotReady):
		s.logger.Error("backend unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		s.logger.Error("unhandled engine error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
