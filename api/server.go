package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	adminauth "github.com/420website/CRM-sub000"
)

// Server wires the engine's operations to HTTP routes.
type Server struct {
	engine *adminauth.Engine
	logger *zap.Logger
}

// NewServer builds a Server. A nil logger is replaced with a no-op one.
func NewServer(engine *adminauth.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{engine: engine, logger: logger}
}

// Router returns the mux with all authentication routes registered.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestID, s.requestLog)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/verify-pin", s.handleVerifyPIN).Methods(http.MethodPost)
	admin.HandleFunc("/pin", s.handleChangePIN).Methods(http.MethodPost)
	admin.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	sf := admin.PathPrefix("/second-factor").Subrouter()
	sf.HandleFunc("/setup", s.handleSetup).Methods(http.MethodPost)
	sf.HandleFunc("/set-email", s.handleSetEmail).Methods(http.MethodPost)
	sf.HandleFunc("/send-code", s.handleSendCode).Methods(http.MethodPost)
	sf.HandleFunc("/verify", s.handleVerifyCode).Methods(http.MethodPost)
	sf.HandleFunc("/disable", s.handleDisable).Methods(http.MethodPost)

	return r
}

const requestIDHeader = "X-Request-Id"

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", w.Header().Get(requestIDHeader)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
