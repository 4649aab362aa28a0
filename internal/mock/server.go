package mock

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxLogs = 1000

// Server is a small authentication API used as a target for API tests
type Server struct {
	config     *Config
	logger     *zap.Logger
	httpServer *http.Server
	listener   net.Listener
	logs       []RequestLog
	logsMutex  sync.RWMutex
}

// NewServer creates a new sample API server
func NewServer(config *Config, logger *zap.Logger) *Server {
	if config.Addr == "" {
		config.Addr = "127.0.0.1:8000"
	}
	if config.Variant == "" {
		config.Variant = VariantReal
	}
	if config.Users == nil {
		config.Users = DefaultUsers()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		config: config,
		logger: logger,
		logs:   make([]RequestLog, 0),
	}
}

// Handler returns the HTTP routes of the sample API
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.recordRequests)

	r.Post("/login", s.handleLogin)
	r.Get("/health", s.handleHealth)
	return r
}

// Start binds the listen address and serves in the background
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.config.Addr)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("sample api server error", zap.Error(err))
		}
	}()

	s.logger.Info("sample api listening",
		zap.String("addr", s.Address()),
		zap.String("variant", string(s.config.Variant)))
	return nil
}

// Stop stops the server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop()
}

// Address returns the base URL of a started server
func (s *Server) Address() string {
	if s.listener != nil {
		return "http://" + s.listener.Addr().String()
	}
	return "http://" + s.config.Addr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Detail: "body must be a JSON object with email and password"})
		return
	}
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Detail: "email and password are required"})
		return
	}

	password, ok := s.config.Users[req.Email]
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Detail: "User not found"})
		return
	}

	if s.config.Variant == VariantDefect {
		writeJSON(w, http.StatusOK, LoginResponse{Message: "Login successful", Role: "user"})
		return
	}

	if password != req.Password {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Detail: "Invalid password"})
		return
	}

	role := "user"
	if strings.Contains(req.Email, "admin") {
		role = "admin"
	}
	writeJSON(w, http.StatusOK, LoginResponse{Message: "Login successful", Role: role})
}

// recordRequests keeps a bounded log of served requests
func (s *Server) recordRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if !s.config.Logging {
			return
		}
		s.logRequest(RequestLog{
			Timestamp: start,
			Method:    r.Method,
			Path:      r.URL.Path,
			Status:    ww.Status(),
			Duration:  time.Since(start),
		})
	})
}

// logRequest adds a request to the log
func (s *Server) logRequest(log RequestLog) {
	s.logsMutex.Lock()
	defer s.logsMutex.Unlock()

	s.logs = append(s.logs, log)
	if len(s.logs) > maxLogs {
		s.logs = s.logs[len(s.logs)-maxLogs:]
	}
}

// GetLogs returns all logged requests
func (s *Server) GetLogs() []RequestLog {
	s.logsMutex.RLock()
	defer s.logsMutex.RUnlock()

	logs := make([]RequestLog, len(s.logs))
	copy(logs, s.logs)
	return logs
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
