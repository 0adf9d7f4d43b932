package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"todolist/internal/config"
	"todolist/internal/domain"
	"todolist/internal/logging"
	"todolist/internal/metrics"
	"todolist/internal/models"

	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// HTTPServer serves the todo API over JSON.
type HTTPServer struct {
	cfg     *config.APIConfig
	store   domain.TodoStore
	limiter domain.RateLimiter
	server  *http.Server
	log     zerolog.Logger
}

// NewHTTPServer wires the routes and middleware. limiter may be nil, which
// disables rate limiting.
func NewHTTPServer(cfg *config.APIConfig, store domain.TodoStore, limiter domain.RateLimiter, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{cfg: cfg, store: store, limiter: limiter, log: logging.Component(logger, "http")}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /todos", srv.handleListTodos)
	mux.HandleFunc("POST /todos", srv.handleCreateTodo)
	mux.HandleFunc("DELETE /todos/{id}", srv.handleDeleteTodo)
	mux.HandleFunc("GET /healthz", srv.handleHealthz)
	mux.HandleFunc("GET /readyz", srv.handleReadyz)

	handler := srv.requestIDMiddleware(
		srv.loggingMiddleware(
			srv.recoverMiddleware(
				srv.corsMiddleware(
					srv.rateLimitMiddleware(mux),
				),
			),
		),
	)

	readHeaderTimeout := cfg.HTTP.ReadHeaderTimeout
	if readHeaderTimeout == 0 {
		readHeaderTimeout = 5 * time.Second
	}
	writeTimeout := cfg.HTTP.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 15 * time.Second
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}

	return srv
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Serve accepts connections on lis until Shutdown.
func (s *HTTPServer) Serve(lis net.Listener) error {
	s.log.Info().Str("addr", lis.Addr().String()).Msg("HTTP API listening")
	if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := s.store.ListTodos(r.Context())
	if err != nil {
		s.internalError(w, r, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

func (s *HTTPServer) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	var body models.CreateTodoRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("rejecting create body")
		writeError(w, http.StatusBadRequest, models.MsgInvalidJSON)
		return
	}

	// An empty body or a missing title reaches the store as "" and is
	// rejected by the NOT NULL column.
	todo, err := s.store.CreateTodo(r.Context(), body.TitleValue())
	if err != nil {
		s.internalError(w, r, "create", err)
		return
	}

	metrics.IncMutation("create")
	writeJSON(w, http.StatusCreated, todo)
}

func (s *HTTPServer) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, models.MsgInvalidID)
		return
	}

	if err := s.store.DeleteTodo(r.Context(), id); err != nil {
		s.internalError(w, r, "delete", err)
		return
	}

	metrics.IncMutation("delete")
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.PingContext(ctx); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("readiness check failed")
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// internalError logs the cause and answers with the generic 500 body.
func (s *HTTPServer) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	metrics.IncStorageError(op)
	zerolog.Ctx(r.Context()).Error().Err(err).Str("op", op).Msg("storage call failed")
	writeError(w, http.StatusInternalServerError, models.MsgInternalError)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, models.ErrorResponse{Error: message})
}
