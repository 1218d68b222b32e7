// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	apperrors "buy-assistant/internal/common/errors"
	"buy-assistant/internal/common/logger"
	"buy-assistant/internal/common/validation"
	"buy-assistant/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

const chatRequestSchema = `{
  "type": "object",
  "required": ["message"],
  "properties": {
    "message": {"type": "string", "minLength": 1, "pattern": "\\S"}
  }
}`

var ChatRequestSchema = validation.MustCompile(chatRequestSchema)

type ChatRequest struct {
	Message string `json:"message"`
}

type Runner interface {
	Run(ctx context.Context, message string) (*models.Response, error)
}

type Recorder interface {
	RecordRequest(ctx context.Context, surface, status string, duration time.Duration)
}

// Pinger is a dependency probed by /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type Server struct {
	config   *Config
	runner   Runner
	recorder Recorder
	checks   map[string]Pinger
	logger   Logger
}

func NewServer(config *Config, runner Runner, recorder Recorder, checks map[string]Pinger, log Logger) *Server {
	return &Server{
		config:   config,
		runner:   runner,
		recorder: recorder,
		checks:   checks,
		logger:   log,
	}
}

// Routes builds the chi router for the service.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.config.RateLimitEnabled && s.config.RateLimitRequests > 0 {
			r.Use(rateLimit(s.config.RateLimitRequests, s.config.RateLimitWindow))
		}
		r.Post("/chat", s.handleChat)
	})

	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "Hello world!")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range s.checks {
		if err := check.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		s.logger.Warn("readiness check failed", map[string]interface{}{"failed": failed})
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not_ready",
			"failed": failed,
			"time":   time.Now().Format(time.RFC3339),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)
	ctx := logger.ContextWithRequestID(r.Context(), requestID)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.fail(ctx, w, start, requestID, apperrors.NewInvalidRequestError("read body: "+err.Error()))
		return
	}

	if result := ChatRequestSchema.ValidateBytes(body); !result.Valid {
		s.fail(ctx, w, start, requestID, apperrors.NewInvalidRequestError(result.Error()))
		return
	}

	var req ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.fail(ctx, w, start, requestID, apperrors.NewInvalidRequestError(err.Error()))
		return
	}

	resp, err := s.runner.Run(ctx, req.Message)
	if err != nil {
		s.fail(ctx, w, start, requestID, err)
		return
	}

	s.logger.Info("chat request served", map[string]interface{}{
		"requestId": requestID,
		"carousels": len(resp.Carousels),
		"duration":  time.Since(start).String(),
	})
	s.record(ctx, "ok", start)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) fail(ctx context.Context, w http.ResponseWriter, start time.Time, requestID string, err error) {
	stdErr := apperrors.Normalize(err)
	status := apperrors.HTTPStatus(stdErr.Code)

	fields := map[string]interface{}{
		"requestId": requestID,
		"errorCode": string(stdErr.Code),
		"details":   stdErr.Details,
		"status":    status,
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("chat request failed", fields)
	} else {
		s.logger.Warn("chat request rejected", fields)
	}

	s.record(ctx, string(stdErr.Code), start)
	writeJSON(w, status, newErrorBody(stdErr))
}

func (s *Server) record(ctx context.Context, status string, start time.Time) {
	if s.recorder != nil {
		s.recorder.RecordRequest(ctx, "http", status, time.Since(start))
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
