// Package chi exposes the question-answering pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/parkridge-hoa/bylaws-assistant/internal/domain"
	logpkg "github.com/parkridge-hoa/bylaws-assistant/internal/logger"
	"github.com/parkridge-hoa/bylaws-assistant/internal/usecase/answer"
	"github.com/parkridge-hoa/bylaws-assistant/internal/version"
)

// User-facing error messages. The raw provider error is logged, never
// returned to the client.
const (
	msgGenerationFailed = "I had trouble generating a response. Please try rephrasing your question."
	msgInternalError    = "I apologize, but I encountered an error while processing your question. Please try again."
)

// answerer is the consumer contract for the question pipeline.
type answerer interface {
	Answer(ctx context.Context, question string, opts answer.Options) (domain.Answer, error)
}

// pinger reports backing store liveness for the health endpoint.
type pinger interface {
	Ping(ctx context.Context) error
}

// StatusInfo is the static portion of the GET /v1/status payload,
// assembled once at startup.
type StatusInfo struct {
	Service           string
	EmbeddingModel    string
	ChatModel         string
	IndexName         string
	MaxRetrievedCh    int
	MinSimilarity     float64
	MaxResponseTokens int
}

// Server holds the HTTP handlers for the assistant API.
type Server struct {
	answers answerer
	store   pinger
	opts    answer.Options
	status  StatusInfo
	logger  *zap.Logger
}

// NewServer creates an HTTP API server. opts are the serving retrieval
// defaults applied when a request carries no overrides.
func NewServer(answers answerer, store pinger, opts answer.Options, status StatusInfo, logger *zap.Logger) *Server {
	return &Server{
		answers: answers,
		store:   store,
		opts:    opts,
		status:  status,
		logger:  logger,
	}
}

// NewRouter mounts the API routes behind the given middleware chain.
func NewRouter(s *Server, middlewares ...func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middlewares...)

	r.Post("/v1/ask", s.Ask)
	r.Get("/v1/status", s.Status)
	r.Get("/health", s.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

type askOptions struct {
	Top       *int     `json:"top"`
	Threshold *float64 `json:"threshold"`
}

type askRequest struct {
	Question string      `json:"question"`
	Options  *askOptions `json:"options"`
}

// Ask handles POST /v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	opts := s.opts
	if req.Options != nil {
		if req.Options.Top != nil {
			opts.TopK = *req.Options.Top
		}
		if req.Options.Threshold != nil {
			opts.Threshold = *req.Options.Threshold
		}
	}

	ans, err := s.answers.Answer(r.Context(), req.Question, opts)
	if err != nil {
		s.handleAnswerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ans)
}

func (s *Server) handleAnswerError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrInvalidQuestion) {
		writeError(w, http.StatusBadRequest, "Question is required and must be a non-empty string")
		return
	}

	// The request-scoped logger carries the request_id when the canonical
	// logging middleware is mounted.
	logpkg.FromContext(r.Context()).Error("answer pipeline failed", zap.Error(err))

	msg := msgInternalError
	if errors.Is(err, domain.ErrGenerationProvider) {
		msg = msgGenerationFailed
	}

	writeJSON(w, http.StatusInternalServerError, errorAnswer(msg))
}

// errorAnswer mirrors the Answer shape so clients can always render the
// response field.
func errorAnswer(msg string) map[string]any {
	return map[string]any{
		"error":              msg,
		"response":           msg,
		"sources":            []domain.Source{},
		"retrievedChunks":    0,
		"hasRelevantContent": false,
	}
}

type statusResponse struct {
	Service      string            `json:"service"`
	Version      string            `json:"version"`
	Status       string            `json:"status"`
	Capabilities map[string]bool   `json:"capabilities"`
	Config       map[string]any    `json:"config"`
	Endpoints    map[string]string `json:"endpoints"`
}

// Status handles GET /v1/status.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	hasOpenAI := s.status.EmbeddingModel != "" && s.status.ChatModel != ""
	hasSearch := s.status.IndexName != ""

	writeJSON(w, http.StatusOK, statusResponse{
		Service: s.status.Service,
		Version: version.Version,
		Status:  "operational",
		Capabilities: map[string]bool{
			"openaiIntegration": hasOpenAI,
			"searchIntegration": hasSearch,
			"ragEnabled":        hasOpenAI && hasSearch,
		},
		Config: map[string]any{
			"maxRetrievedChunks": s.status.MaxRetrievedCh,
			"minSimilarityScore": s.status.MinSimilarity,
			"maxResponseTokens":  s.status.MaxResponseTokens,
		},
		Endpoints: map[string]string{
			"ask":    "POST /v1/ask",
			"status": "GET /v1/status",
			"health": "GET /health",
		},
	})
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"redis": "ok"}
	httpStatus := http.StatusOK
	overall := "healthy"

	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		checks["redis"] = "unavailable"
		httpStatus = http.StatusServiceUnavailable
		overall = "unhealthy"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": overall,
		"checks": checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
