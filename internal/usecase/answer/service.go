// Package answer implements the question answering pipeline: validate the
// question, retrieve relevant bylaws chunks, generate a grounded response,
// and reconcile its citations against what was actually retrieved.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/parkridge-hoa/bylaws-assistant/internal/domain"
	"github.com/parkridge-hoa/bylaws-assistant/internal/metrics"
)

// User-facing degraded responses. These go out verbatim; provider error
// detail stays in the logs.
const (
	msgIndexUnavailable = "I apologize, but the HOA bylaws database is not currently available. " +
		"Please contact your HOA administrator or try again later."
	msgNoContent = "I don't have information about that topic in the HOA bylaws. " +
		"Please check the complete bylaws document or contact your HOA board for " +
		"assistance with questions not covered in the bylaws."
)

// Timeouts bound each provider call. Zero disables the bound.
type Timeouts struct {
	Embed    time.Duration
	Search   time.Duration
	Generate time.Duration
}

// Service orchestrates retrieval-augmented answering.
type Service struct {
	embed    Embedder
	index    Index
	complete Completer
	timeouts Timeouts
	logger   *zap.Logger
}

// New creates the answering service.
func New(embed Embedder, index Index, complete Completer, timeouts Timeouts, logger *zap.Logger) *Service {
	return &Service{
		embed:    embed,
		index:    index,
		complete: complete,
		timeouts: timeouts,
		logger:   logger,
	}
}

// Answer runs the full pipeline for one question.
//
// Failure semantics: a blank question returns ErrInvalidQuestion; a missing
// index degrades to an apologetic answer with no error; provider failures
// surface as wrapped sentinel errors for the transport layer to classify.
func (s *Service) Answer(ctx context.Context, question string, opts Options) (domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		metrics.QuestionsTotal.WithLabelValues("rejected").Inc()
		return domain.Answer{}, domain.ErrInvalidQuestion
	}
	opts = opts.withDefaults()

	chunks, err := s.retrieve(ctx, question, opts)
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			s.logger.Warn("Bylaws index missing, returning degraded answer")
			metrics.QuestionsTotal.WithLabelValues("no_context").Inc()
			return degradedAnswer(msgIndexUnavailable), nil
		}
		metrics.QuestionsTotal.WithLabelValues("error").Inc()
		return domain.Answer{}, err
	}

	metrics.RetrievedChunks.Observe(float64(len(chunks)))

	if len(chunks) == 0 {
		metrics.QuestionsTotal.WithLabelValues("no_context").Inc()
		return degradedAnswer(msgNoContent), nil
	}

	messages := []domain.Message{
		{Role: domain.RoleSystem, Content: buildSystemPrompt(chunks)},
		{Role: domain.RoleUser, Content: question},
	}

	gctx, cancel := s.bound(ctx, s.timeouts.Generate)
	defer cancel()

	completion, err := s.complete.Complete(gctx, messages, opts.MaxResponseTokens)
	if err != nil {
		metrics.QuestionsTotal.WithLabelValues("error").Inc()
		return domain.Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	result := reconcileCitations(completion.Text, chunks, opts.CitationFallbackLimit)

	metrics.QuestionsTotal.WithLabelValues("answered").Inc()
	s.logger.Info("Answered question",
		zap.Int("retrieved_chunks", result.RetrievedChunks),
		zap.Int("sources", len(result.Sources)),
		zap.Int("completion_tokens", completion.TotalTokens),
	)

	return result, nil
}

// retrieve embeds the question and returns the chunks that clear the
// similarity threshold, best first, at most opts.TopK of them.
func (s *Service) retrieve(ctx context.Context, question string, opts Options) ([]domain.SearchResult, error) {
	ectx, cancel := s.bound(ctx, s.timeouts.Embed)
	defer cancel()

	vectors, err := s.embed.Embed(ectx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 question vector, got %d: %w",
			len(vectors), domain.ErrEmbeddingProvider)
	}

	sctx, cancel := s.bound(ctx, s.timeouts.Search)
	defer cancel()

	results, err := s.index.Search(sctx, question, vectors[0], opts.TopK)
	if err != nil {
		return nil, err
	}

	relevant := make([]domain.SearchResult, 0, opts.TopK)
	for _, r := range results {
		if r.Score < opts.Threshold {
			continue
		}
		relevant = append(relevant, r)
		if len(relevant) == opts.TopK {
			break
		}
	}
	return relevant, nil
}

func (s *Service) bound(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func degradedAnswer(msg string) domain.Answer {
	return domain.Answer{
		Response:           msg,
		Sources:            []domain.Source{},
		RetrievedChunks:    0,
		HasRelevantContent: false,
	}
}
