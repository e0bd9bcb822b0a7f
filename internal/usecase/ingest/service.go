// Package ingest implements the document ingestion pipeline: chunk the
// bylaws text, embed the chunks, and upsert them into the search index.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/parkridge-hoa/bylaws-assistant/internal/domain"
	"github.com/parkridge-hoa/bylaws-assistant/internal/domain/chunk"
)

// embedBatchSize is the number of chunk contents sent per embedding call.
const embedBatchSize = 16

// ProgressFn reports pipeline progress in chunks processed.
type ProgressFn func(done, total int)

// Options control a single ingestion run.
type Options struct {
	// ClearFirst wipes the existing chunk keyspace before upserting.
	ClearFirst bool
	// Progress, when set, is called after every embedded batch.
	Progress ProgressFn
}

// Result summarizes a completed ingestion run.
type Result struct {
	Chunks   int
	Cleared  int
	Sections int
}

// Service runs the ingestion pipeline.
type Service struct {
	embed    Embedder
	index    Index
	chunkCfg chunk.Config
	logger   *zap.Logger
}

// New creates an ingestion service. The chunking config is validated at
// construction so a bad config fails before any network call.
func New(embed Embedder, index Index, chunkCfg chunk.Config, logger *zap.Logger) (*Service, error) {
	if err := chunkCfg.Validate(); err != nil {
		return nil, fmt.Errorf("chunk config: %w", err)
	}
	return &Service{embed: embed, index: index, chunkCfg: chunkCfg, logger: logger}, nil
}

// Ingest chunks the document, embeds every chunk, and writes the records.
func (s *Service) Ingest(ctx context.Context, text string, opts Options) (Result, error) {
	chunks, err := chunk.Split(text, s.chunkCfg)
	if err != nil {
		return Result{}, fmt.Errorf("split document: %w", err)
	}
	if len(chunks) == 0 {
		return Result{}, fmt.Errorf("document produced no chunks")
	}

	var result Result
	result.Chunks = len(chunks)

	if opts.ClearFirst {
		cleared, err := s.index.Clear(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("clear index: %w", err)
		}
		result.Cleared = cleared
	}

	if err := s.index.EnsureIndex(ctx); err != nil {
		return Result{}, fmt.Errorf("ensure index: %w", err)
	}

	records := make([]domain.IndexRecord, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		vectors, err := s.embed.Embed(ctx, texts)
		if err != nil {
			return Result{}, fmt.Errorf("embed chunks [%d:%d]: %w", start, end, err)
		}
		if len(vectors) != len(batch) {
			return Result{}, fmt.Errorf("embed chunks [%d:%d]: expected %d vectors, got %d: %w",
				start, end, len(batch), len(vectors), domain.ErrEmbeddingProvider)
		}

		for i, c := range batch {
			records = append(records, toRecord(c, vectors[i]))
		}

		if opts.Progress != nil {
			opts.Progress(end, len(chunks))
		}
	}

	for _, rec := range records {
		if rec.HasSection {
			result.Sections++
		}
	}

	if err := s.index.Upsert(ctx, records); err != nil {
		return Result{}, fmt.Errorf("upsert records: %w", err)
	}

	s.logger.Info("Ingestion completed",
		zap.Int("chunks", result.Chunks),
		zap.Int("sections", result.Sections),
		zap.Int("cleared", result.Cleared),
	)

	return result, nil
}

// Preview chunks the document without touching any provider. Dry-run mode.
func (s *Service) Preview(text string) (chunk.Summary, error) {
	return chunk.Preview(text, s.chunkCfg)
}

// Clear wipes the chunk keyspace.
func (s *Service) Clear(ctx context.Context) (int, error) {
	return s.index.Clear(ctx)
}

// Stats reports the current index state.
func (s *Service) Stats(ctx context.Context) (domain.IndexStats, error) {
	return s.index.Stats(ctx)
}

func toRecord(c chunk.Chunk, vector []float32) domain.IndexRecord {
	return domain.IndexRecord{
		ID:            c.ID,
		Content:       c.Content,
		Vector:        vector,
		SectionNumber: c.SectionNumber,
		SectionTitle:  c.SectionTitle,
		ChunkIndex:    c.ChunkIndex,
		HasSection:    c.HasSection,
		WordCount:     c.WordCount,
		HasLegalTerms: c.HasLegalTerms,
	}
}
