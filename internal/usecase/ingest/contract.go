package ingest

import (
	"context"

	"github.com/parkridge-hoa/bylaws-assistant/internal/domain"
)

// Embedder vectorizes texts, one vector per input in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is the writable side of the bylaws index.
type Index interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, records []domain.IndexRecord) error
	Clear(ctx context.Context) (int, error)
	Stats(ctx context.Context) (domain.IndexStats, error)
}
