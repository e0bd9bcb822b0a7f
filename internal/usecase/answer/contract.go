package answer

import (
	"context"

	"github.com/parkridge-hoa/bylaws-assistant/internal/domain"
)

// Embedder vectorizes texts, one vector per input in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Index retrieves bylaws chunks ranked by similarity to the question.
type Index interface {
	Search(ctx context.Context, query string, vector []float32, topK int) ([]domain.SearchResult, error)
}

// Completer generates a chat completion from the prompt messages.
type Completer interface {
	Complete(ctx context.Context, messages []domain.Message, maxTokens int) (domain.Completion, error)
}
