package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/parkridge-hoa/bylaws-assistant/internal/domain"
	"github.com/parkridge-hoa/bylaws-assistant/internal/domain/chunk"
)

// --- mocks ---

type mockEmbedder struct {
	embedFn func(ctx context.Context, texts []string) ([][]float32, error)
	batches [][]string
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.batches = append(m.batches, texts)
	if m.embedFn != nil {
		return m.embedFn(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1}
	}
	return out, nil
}

type mockIndex struct {
	ensureFn func(ctx context.Context) error
	upsertFn func(ctx context.Context, records []domain.IndexRecord) error
	clearFn  func(ctx context.Context) (int, error)
	statsFn  func(ctx context.Context) (domain.IndexStats, error)
	ensured  bool
	upserted []domain.IndexRecord
	cleared  bool
}

func (m *mockIndex) EnsureIndex(ctx context.Context) error {
	m.ensured = true
	if m.ensureFn != nil {
		return m.ensureFn(ctx)
	}
	return nil
}

func (m *mockIndex) Upsert(ctx context.Context, records []domain.IndexRecord) error {
	m.upserted = append(m.upserted, records...)
	if m.upsertFn != nil {
		return m.upsertFn(ctx, records)
	}
	return nil
}

func (m *mockIndex) Clear(ctx context.Context) (int, error) {
	m.cleared = true
	if m.clearFn != nil {
		return m.clearFn(ctx)
	}
	return 0, nil
}

func (m *mockIndex) Stats(ctx context.Context) (domain.IndexStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return domain.IndexStats{}, nil
}

func testChunkConfig() chunk.Config {
	return chunk.Config{MaxChunkSize: 80, OverlapSize: 10, MinChunkSize: 5}
}

func newTestService(t *testing.T) (*Service, *mockEmbedder, *mockIndex) {
	t.Helper()
	emb := &mockEmbedder{}
	idx := &mockIndex{}
	svc, err := New(emb, idx, testChunkConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc, emb, idx
}

// buildDocument produces text long enough to yield several chunks.
func buildDocument(sentences int) string {
	var b strings.Builder
	b.WriteString("ARTICLE I\nNAME\n\n")
	for i := 0; i < sentences; i++ {
		b.WriteString("Members shall comply with all recorded covenants at all times. ")
	}
	return b.String()
}

// --- tests ---

func TestNew_InvalidChunkConfig(t *testing.T) {
	_, err := New(&mockEmbedder{}, &mockIndex{}, chunk.Config{MaxChunkSize: 10, OverlapSize: 10, MinChunkSize: 1}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for invalid chunk config")
	}
}

func TestIngest_Pipeline(t *testing.T) {
	svc, emb, idx := newTestService(t)

	result, err := svc.Ingest(context.Background(), buildDocument(30), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !idx.ensured {
		t.Error("expected EnsureIndex to run")
	}
	if idx.cleared {
		t.Error("Clear must not run without ClearFirst")
	}
	if result.Chunks == 0 || len(idx.upserted) != result.Chunks {
		t.Errorf("expected every chunk upserted, got chunks=%d upserted=%d", result.Chunks, len(idx.upserted))
	}
	if len(emb.batches) == 0 {
		t.Fatal("expected embedding calls")
	}
	for _, batch := range emb.batches {
		if len(batch) > embedBatchSize {
			t.Errorf("embedding batch exceeds %d: %d", embedBatchSize, len(batch))
		}
	}

	first := idx.upserted[0]
	if first.ID != "chunk_0" || len(first.Vector) != 1 {
		t.Errorf("unexpected first record: %+v", first)
	}
	if first.SectionNumber != "Article I" || !first.HasSection {
		t.Errorf("section metadata not carried into record: %+v", first)
	}
}

func TestIngest_ClearFirst(t *testing.T) {
	svc, _, idx := newTestService(t)

	idx.clearFn = func(_ context.Context) (int, error) { return 7, nil }

	result, err := svc.Ingest(context.Background(), buildDocument(30), Options{ClearFirst: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !idx.cleared || result.Cleared != 7 {
		t.Errorf("expected clear to run and report 7, got %+v", result)
	}
}

func TestIngest_Progress(t *testing.T) {
	svc, _, _ := newTestService(t)

	var calls int
	var lastDone, lastTotal int
	_, err := svc.Ingest(context.Background(), buildDocument(30), Options{
		Progress: func(done, total int) {
			calls++
			lastDone, lastTotal = done, total
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls == 0 {
		t.Fatal("expected progress callbacks")
	}
	if lastDone != lastTotal {
		t.Errorf("final progress should be complete: %d/%d", lastDone, lastTotal)
	}
}

func TestIngest_EmptyDocument(t *testing.T) {
	svc, _, idx := newTestService(t)

	if _, err := svc.Ingest(context.Background(), "   ", Options{}); err == nil {
		t.Fatal("expected error for empty document")
	}
	if idx.ensured {
		t.Error("index must not be touched for an empty document")
	}
}

func TestIngest_EmbedderFailure(t *testing.T) {
	svc, emb, idx := newTestService(t)

	emb.embedFn = func(_ context.Context, _ []string) ([][]float32, error) {
		return nil, domain.ErrEmbeddingProvider
	}

	_, err := svc.Ingest(context.Background(), buildDocument(30), Options{})
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Errorf("expected ErrEmbeddingProvider, got %v", err)
	}
	if len(idx.upserted) != 0 {
		t.Error("nothing should be upserted after an embedding failure")
	}
}

func TestIngest_UpsertFailure(t *testing.T) {
	svc, _, idx := newTestService(t)

	idx.upsertFn = func(_ context.Context, _ []domain.IndexRecord) error {
		return domain.ErrIndexProvider
	}

	_, err := svc.Ingest(context.Background(), buildDocument(30), Options{})
	if !errors.Is(err, domain.ErrIndexProvider) {
		t.Errorf("expected ErrIndexProvider, got %v", err)
	}
}

func TestPreview_NoProviderCalls(t *testing.T) {
	svc, emb, idx := newTestService(t)

	summary, err := svc.Preview(buildDocument(30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalChunks == 0 {
		t.Error("expected chunks in preview")
	}
	if len(emb.batches) != 0 || idx.ensured {
		t.Error("preview must not touch providers")
	}
}

func TestStats_Passthrough(t *testing.T) {
	svc, _, idx := newTestService(t)

	idx.statsFn = func(_ context.Context) (domain.IndexStats, error) {
		return domain.IndexStats{IndexName: "bylaws:chunks:idx", DocumentCount: 3, HasDocuments: true}, nil
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.DocumentCount != 3 || !stats.HasDocuments {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
