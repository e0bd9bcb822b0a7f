package embcache

import (
	"context"
	"errors"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/parkridge-hoa/bylaws-assistant/internal/db"
	"github.com/parkridge-hoa/bylaws-assistant/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, texts []string) ([][]float32, error)
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.embedFn != nil {
		return m.embedFn(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{float32(len(texts[i]))}
	}
	return out, nil
}

type mockKV struct {
	data map[string][]byte
}

func newMockKV() *mockKV {
	return &mockKV{data: make(map[string][]byte)}
}

func (m *mockKV) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKV) Set(_ context.Context, key string, value []byte) error {
	m.data[key] = value
	return nil
}

func TestEmbed_CachesAcrossCalls(t *testing.T) {
	inner := &mockEmbedder{}
	kv := newMockKV()
	cached := New(inner, kv, zap.NewNop())
	ctx := context.Background()

	first, err := cached.Embed(ctx, []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 inner call, got %d", inner.calls)
	}

	second, err := cached.Embed(ctx, []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected cache to serve second call, inner calls = %d", inner.calls)
	}
	for i := range first {
		if first[i][0] != second[i][0] {
			t.Errorf("vector %d mismatch: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestEmbed_PartialHitSendsOnlyMisses(t *testing.T) {
	inner := &mockEmbedder{}
	kv := newMockKV()
	cached := New(inner, kv, zap.NewNop())
	ctx := context.Background()

	if _, err := cached.Embed(ctx, []string{"alpha"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sent []string
	inner.embedFn = func(_ context.Context, texts []string) ([][]float32, error) {
		sent = texts
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = []float32{9}
		}
		return out, nil
	}

	vectors, err := cached.Embed(ctx, []string{"alpha", "gamma"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sent) != 1 || sent[0] != "gamma" {
		t.Errorf("expected only the miss to reach the provider, got %v", sent)
	}
	if vectors[0][0] != 5 { // len("alpha") from the first call's stub
		t.Errorf("expected cached vector for alpha, got %v", vectors[0])
	}
	if vectors[1][0] != 9 {
		t.Errorf("expected fresh vector for gamma, got %v", vectors[1])
	}
}

func TestEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{
		embedFn: func(_ context.Context, _ []string) ([][]float32, error) {
			return nil, errors.New("provider down")
		},
	}
	cached := New(inner, newMockKV(), zap.NewNop())

	if _, err := cached.Embed(context.Background(), []string{"text"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestEmbed_Empty(t *testing.T) {
	inner := &mockEmbedder{}
	cached := New(inner, newMockKV(), zap.NewNop())

	vectors, err := cached.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vectors != nil || inner.calls != 0 {
		t.Errorf("expected no work for empty input")
	}
}

func TestBytesToVector_Invalid(t *testing.T) {
	if _, err := bytesToVector([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for misaligned data")
	}
}
