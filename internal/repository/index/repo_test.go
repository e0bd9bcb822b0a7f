package index

import (
	"context"
	"errors"
	"testing"

	"github.com/parkridge-hoa/bylaws-assistant/internal/db"
	"github.com/parkridge-hoa/bylaws-assistant/internal/domain"
)

// --- EnsureIndex ---

func TestEnsureIndex_CreatesWhenMissing(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	var created *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		created = def
		return nil
	}

	if err := repo.EnsureIndex(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatal("expected CreateIndex to be called")
	}
	if created.Name != "bylaws:chunks:idx" {
		t.Errorf("unexpected index name: %s", created.Name)
	}
	if len(created.Prefixes) != 1 || created.Prefixes[0] != "bylaws:chunk:" {
		t.Errorf("unexpected prefixes: %v", created.Prefixes)
	}

	var vectorField *db.IndexField
	for i := range created.Fields {
		if created.Fields[i].Name == "vector" {
			vectorField = &created.Fields[i]
		}
	}
	if vectorField == nil {
		t.Fatal("expected a vector field")
	}
	if vectorField.VectorDim != 4 || vectorField.VectorM != 16 || vectorField.VectorEFConstruct != 200 {
		t.Errorf("unexpected vector field: %+v", vectorField)
	}
}

func TestEnsureIndex_SkipsWhenPresent(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) {
		return true, nil
	}
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		t.Fatal("CreateIndex should not be called")
		return nil
	}

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureIndex_ToleratesConcurrentCreate(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		return db.ErrIndexExists
	}

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- Search ---

func knnEntry(id string, score float64, content string) db.SearchEntry {
	return db.SearchEntry{
		Key:   "bylaws:chunk:" + id,
		Score: score,
		Fields: map[string]string{
			"id":            id,
			"content":       content,
			"sectionNumber": "3.1",
			"sectionTitle":  "Quorum",
			"chunkIndex":    "2",
			"hasSection":    "true",
			"wordCount":     "40",
		},
	}
}

func TestSearch_MergesKNNAndText(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.K != 10 {
			t.Errorf("expected K=10 (top*2), got %d", q.K)
		}
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				knnEntry("chunk_0", 0.82, "Quorum is one tenth of members."),
				knnEntry("chunk_1", 0.61, "Meetings are held annually."),
			},
		}, nil
	}
	ms.searchTextFn = func(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
		if q.Field != "content" {
			t.Errorf("unexpected text field: %s", q.Field)
		}
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				{Key: "bylaws:chunk:chunk_1", Score: 4.2, Fields: map[string]string{"id": "chunk_1"}},
				{Key: "bylaws:chunk:chunk_9", Score: 1.1, Fields: map[string]string{"id": "chunk_9", "content": "Lexical only."}},
			},
		}, nil
	}

	results, err := repo.Search(ctx, "quorum", testVector(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 merged results, got %d", len(results))
	}

	// Sorted by similarity descending; text-only hit sinks to the bottom.
	if results[0].ID != "chunk_0" || results[1].ID != "chunk_1" || results[2].ID != "chunk_9" {
		t.Fatalf("unexpected order: %s, %s, %s", results[0].ID, results[1].ID, results[2].ID)
	}
	if results[0].Score != 0.82 {
		t.Errorf("expected similarity 0.82, got %v", results[0].Score)
	}
	if results[1].Score != 0.61 || results[1].SearchScore != 4.2 {
		t.Errorf("overlapping hit should keep KNN score and gain lexical score: %+v", results[1])
	}
	if results[2].Score != 0 || results[2].SearchScore != 1.1 {
		t.Errorf("text-only hit should carry lexical score with zero similarity: %+v", results[2])
	}
	if results[0].SectionNumber != "3.1" || !results[0].HasSection {
		t.Errorf("metadata not parsed: %+v", results[0])
	}
}

func TestSearch_IndexMissing(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, db.ErrIndexNotFound
	}

	_, err := repo.Search(context.Background(), "q", testVector(), 5)
	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Errorf("expected domain.ErrIndexNotFound, got %v", err)
	}
}

func TestSearch_ProviderError(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchTextFn = func(_ context.Context, _ *db.TextQuery) (*db.SearchResult, error) {
		return nil, errors.New("connection reset")
	}

	_, err := repo.Search(context.Background(), "q", testVector(), 5)
	if !errors.Is(err, domain.ErrIndexProvider) {
		t.Errorf("expected domain.ErrIndexProvider, got %v", err)
	}
}

// --- Upsert ---

func TestUpsert_Batches(t *testing.T) {
	repo, ms := newTestRepo(t)

	var batches [][]db.HashSetItem
	ms.hsetMultiFn = func(_ context.Context, items []db.HashSetItem) error {
		batches = append(batches, items)
		return nil
	}

	records := make([]domain.IndexRecord, 250)
	for i := range records {
		records[i] = domain.IndexRecord{ID: "chunk_" + string(rune('a'+i%26)), Vector: testVector()}
	}

	if err := repo.Upsert(context.Background(), records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	if len(batches[0]) != 100 || len(batches[1]) != 100 || len(batches[2]) != 50 {
		t.Errorf("unexpected batch sizes: %d, %d, %d", len(batches[0]), len(batches[1]), len(batches[2]))
	}
}

func TestUpsert_FieldContract(t *testing.T) {
	repo, ms := newTestRepo(t)

	var item db.HashSetItem
	ms.hsetMultiFn = func(_ context.Context, items []db.HashSetItem) error {
		item = items[0]
		return nil
	}

	rec := domain.IndexRecord{
		ID:            "chunk_7",
		Content:       "No fences above six feet.",
		Vector:        testVector(),
		SectionNumber: "9.2",
		SectionTitle:  "Fences",
		ChunkIndex:    7,
		HasSection:    true,
		WordCount:     5,
		HasLegalTerms: false,
	}
	if err := repo.Upsert(context.Background(), []domain.IndexRecord{rec}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if item.Key != "bylaws:chunk:chunk_7" {
		t.Errorf("unexpected key: %s", item.Key)
	}
	want := map[string]string{
		"id":            "chunk_7",
		"content":       "No fences above six feet.",
		"sectionNumber": "9.2",
		"sectionTitle":  "Fences",
		"chunkIndex":    "7",
		"hasSection":    "true",
		"wordCount":     "5",
		"hasLegalTerms": "false",
	}
	for k, v := range want {
		if item.Fields[k] != v {
			t.Errorf("field %s = %q, want %q", k, item.Fields[k], v)
		}
	}
	if len(item.Fields["vector"]) != 16 {
		t.Errorf("expected 16-byte vector blob, got %d bytes", len(item.Fields["vector"]))
	}
}

// --- Clear ---

func TestClear(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		if pattern != "bylaws:chunk:*" {
			t.Errorf("unexpected scan pattern: %s", pattern)
		}
		return []string{"bylaws:chunk:chunk_0", "bylaws:chunk:chunk_1"}, nil
	}

	var deleted []string
	ms.delFn = func(_ context.Context, keys ...string) error {
		deleted = keys
		return nil
	}

	n, err := repo.Clear(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 || len(deleted) != 2 {
		t.Errorf("expected 2 deletions, got n=%d deleted=%v", n, deleted)
	}
}

func TestClear_Empty(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.delFn = func(_ context.Context, _ ...string) error {
		t.Fatal("Del should not be called for an empty keyspace")
		return nil
	}

	n, err := repo.Clear(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
}

// --- Stats ---

func TestStats_WithSample(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchCountFn = func(_ context.Context, index string) (int, error) {
		return 42, nil
	}
	ms.scanFn = func(_ context.Context, _ string) ([]string, error) {
		return []string{"bylaws:chunk:chunk_1", "bylaws:chunk:chunk_0"}, nil
	}
	ms.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		if key != "bylaws:chunk:chunk_0" {
			t.Errorf("expected lowest key sampled, got %s", key)
		}
		return map[string]string{
			"id":            "chunk_0",
			"content":       "Article I",
			"sectionNumber": "1.1",
			"hasSection":    "true",
			"chunkIndex":    "0",
			"wordCount":     "2",
		}, nil
	}

	stats, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.DocumentCount != 42 || !stats.HasDocuments {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Sample == nil || stats.Sample.ID != "chunk_0" || stats.Sample.SectionNumber != "1.1" {
		t.Errorf("unexpected sample: %+v", stats.Sample)
	}
}

func TestStats_EmptyIndex(t *testing.T) {
	repo, _ := newTestRepo(t)

	stats, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.HasDocuments || stats.Sample != nil {
		t.Errorf("unexpected stats for empty index: %+v", stats)
	}
}

func TestStats_IndexMissing(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchCountFn = func(_ context.Context, _ string) (int, error) {
		return 0, db.ErrIndexNotFound
	}

	_, err := repo.Stats(context.Background())
	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Errorf("expected domain.ErrIndexNotFound, got %v", err)
	}
}

// --- dto round trip ---

func TestHashFieldsRoundTrip(t *testing.T) {
	rec := domain.IndexRecord{
		ID:            "chunk_3",
		Content:       "Assessments shall be levied annually.",
		Vector:        []float32{0.5, -0.25, 1.0},
		SectionNumber: "4.2",
		SectionTitle:  "Assessments",
		ChunkIndex:    3,
		HasSection:    true,
		WordCount:     5,
		HasLegalTerms: true,
	}

	got := parseHashFields(buildHashFields(&rec))

	if got.ID != rec.ID || got.Content != rec.Content || got.SectionNumber != rec.SectionNumber {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.ChunkIndex != 3 || got.WordCount != 5 || !got.HasSection || !got.HasLegalTerms {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if len(got.Vector) != 3 || got.Vector[0] != 0.5 || got.Vector[1] != -0.25 || got.Vector[2] != 1.0 {
		t.Errorf("vector round trip mismatch: %v", got.Vector)
	}
}
