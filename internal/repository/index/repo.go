// Package index implements the bylaws search index over the hash store:
// schema lifecycle, hybrid retrieval, batch upsert, and stats.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/parkridge-hoa/bylaws-assistant/internal/db"
	"github.com/parkridge-hoa/bylaws-assistant/internal/domain"
	"github.com/parkridge-hoa/bylaws-assistant/internal/metrics"
)

// upsertBatchSize is the number of hashes written per pipelined round-trip.
const upsertBatchSize = 100

// store is the consumer interface for index operations (ISP).
type store interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index string) (int, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Config holds index schema settings.
type Config struct {
	Name            string
	KeyPrefix       string
	VectorDim       int
	HNSWM           int
	HNSWEFConstruct int
}

// Repo implements usecase answer.Index and ingest.Index.
type Repo struct {
	store  store
	cfg    Config
	logger *zap.Logger
}

// New creates an index repository.
func New(s store, cfg Config, logger *zap.Logger) *Repo {
	return &Repo{store: s, cfg: cfg, logger: logger}
}

// searchReturnFields are the hash fields fetched for retrieval. The vector
// stays server-side.
var searchReturnFields = []string{
	"id", "content", "sectionNumber", "sectionTitle",
	"chunkIndex", "hasSection", "wordCount",
}

// EnsureIndex creates the FT index if it does not exist. Idempotent.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.cfg.Name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.cfg.Name, err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     r.cfg.Name,
		Prefixes: []string{r.cfg.KeyPrefix},
		Fields: []db.IndexField{
			{Name: "content", Type: db.IndexFieldText},
			{Name: "sectionTitle", Type: db.IndexFieldText},
			{Name: "sectionNumber", Type: db.IndexFieldTag},
			{Name: "hasSection", Type: db.IndexFieldTag},
			{Name: "hasLegalTerms", Type: db.IndexFieldTag},
			{Name: "chunkIndex", Type: db.IndexFieldNumeric},
			{Name: "wordCount", Type: db.IndexFieldNumeric},
			{
				Name:              "vector",
				Type:              db.IndexFieldVector,
				VectorDim:         r.cfg.VectorDim,
				VectorM:           r.cfg.HNSWM,
				VectorEFConstruct: r.cfg.HNSWEFConstruct,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", r.cfg.Name, err)
	}

	r.logger.Info("Created index", zap.String("index", r.cfg.Name))
	return nil
}

// Search runs the hybrid query: KNN over the question vector plus a lexical
// pass over the question text. KNN supplies the normalized similarity used
// for thresholding; the lexical score is attached as a secondary signal.
// Text-only hits come back with Score 0 so callers can threshold them away.
func (r *Repo) Search(ctx context.Context, query string, vector []float32, topK int) ([]domain.SearchResult, error) {
	start := time.Now()

	candidates := topK * 2

	knn, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.cfg.Name,
		Vector:       vector,
		K:            candidates,
		ReturnFields: searchReturnFields,
	})
	if err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues("error").Inc()
		return nil, r.mapSearchErr(err)
	}

	text, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName:    r.cfg.Name,
		Field:        "content",
		Query:        query,
		TopK:         candidates,
		ReturnFields: searchReturnFields,
	})
	if err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues("error").Inc()
		return nil, r.mapSearchErr(err)
	}

	results := mergeResults(knn, text, r.cfg.KeyPrefix)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	metrics.RetrievalRequestsTotal.WithLabelValues("success").Inc()
	metrics.RetrievalDuration.Observe(time.Since(start).Seconds())

	return results, nil
}

// Upsert writes records in pipelined batches.
func (r *Repo) Upsert(ctx context.Context, records []domain.IndexRecord) error {
	for start := 0; start < len(records); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}

		items := make([]db.HashSetItem, 0, end-start)
		for _, rec := range records[start:end] {
			items = append(items, db.HashSetItem{
				Key:    r.cfg.KeyPrefix + rec.ID,
				Fields: buildHashFields(&rec),
			})
		}

		if err := r.store.HSetMulti(ctx, items); err != nil {
			return fmt.Errorf("upsert batch [%d:%d]: %w: %w", start, end, domain.ErrIndexProvider, err)
		}

		r.logger.Debug("Upserted batch",
			zap.Int("from", start), zap.Int("to", end), zap.Int("total", len(records)))
	}
	return nil
}

// Clear deletes every chunk under the key prefix. Returns the number of
// keys removed.
func (r *Repo) Clear(ctx context.Context) (int, error) {
	keys, err := r.store.Scan(ctx, r.cfg.KeyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("scan %s*: %w: %w", r.cfg.KeyPrefix, domain.ErrIndexProvider, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	if err := r.store.Del(ctx, keys...); err != nil {
		return 0, fmt.Errorf("delete %d keys: %w: %w", len(keys), domain.ErrIndexProvider, err)
	}

	r.logger.Info("Cleared index keyspace", zap.Int("deleted", len(keys)))
	return len(keys), nil
}

// Stats returns the document count and a sample record.
func (r *Repo) Stats(ctx context.Context) (domain.IndexStats, error) {
	count, err := r.store.SearchCount(ctx, r.cfg.Name)
	if err != nil {
		return domain.IndexStats{}, r.mapSearchErr(err)
	}

	stats := domain.IndexStats{
		IndexName:     r.cfg.Name,
		DocumentCount: count,
		HasDocuments:  count > 0,
	}

	if count > 0 {
		keys, err := r.store.Scan(ctx, r.cfg.KeyPrefix+"*")
		if err == nil && len(keys) > 0 {
			sort.Strings(keys)
			if fields, err := r.store.HGetAll(ctx, keys[0]); err == nil && len(fields) > 0 {
				sample := parseHashFields(fields)
				stats.Sample = &sample
			}
		}
	}

	return stats, nil
}

func (r *Repo) mapSearchErr(err error) error {
	if errors.Is(err, db.ErrIndexNotFound) {
		return domain.ErrIndexNotFound
	}
	return fmt.Errorf("search %s: %w: %w", r.cfg.Name, domain.ErrIndexProvider, err)
}

// mergeResults fuses the KNN and lexical result sets by chunk id. The KNN
// similarity wins as the primary score; the lexical score is carried on
// SearchScore for overlapping and text-only hits.
func mergeResults(knn, text *db.SearchResult, keyPrefix string) []domain.SearchResult {
	var merged []domain.SearchResult
	byID := make(map[string]int)

	if knn != nil {
		for _, entry := range knn.Entries {
			res := parseEntry(entry, keyPrefix)
			res.Score = entry.Score
			byID[res.ID] = len(merged)
			merged = append(merged, res)
		}
	}

	if text != nil {
		for _, entry := range text.Entries {
			res := parseEntry(entry, keyPrefix)
			if i, ok := byID[res.ID]; ok {
				merged[i].SearchScore = entry.Score
				continue
			}
			res.SearchScore = entry.Score
			byID[res.ID] = len(merged)
			merged = append(merged, res)
		}
	}

	return merged
}
