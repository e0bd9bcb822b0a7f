package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for lexical full-text search. Terms are matched
// with OR semantics (any term suffices).
type TextQuery struct {
	IndexName    string
	Field        string
	Query        string
	TopK         int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit. For KNN searches Score is the
// normalized cosine similarity in [0,1]; for text searches it is the raw
// lexical score.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// Index field types.
type IndexFieldType string

const (
	IndexFieldText    IndexFieldType = "text"
	IndexFieldTag     IndexFieldType = "tag"
	IndexFieldNumeric IndexFieldType = "numeric"
	IndexFieldVector  IndexFieldType = "vector"
)

// IndexField describes a single schema field of an FT index.
type IndexField struct {
	Name string
	Type IndexFieldType

	// Vector field attributes (HNSW, cosine distance, float32).
	VectorDim         int
	VectorM           int
	VectorEFConstruct int
}

// IndexDefinition describes an FT index over hash keys.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}
