package domain

// IndexRecord is the persisted contract between chunker output and the
// search index. The field set must stay stable across ingestion runs so
// citations keep resolving against re-ingested documents.
type IndexRecord struct {
	ID            string
	Content       string
	Vector        []float32
	SectionNumber string
	SectionTitle  string
	ChunkIndex    int
	HasSection    bool
	WordCount     int
	HasLegalTerms bool
}

// IndexStats describes the current state of the bylaws index.
type IndexStats struct {
	IndexName     string
	DocumentCount int
	HasDocuments  bool
	Sample        *IndexRecord
}
