// Package chunk splits a bylaws document into overlapping, boundary-aware
// segments with extracted section metadata. It is pure: no I/O, no state.
package chunk

import "fmt"

// Chunk is a contiguous slice of the normalized source document.
// Start and End are rune offsets into the normalized text; Content is the
// trimmed slice between them.
type Chunk struct {
	ID              string
	Content         string
	StartPosition   int
	EndPosition     int
	ChunkIndex      int
	SectionNumber   string
	SectionTitle    string
	HasSection      bool
	WordCount       int
	HasLegalTerms   bool
	ContainsNumbers bool
	ContainsDates   bool
}

// Config controls chunk sizing. All sizes are in runes of normalized text.
type Config struct {
	// MaxChunkSize is the upper bound on a chunk's length before the
	// boundary search adjusts the cut point.
	MaxChunkSize int
	// OverlapSize is carried from the end of one chunk into the next.
	OverlapSize int
	// MinChunkSize discards shorter trailing fragments.
	MinChunkSize int
}

// DefaultConfig returns the serving-time chunking configuration.
func DefaultConfig() Config {
	return Config{
		MaxChunkSize: 1500,
		OverlapSize:  300,
		MinChunkSize: 100,
	}
}

// IngestConfig returns the tighter configuration used by the ingestion CLI.
func IngestConfig() Config {
	return Config{
		MaxChunkSize: 1000,
		OverlapSize:  200,
		MinChunkSize: 100,
	}
}

// Validate rejects configurations under which the split loop could not make
// useful progress. Called before any chunking happens, never discovered via
// a runaway loop.
func (c Config) Validate() error {
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("maxChunkSize must be positive, got %d", c.MaxChunkSize)
	}
	if c.MinChunkSize <= 0 {
		return fmt.Errorf("minChunkSize must be positive, got %d", c.MinChunkSize)
	}
	if c.OverlapSize < 0 {
		return fmt.Errorf("overlapSize must not be negative, got %d", c.OverlapSize)
	}
	if c.OverlapSize >= c.MaxChunkSize {
		return fmt.Errorf("overlapSize %d must be smaller than maxChunkSize %d",
			c.OverlapSize, c.MaxChunkSize)
	}
	if c.MinChunkSize > c.MaxChunkSize {
		return fmt.Errorf("minChunkSize %d must not exceed maxChunkSize %d",
			c.MinChunkSize, c.MaxChunkSize)
	}
	return nil
}
