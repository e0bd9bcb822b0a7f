package answer

// Options are the per-question retrieval and generation tunables.
type Options struct {
	// TopK is the maximum number of chunks passed to generation.
	TopK int
	// Threshold is the minimum normalized similarity for a chunk to count
	// as relevant.
	Threshold float64
	// MaxResponseTokens caps the generated answer length.
	MaxResponseTokens int
	// CitationFallbackLimit bounds fallback sources when the answer cites
	// no section explicitly. 0 means all sectioned chunks.
	CitationFallbackLimit int
}

// DefaultOptions returns the serving configuration.
func DefaultOptions() Options {
	return Options{
		TopK:                  8,
		Threshold:             0.5,
		MaxResponseTokens:     800,
		CitationFallbackLimit: 0,
	}
}

// LegacyOptions returns the stricter original configuration.
func LegacyOptions() Options {
	return Options{
		TopK:                  5,
		Threshold:             0.7,
		MaxResponseTokens:     800,
		CitationFallbackLimit: 3,
	}
}

// withDefaults fills unset fields from DefaultOptions. Threshold 0 is a
// valid value ("no filtering") and is kept as-is.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.TopK <= 0 {
		o.TopK = def.TopK
	}
	if o.MaxResponseTokens <= 0 {
		o.MaxResponseTokens = def.MaxResponseTokens
	}
	if o.CitationFallbackLimit < 0 {
		o.CitationFallbackLimit = def.CitationFallbackLimit
	}
	return o
}
