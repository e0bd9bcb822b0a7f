package chunk

// Summary describes a chunking run without persisting anything. The
// ingestion CLI prints it for dry runs.
type Summary struct {
	TotalChunks     int
	AverageSize     int
	SectionsFound   int
	SectionNumbers  []string
	TotalCharacters int
	CoveragePercent int
	Samples         []Sample
}

// Sample is a truncated look at one chunk.
type Sample struct {
	ID            string
	Length        int
	SectionNumber string
	SectionTitle  string
	Preview       string
}

const (
	maxSamples       = 3
	samplePreviewLen = 100
)

// Preview chunks text and summarizes the result.
func Preview(text string, cfg Config) (Summary, error) {
	chunks, err := Split(text, cfg)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{
		TotalChunks:     len(chunks),
		TotalCharacters: len([]rune(text)),
	}

	total := 0
	seen := make(map[string]struct{})
	for _, c := range chunks {
		total += len([]rune(c.Content))
		if c.HasSection {
			s.SectionsFound++
			if _, ok := seen[c.SectionNumber]; !ok {
				seen[c.SectionNumber] = struct{}{}
				s.SectionNumbers = append(s.SectionNumbers, c.SectionNumber)
			}
		}
	}

	if len(chunks) > 0 {
		s.AverageSize = total / len(chunks)
	}
	if s.TotalCharacters > 0 {
		s.CoveragePercent = total * 100 / s.TotalCharacters
	}

	for _, c := range chunks[:min(maxSamples, len(chunks))] {
		preview := c.Content
		if r := []rune(preview); len(r) > samplePreviewLen {
			preview = string(r[:samplePreviewLen]) + "..."
		}
		s.Samples = append(s.Samples, Sample{
			ID:            c.ID,
			Length:        len([]rune(c.Content)),
			SectionNumber: c.SectionNumber,
			SectionTitle:  c.SectionTitle,
			Preview:       preview,
		})
	}

	return s, nil
}
