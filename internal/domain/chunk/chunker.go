package chunk

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// boundaryWindow is how far (in runes) the boundary search looks around the
// naive chunk end for a better cut point.
const boundaryWindow = 50

var (
	boldMarkers    = regexp.MustCompile(`\*\*`)
	headerMarkers  = regexp.MustCompile(`#{1,6}[ \t]+`)
	horizontalRuns = regexp.MustCompile(`[ \t]+`)
	newlinePadding = regexp.MustCompile(`[ \t]*\n[ \t]*`)
	extraNewlines  = regexp.MustCompile(`\n{3,}`)

	legalTerms  = regexp.MustCompile(`(?i)shall|may|must|required|prohibited|violation|fine|lien|assessment`)
	anyDigit    = regexp.MustCompile(`\d`)
	datePattern = regexp.MustCompile(`(?i)\d{1,2}/\d{1,2}/\d{4}|\d{4}-\d{2}-\d{2}|January|February|March|April|May|June|July|August|September|October|November|December`)
)

// Normalize strips markdown emphasis and headers, collapses horizontal
// whitespace runs to single spaces, collapses 3+ newlines to a paragraph
// break, and trims. Line structure is preserved so section title lines and
// paragraph boundaries survive. Idempotent: normalizing normalized text is
// a no-op.
func Normalize(text string) string {
	s := boldMarkers.ReplaceAllString(text, "")
	s = headerMarkers.ReplaceAllString(s, "")
	s = horizontalRuns.ReplaceAllString(s, " ")
	s = newlinePadding.ReplaceAllString(s, "\n")
	s = extraNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Split normalizes text and cuts it into overlapping chunks per cfg.
// Chunks come back in document order with strictly increasing ChunkIndex.
// Empty input yields no chunks; input shorter than cfg.MinChunkSize after
// normalization yields no chunks either.
func Split(text string, cfg Config) ([]Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chunk config: %w", err)
	}

	runes := []rune(Normalize(text))
	n := len(runes)
	if n == 0 {
		return nil, nil
	}

	var chunks []Chunk
	position := 0
	index := 0

	for position < n {
		naive := position + cfg.MaxChunkSize
		if naive > n {
			naive = n
		}
		end := adjustBoundary(runes, position, naive)

		content := strings.TrimSpace(string(runes[position:end]))
		if len([]rune(content)) < cfg.MinChunkSize {
			// Trailing fragment (or an entire document) too small to keep.
			break
		}

		section := ExtractSection(content)
		chunks = append(chunks, Chunk{
			ID:              fmt.Sprintf("chunk_%d", index),
			Content:         content,
			StartPosition:   position,
			EndPosition:     end,
			ChunkIndex:      index,
			SectionNumber:   section.Number,
			SectionTitle:    section.Title,
			HasSection:      section.Found,
			WordCount:       len(strings.Fields(content)),
			HasLegalTerms:   legalTerms.MatchString(content),
			ContainsNumbers: anyDigit.MatchString(content),
			ContainsDates:   datePattern.MatchString(content),
		})
		index++

		if end >= n {
			// The chunk consumed the rest of the document.
			break
		}

		// The +1 floor guarantees forward progress even when the overlap
		// swallows the whole advance.
		next := end - cfg.OverlapSize
		if next < position+1 {
			next = position + 1
		}
		position = next

		if position >= n-cfg.MinChunkSize {
			break
		}
	}

	return chunks, nil
}

// adjustBoundary moves the naive chunk end to the best cut point within
// boundaryWindow runes of it. Preference order: the latest sentence-ending
// punctuation followed by whitespace, then the latest paragraph break, then
// the start of the latest whitespace run, then the naive end unchanged.
// The returned boundary always lies strictly after start.
func adjustBoundary(r []rune, start, naive int) int {
	if naive >= len(r) {
		return len(r)
	}

	lo := naive - boundaryWindow
	if lo < start+1 {
		lo = start + 1
	}
	hi := naive + boundaryWindow
	if hi > len(r) {
		hi = len(r)
	}

	// Latest sentence ending: cut just after the punctuation.
	for i := hi - 2; i >= lo; i-- {
		if isSentenceEnd(r[i]) && unicode.IsSpace(r[i+1]) {
			return i + 1
		}
	}

	// Latest paragraph break: cut before the blank line.
	for i := hi - 2; i >= lo; i-- {
		if r[i] == '\n' && r[i+1] == '\n' {
			return i
		}
	}

	// Latest whitespace run: cut at the run's start.
	for i := hi - 1; i >= lo; i-- {
		if unicode.IsSpace(r[i]) {
			for i > lo && unicode.IsSpace(r[i-1]) {
				i--
			}
			return i
		}
	}

	return naive
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
