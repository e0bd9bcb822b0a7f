package answer

import (
	"regexp"

	"github.com/parkridge-hoa/bylaws-assistant/internal/domain"
)

// sectionRefPattern matches explicit section references in generated text,
// e.g. "Section 3.1".
var sectionRefPattern = regexp.MustCompile(`(?i)Section\s+(\d+\.\d+)`)

// reconcileCitations turns the generated text plus the retrieved chunks into
// the final answer. Only sections the model actually referenced become
// sources; when it cited none, sectioned chunks are used as a fallback so
// the reader still gets pointers into the bylaws.
func reconcileCitations(response string, chunks []domain.SearchResult, fallbackLimit int) domain.Answer {
	cited := make(map[string]struct{})
	for _, m := range sectionRefPattern.FindAllStringSubmatch(response, -1) {
		cited[m[1]] = struct{}{}
	}

	sources := make([]domain.Source, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.SectionNumber == "" {
			continue
		}
		if _, ok := cited[chunk.SectionNumber]; !ok {
			continue
		}
		sources = append(sources, toSource(chunk))
	}

	if len(sources) == 0 && len(chunks) > 0 {
		for _, chunk := range chunks {
			if chunk.SectionNumber == "" {
				continue
			}
			sources = append(sources, toSource(chunk))
			if fallbackLimit > 0 && len(sources) >= fallbackLimit {
				break
			}
		}
	}

	return domain.Answer{
		Response:           response,
		Sources:            sources,
		RetrievedChunks:    len(chunks),
		HasRelevantContent: len(chunks) > 0,
	}
}

func toSource(chunk domain.SearchResult) domain.Source {
	return domain.Source{
		SectionNumber:  chunk.SectionNumber,
		SectionTitle:   chunk.SectionTitle,
		RelevanceScore: chunk.Score,
		Content:        chunk.Content,
	}
}
