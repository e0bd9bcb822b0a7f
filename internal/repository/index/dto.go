package index

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/parkridge-hoa/bylaws-assistant/internal/db"
	"github.com/parkridge-hoa/bylaws-assistant/internal/domain"
)

// buildHashFields flattens an IndexRecord into hash fields. The field set is
// the persisted contract; renaming or dropping a field breaks citations
// against previously ingested documents.
func buildHashFields(rec *domain.IndexRecord) map[string]string {
	return map[string]string{
		"id":            rec.ID,
		"content":       rec.Content,
		"vector":        vectorToBytes(rec.Vector),
		"sectionNumber": rec.SectionNumber,
		"sectionTitle":  rec.SectionTitle,
		"chunkIndex":    strconv.Itoa(rec.ChunkIndex),
		"hasSection":    strconv.FormatBool(rec.HasSection),
		"wordCount":     strconv.Itoa(rec.WordCount),
		"hasLegalTerms": strconv.FormatBool(rec.HasLegalTerms),
	}
}

// parseHashFields reverses buildHashFields.
func parseHashFields(m map[string]string) domain.IndexRecord {
	chunkIndex, _ := strconv.Atoi(m["chunkIndex"])
	wordCount, _ := strconv.Atoi(m["wordCount"])

	return domain.IndexRecord{
		ID:            m["id"],
		Content:       m["content"],
		Vector:        bytesToVector(m["vector"]),
		SectionNumber: m["sectionNumber"],
		SectionTitle:  m["sectionTitle"],
		ChunkIndex:    chunkIndex,
		HasSection:    m["hasSection"] == "true",
		WordCount:     wordCount,
		HasLegalTerms: m["hasLegalTerms"] == "true",
	}
}

// parseEntry converts a search hit into a domain result. Scores are filled
// in by the caller.
func parseEntry(entry db.SearchEntry, keyPrefix string) domain.SearchResult {
	id := entry.Fields["id"]
	if id == "" {
		id = strings.TrimPrefix(entry.Key, keyPrefix)
	}
	chunkIndex, _ := strconv.Atoi(entry.Fields["chunkIndex"])
	wordCount, _ := strconv.Atoi(entry.Fields["wordCount"])

	return domain.SearchResult{
		ID:            id,
		Content:       entry.Fields["content"],
		SectionNumber: entry.Fields["sectionNumber"],
		SectionTitle:  entry.Fields["sectionTitle"],
		ChunkIndex:    chunkIndex,
		HasSection:    entry.Fields["hasSection"] == "true",
		WordCount:     wordCount,
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
