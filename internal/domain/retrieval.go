package domain

// SearchResult is a retrieved bylaws chunk plus retrieval-time scoring.
// Score is the normalized similarity in [0,1] used for thresholding;
// SearchScore and RerankerScore are secondary provider signals passed
// through untouched and never consulted for the threshold decision.
type SearchResult struct {
	ID            string
	Content       string
	SectionNumber string
	SectionTitle  string
	ChunkIndex    int
	HasSection    bool
	WordCount     int
	Score         float64
	SearchScore   float64
	RerankerScore float64
}

// Source is a verifiable citation attached to an answer.
type Source struct {
	SectionNumber  string  `json:"sectionNumber"`
	SectionTitle   string  `json:"sectionTitle"`
	RelevanceScore float64 `json:"relevanceScore"`
	Content        string  `json:"content"`
}

// Answer is the unit returned to a caller for one question.
// Created per query, never persisted.
type Answer struct {
	Response           string   `json:"response"`
	Sources            []Source `json:"sources"`
	RetrievedChunks    int      `json:"retrievedChunks"`
	HasRelevantContent bool     `json:"hasRelevantContent"`
}

// Message is a chat message sent to the generation provider.
type Message struct {
	Role    string
	Content string
}

// Chat roles understood by the completion provider.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Completion is the generation provider's response with token accounting.
type Completion struct {
	Text         string
	PromptTokens int
	TotalTokens  int
}
