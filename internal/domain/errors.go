package domain

import "errors"

var (
	// ErrInvalidQuestion signals an empty or whitespace-only question.
	ErrInvalidQuestion = errors.New("question must be a non-empty string")
	// ErrIndexNotFound signals that the bylaws index has not been created yet.
	// Recoverable: callers degrade to a "database not initialized" response.
	ErrIndexNotFound = errors.New("bylaws index not found")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrIndexProvider signals a search index provider failure.
	ErrIndexProvider = errors.New("search provider error")
	// ErrGenerationProvider signals a chat completion provider failure.
	ErrGenerationProvider = errors.New("generation provider error")
)
