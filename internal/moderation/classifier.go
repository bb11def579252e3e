// Package moderation cross-checks text against an external moderation model.
package moderation

import (
	"context"
	"errors"
)

var (
	// ErrNoAPIKey is returned when the client is built without credentials
	ErrNoAPIKey = errors.New("moderation API key is required")

	// ErrRateLimited is returned when every attempt was rejected with HTTP 429
	ErrRateLimited = errors.New("moderation API rate limit exceeded")
)

// Result is the outcome of one moderation lookup.
// CategoryScores is nil unless Flagged, and then holds only the flagged categories.
type Result struct {
	Flagged        bool               `json:"flagged"`
	CategoryScores map[string]float64 `json:"category_scores,omitempty"`
}

// Classifier decides whether text violates content policy
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

// ClassifierFunc adapts a function to the Classifier interface
type ClassifierFunc func(ctx context.Context, text string) (Result, error)

// Classify calls f
func (f ClassifierFunc) Classify(ctx context.Context, text string) (Result, error) {
	return f(ctx, text)
}
