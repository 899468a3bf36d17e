package ai

import (
	"context"
	"errors"
)

// ErrDisabled marks a backend that is not configured (e.g. missing
// credentials). Callers treat it as a permanent signal and stop calling.
var ErrDisabled = errors.New("ai: backend disabled")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator produces a completion for a role-tagged message sequence.
type Generator interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Label is one entry of a ranked classification result.
type Label struct {
	Name  string  `json:"label"`
	Score float64 `json:"score"`
}

// TextClassifier returns labels ranked by score, best first.
type TextClassifier interface {
	Classify(ctx context.Context, text string) ([]Label, error)
}

// Truncate bounds the text handed to an inference backend. Long inputs only
// add latency and cost without changing the top label.
func Truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
