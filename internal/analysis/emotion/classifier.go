package emotion

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ewjiang/mindbridge/internal/ai"
)

const maxInputLen = 512

// Result is a single emotion label with the model's confidence.
type Result struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// Classifier maps free text to one of seven emotion labels. When the
// classification backend is absent or fails it falls back to a deterministic
// keyword scan, so Classify never returns an error.
type Classifier struct {
	backend  ai.TextClassifier
	disabled atomic.Bool
	logOnce  sync.Once
}

func NewClassifier(backend ai.TextClassifier) *Classifier {
	c := &Classifier{backend: backend}
	if backend == nil {
		c.disabled.Store(true)
	}
	return c
}

func (c *Classifier) Classify(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Emotion: "neutral", Confidence: 0.0}
	}

	if c.disabled.Load() {
		return fallbackClassify(text)
	}

	labels, err := c.backend.Classify(ctx, ai.Truncate(text, maxInputLen))
	if err != nil {
		if errors.Is(err, ai.ErrDisabled) {
			c.disabled.Store(true)
			c.logOnce.Do(func() {
				log.Printf("emotion: backend unavailable, switching to keyword fallback")
			})
		} else {
			log.Printf("emotion: classify failed: %v", err)
		}
		return fallbackClassify(text)
	}
	if len(labels) == 0 {
		return fallbackClassify(text)
	}

	top := labels[0]
	return Result{
		Emotion:    strings.ToLower(top.Name),
		Confidence: round4(top.Score),
	}
}

type keywordSet struct {
	emotion  string
	keywords []string
}

// Scanned in order; the first set with any match wins.
var fallbackKeywords = []keywordSet{
	{"joy", []string{"happy", "glad", "excited", "wonderful", "great", "love", "amazing", "fantastic", "good"}},
	{"sadness", []string{"sad", "unhappy", "depressed", "down", "miserable", "lonely", "hopeless", "crying", "tears"}},
	{"anger", []string{"angry", "mad", "furious", "annoyed", "frustrated", "hate", "pissed"}},
	{"fear", []string{"scared", "afraid", "terrified", "anxious", "worried", "nervous", "panic"}},
	{"surprise", []string{"surprised", "shocked", "amazed", "unexpected", "wow"}},
	{"disgust", []string{"disgusted", "gross", "sick", "revolting"}},
}

func fallbackClassify(text string) Result {
	lower := strings.ToLower(text)
	for _, set := range fallbackKeywords {
		for _, kw := range set.keywords {
			if strings.Contains(lower, kw) {
				return Result{Emotion: set.emotion, Confidence: 0.6}
			}
		}
	}
	return Result{Emotion: "neutral", Confidence: 0.5}
}

// severity ranks how concerning each emotion is for risk assessment.
var severity = map[string]int{
	"joy":      0,
	"surprise": 1,
	"neutral":  2,
	"anger":    3,
	"disgust":  3,
	"fear":     4,
	"sadness":  5,
}

// Severity returns a 0-5 concern score for an emotion label; unknown labels
// rank as neutral.
func Severity(emotion string) int {
	if s, ok := severity[strings.ToLower(emotion)]; ok {
		return s
	}
	return 2
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
