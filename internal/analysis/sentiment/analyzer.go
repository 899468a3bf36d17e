package sentiment

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

// Result is a signed sentiment score in [-1, 1] with a polarity label.
type Result struct {
	Score    float64 `json:"score"`
	Polarity string  `json:"polarity"`
}

// Analyzer maps free text to a sentiment polarity and signed score. The
// backend is a binary positive/negative classifier; when it is absent or
// fails, a lexicon count takes over. Analyze never returns an error.
type Analyzer struct {
	backend  ai.TextClassifier
	disabled atomic.Bool
	logOnce  sync.Once
}

func NewAnalyzer(backend ai.TextClassifier) *Analyzer {
	a := &Analyzer{backend: backend}
	if backend == nil {
		a.disabled.Store(true)
	}
	return a
}

func (a *Analyzer) Analyze(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Score: 0.0, Polarity: "neutral"}
	}

	if a.disabled.Load() {
		return fallbackAnalyze(text)
	}

	labels, err := a.backend.Classify(ctx, ai.Truncate(text, maxInputLen))
	if err != nil {
		if errors.Is(err, ai.ErrDisabled) {
			a.disabled.Store(true)
			a.logOnce.Do(func() {
				log.Printf("sentiment: backend unavailable, switching to lexicon fallback")
			})
		} else {
			log.Printf("sentiment: analyze failed: %v", err)
		}
		return fallbackAnalyze(text)
	}
	if len(labels) == 0 {
		return fallbackAnalyze(text)
	}

	top := labels[0]
	score := top.Score
	polarity := "positive"
	if strings.ToUpper(top.Name) != "POSITIVE" {
		score = -score
		polarity = "negative"
	}
	// Near-zero scores are not a meaningful polarity either way; the raw
	// score is kept.
	if math.Abs(score) < 0.3 {
		polarity = "neutral"
	}

	return Result{Score: round4(score), Polarity: polarity}
}

var positiveWords = []string{
	"good", "great", "happy", "love", "wonderful", "amazing",
	"fantastic", "excellent", "best", "beautiful", "joy", "hope",
	"better", "improve", "grateful", "thanks", "helpful",
}

var negativeWords = []string{
	"bad", "terrible", "sad", "hate", "awful", "horrible",
	"worst", "pain", "hurt", "lonely", "hopeless", "scared",
	"angry", "frustrated", "tired", "exhausted", "stressed",
	"anxious", "worried", "depressed", "miserable",
}

func fallbackAnalyze(text string) Result {
	lower := strings.ToLower(text)

	var positive, negative int
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			positive++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			negative++
		}
	}

	total := positive + negative
	if total == 0 {
		return Result{Score: 0.0, Polarity: "neutral"}
	}

	score := float64(positive-negative) / float64(total)

	polarity := "neutral"
	if score > 0.2 {
		polarity = "positive"
	} else if score < -0.2 {
		polarity = "negative"
	}

	return Result{Score: round4(score), Polarity: polarity}
}

// Intensity buckets the absolute score into coarse strength bands.
func Intensity(score float64) string {
	abs := math.Abs(score)
	switch {
	case abs >= 0.8:
		return "very_strong"
	case abs >= 0.6:
		return "strong"
	case abs >= 0.4:
		return "moderate"
	case abs >= 0.2:
		return "mild"
	default:
		return "neutral"
	}
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
