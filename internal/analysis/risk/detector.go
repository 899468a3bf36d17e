package risk

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// Assessment is the outcome of scoring one message.
type Assessment struct {
	Level   Level    `json:"level"`
	Score   float64  `json:"score"`
	Factors []string `json:"factors"`
}

// Signals carries the upstream classifier outputs. Either field may be
// absent when the detector runs standalone.
type Signals struct {
	Emotion   string
	Sentiment *float64
}

// Phrases that flag a message as high risk on any substring match.
var highRiskKeywords = []string{
	"kill myself",
	"want to die",
	"hurt myself",
	"end my life",
	"suicide",
	"self harm",
	"self-harm",
	"cut myself",
	"don't want to live",
	"don't want to be alive",
	"better off dead",
	"no reason to live",
	"end it all",
	"take my own life",
	"overdose",
}

var mediumRiskPatterns = compile([]string{
	`feel(?:ing)?\s+(?:so\s+)?(?:hopeless|worthless|empty|numb)`,
	`(?:nobody|no\s*one)\s+(?:cares|loves|understands)`,
	`can'?t\s+(?:go on|take it|handle|cope)`,
	`(?:hate|despise)\s+myself`,
	`(?:always|constantly)\s+(?:sad|depressed|anxious)`,
	`(?:nothing|life)\s+(?:matters|has meaning)`,
	`(?:trapped|stuck)\s+(?:in|with)`,
	`(?:never|won't)\s+get\s+better`,
	`burden\s+(?:to|on)\s+(?:everyone|others|family)`,
})

var lowRiskPatterns = compile([]string{
	`(?:stressed|overwhelmed|exhausted)`,
	`(?:can'?t|unable\s+to)\s+sleep`,
	`(?:lonely|isolated|alone)`,
	`(?:worried|anxious)\s+about`,
	`feeling\s+(?:down|low|blue)`,
})

var emotionAdjustments = map[string]float64{
	"sadness":  15,
	"fear":     12,
	"anger":    8,
	"disgust":  5,
	"surprise": 0,
	"neutral":  0,
	"joy":      -10,
}

func compile(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// Detect scores a message for mental-health risk. All tiers are evaluated;
// the level derives from the accumulated score, not from the first match.
func Detect(text string, sig Signals) Assessment {
	if text == "" {
		return Assessment{Level: LevelLow, Score: 0.0, Factors: []string{}}
	}

	lower := strings.ToLower(text)
	factors := []string{}
	score := 0.0
	highMatched := false

	// High-risk keywords: every match contributes a factor, the score
	// saturates at 85 from this tier.
	for _, kw := range highRiskKeywords {
		if strings.Contains(lower, kw) {
			factors = append(factors, fmt.Sprintf("High-risk keyword detected: '%s'", kw))
			score = math.Max(score, 85.0)
			highMatched = true
		}
	}

	for _, re := range mediumRiskPatterns {
		if re.MatchString(lower) {
			factors = append(factors, "Distress pattern detected")
			score = math.Max(score, 55.0)
		}
	}

	// Low-risk tier adds a single factor and never lifts an already
	// elevated score.
	for _, re := range lowRiskPatterns {
		if re.MatchString(lower) {
			if score < 40 {
				score = math.Max(score, 25.0)
			}
			factors = append(factors, "Stress indicator detected")
			break
		}
	}

	if sig.Emotion != "" {
		adj, ok := emotionAdjustments[strings.ToLower(sig.Emotion)]
		if ok && adj != 0 {
			score += adj
			if adj > 0 {
				factors = append(factors, fmt.Sprintf("Negative emotion detected: %s", sig.Emotion))
			}
		}
	}

	if sig.Sentiment != nil {
		switch s := *sig.Sentiment; {
		case s < -0.6:
			score += 10
			factors = append(factors, "Very negative sentiment")
		case s < -0.3:
			score += 5
			factors = append(factors, "Negative sentiment")
		}
	}

	// Emotion/sentiment offsets must never talk a high-risk keyword match
	// down below its tier floor.
	if highMatched {
		score = math.Max(score, 85.0)
	}

	final := math.Max(0, math.Min(100, score))
	final = math.Round(final*10) / 10

	level := LevelLow
	if final >= 70 {
		level = LevelHigh
	} else if final >= 35 {
		level = LevelMedium
	}

	return Assessment{Level: level, Score: final, Factors: dedupe(factors)}
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Guidance describes how the companion should respond at a given level.
type Guidance struct {
	Tone             string   `json:"tone"`
	Priorities       []string `json:"priorities"`
	SuggestResources bool     `json:"suggest_resources"`
	ResponseStyle    string   `json:"response_style"`
}

var guidanceTable = map[Level]Guidance{
	LevelHigh: {
		Tone: "calm, supportive, and non-judgmental",
		Priorities: []string{
			"Acknowledge their feelings without dismissing them",
			"Express care and concern",
			"Gently encourage professional support",
			"Avoid leaving them feeling alone",
		},
		SuggestResources: true,
		ResponseStyle:    "empathetic_urgent",
	},
	LevelMedium: {
		Tone: "warm, validating, and supportive",
		Priorities: []string{
			"Validate their emotions",
			"Explore their feelings with open questions",
			"Offer coping strategies if appropriate",
			"Maintain connection",
		},
		SuggestResources: false,
		ResponseStyle:    "empathetic_supportive",
	},
	LevelLow: {
		Tone: "friendly, curious, and encouraging",
		Priorities: []string{
			"Engage naturally",
			"Show interest in their experiences",
			"Provide emotional support",
			"Encourage self-reflection",
		},
		SuggestResources: false,
		ResponseStyle:    "conversational",
	},
}

// GuidanceFor returns the fixed response guidance for a risk level; unknown
// levels get the LOW entry.
func GuidanceFor(level Level) Guidance {
	if g, ok := guidanceTable[level]; ok {
		return g
	}
	return guidanceTable[LevelLow]
}

var crisisIndicators = []string{
	"kill myself",
	"suicide",
	"want to die",
	"going to hurt myself",
	"end my life",
	"overdose",
}

// IsCrisis is a fast boolean check for immediate-crisis language, usable
// without running the full detector.
func IsCrisis(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range crisisIndicators {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
