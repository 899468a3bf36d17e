package companion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ewjiang/mindbridge/internal/ai"
	"github.com/ewjiang/mindbridge/internal/analysis/risk"
)

const historyWindow = 6

const systemPrompt = `You are a supportive AI companion for teenagers. Your role is to provide emotional support through empathetic conversation.

CORE PRINCIPLES:
1. NEVER provide medical diagnoses or clinical advice
2. ALWAYS use non-judgmental, validating language
3. Practice reflective listening - mirror back what you hear
4. Ask open-ended questions to encourage sharing
5. Validate emotions before suggesting solutions
6. Be warm, genuine, and age-appropriate

RESPONSE STYLE:
- Keep responses concise (2-4 sentences typically)
- Use a conversational, friendly tone
- Avoid being preachy or lecturing
- Show you're genuinely listening

EXAMPLE PHRASES:
- "That sounds really difficult."
- "I can understand why you'd feel that way."
- "Would you like to tell me more about that?"
- "It's okay to feel this way."
- "I'm here to listen."

IMPORTANT: You are NOT a therapist. If someone shares serious concerns, acknowledge them supportively but never minimize, and gently encourage talking to a trusted adult or professional.`

const highRiskAddendum = `
CRITICAL: The user may be in distress. Respond with extra care:
- Stay calm and present
- Don't panic or overreact in your response
- Acknowledge their pain without judgment
- Gently encourage reaching out to someone they trust
- Remind them that support is available
- Do NOT leave them feeling alone or dismissed

If appropriate, you may mention that talking to a school counselor, trusted adult, or calling a helpline like 988 (Suicide & Crisis Lifeline) can help.`

// Turn is one prior conversation entry, role "user" or "assistant".
type Turn struct {
	Role    string
	Content string
}

// Generator produces the companion reply. When the completion backend is
// absent or a call fails, a deterministic template selector answers instead,
// so Generate always returns a non-empty string.
type Generator struct {
	backend  ai.Generator
	timeout  time.Duration
	disabled atomic.Bool
	logOnce  sync.Once
}

func NewGenerator(backend ai.Generator) *Generator {
	g := &Generator{backend: backend, timeout: 30 * time.Second}
	if backend == nil {
		g.disabled.Store(true)
	}
	return g
}

func (g *Generator) Generate(ctx context.Context, message, emotion string, level risk.Level, history []Turn) string {
	if g.disabled.Load() {
		return fallbackResponse(message, emotion, level)
	}

	prompt := systemPrompt
	if level == risk.LevelHigh {
		prompt += "\n\n" + highRiskAddendum
	}

	messages := make([]ai.Message, 0, historyWindow+2)
	messages = append(messages, ai.Message{Role: "system", Content: prompt})

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, t := range history {
		role := t.Role
		if role != "assistant" {
			role = "user"
		}
		messages = append(messages, ai.Message{Role: role, Content: t.Content})
	}

	content := message
	if emotion != "" && emotion != "neutral" {
		content = fmt.Sprintf("[User appears to be feeling %s] %s", emotion, message)
	}
	messages = append(messages, ai.Message{Role: "user", Content: content})

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	reply, err := g.backend.Chat(cctx, messages)
	if err != nil {
		if errors.Is(err, ai.ErrDisabled) {
			g.disabled.Store(true)
			g.logOnce.Do(func() {
				log.Printf("companion: completion backend unavailable, switching to template fallback")
			})
		} else {
			log.Printf("companion: generate failed: %v", err)
		}
		return fallbackResponse(message, emotion, level)
	}
	if strings.TrimSpace(reply) == "" {
		return fallbackResponse(message, emotion, level)
	}
	return strings.TrimSpace(reply)
}

// fallbackResponse picks a fixed empathetic template. Rules are checked in
// priority order; the first match wins.
func fallbackResponse(message, emotion string, level risk.Level) string {
	lower := strings.ToLower(message)

	if level == risk.LevelHigh {
		return "I hear that you're going through something really painful right now. " +
			"I want you to know that you're not alone, and what you're feeling matters. " +
			"Would it be possible to talk to someone you trust about this? " +
			"I'm here to listen, and I care about you."
	}

	for _, greeting := range []string{"hi", "hello", "hey"} {
		if strings.Contains(lower, greeting) {
			return "Hey! It's good to hear from you. " +
				"How are you feeling today? I'm here if you want to talk about anything."
		}
	}

	switch emotion {
	case "sadness":
		return "It sounds like you're going through a tough time. " +
			"I'm really sorry you're feeling this way. " +
			"Would you like to tell me more about what's been going on?"
	case "fear", "anxiety":
		return "That sounds really stressful. It's completely understandable to feel worried. " +
			"What's been weighing on your mind the most?"
	case "anger":
		return "I can hear that you're frustrated. Those feelings are valid. " +
			"What happened that's got you feeling this way?"
	case "joy":
		return "That's wonderful to hear! It sounds like something good is happening. " +
			"I'd love to hear more about it!"
	}

	if level == risk.LevelMedium {
		return "It sounds like things have been really hard lately. " +
			"I want you to know that your feelings are valid, and it's okay to not be okay sometimes. " +
			"What would feel helpful to talk about right now?"
	}

	return "I hear you. That sounds like something worth exploring. " +
		"Would you like to tell me more about how you're feeling?"
}
