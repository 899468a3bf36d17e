package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// CompletionClient talks to an OpenAI-compatible chat completions endpoint.
type CompletionClient struct {
	BaseURL         string
	APIKey          string
	Model           string
	MaxTokens       int
	Temperature     float64
	PresencePenalty float64
	Client          *http.Client
}

type completionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionReq struct {
	Model           string          `json:"model"`
	Messages        []completionMsg `json:"messages"`
	MaxTokens       int             `json:"max_tokens,omitempty"`
	Temperature     float64         `json:"temperature,omitempty"`
	PresencePenalty float64         `json:"presence_penalty,omitempty"`
}

type completionResp struct {
	Choices []struct {
		Message completionMsg `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewCompletionClient(baseURL, apiKey, model string) *CompletionClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	return &CompletionClient{
		BaseURL:         baseURL,
		APIKey:          apiKey,
		Model:           model,
		MaxTokens:       200,
		Temperature:     0.7,
		PresencePenalty: 0.3,
		Client:          &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *CompletionClient) Chat(ctx context.Context, messages []Message) (string, error) {
	if p.Client == nil {
		return "", errors.New("completion: http client is nil")
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return "", ErrDisabled
	}

	reqBody := completionReq{
		Model:           p.Model,
		MaxTokens:       p.MaxTokens,
		Temperature:     p.Temperature,
		PresencePenalty: p.PresencePenalty,
		Messages: func() []completionMsg {
			out := make([]completionMsg, 0, len(messages))
			for _, m := range messages {
				out = append(out, completionMsg{Role: m.Role, Content: m.Content})
			}
			return out
		}(),
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(p.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", ErrDisabled
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("completion: %s", msg)
	}

	var decoded completionResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", errors.New(decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("completion: empty response")
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}
