package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// InferenceClient calls a hosted text-classification model and returns
// ranked label/score pairs. The response shape follows the HuggingFace
// inference API: [[{"label":...,"score":...}, ...]].
type InferenceClient struct {
	BaseURL string
	Token   string
	Model   string
	Client  *http.Client
}

type inferenceReq struct {
	Inputs string `json:"inputs"`
}

func NewInferenceClient(baseURL, token, model string) *InferenceClient {
	if baseURL == "" {
		baseURL = "https://api-inference.huggingface.co/models"
	}
	return &InferenceClient{
		BaseURL: baseURL,
		Token:   token,
		Model:   model,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *InferenceClient) Classify(ctx context.Context, text string) ([]Label, error) {
	if p.Client == nil {
		return nil, errors.New("inference: http client is nil")
	}
	if strings.TrimSpace(p.Token) == "" {
		return nil, ErrDisabled
	}
	if strings.TrimSpace(p.Model) == "" {
		return nil, ErrDisabled
	}

	b, err := json.Marshal(inferenceReq{Inputs: text})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s", strings.TrimRight(p.BaseURL, "/"), p.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.Token)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrDisabled
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("inference: %s", msg)
	}

	// Results may come nested one level deep depending on the model.
	var nested [][]Label
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 {
		return ranked(nested[0]), nil
	}

	var flat []Label
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, err
	}
	return ranked(flat), nil
}

func ranked(labels []Label) []Label {
	sort.SliceStable(labels, func(i, j int) bool { return labels[i].Score > labels[j].Score })
	return labels
}
