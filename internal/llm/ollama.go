package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Ollama calls a local Ollama instance.
type Ollama struct {
	url    string
	model  string
	client *http.Client
}

// NewOllama creates a new Ollama client.
func NewOllama(url, model string, client *http.Client) *Ollama {
	return &Ollama{
		url:    url,
		model:  model,
		client: client,
	}
}

// Generate sends the transcript to Ollama's chat endpoint.
func (o *Ollama) Generate(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	reqBody := map[string]any{
		"model":    o.model,
		"messages": messages,
		"stream":   false,
		"options": map[string]any{
			"temperature":       opts.Temperature,
			"presence_penalty":  opts.PresencePenalty,
			"frequency_penalty": opts.FrequencyPenalty,
			"num_predict":       opts.MaxTokens,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.url+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama api: %w", ErrCompletion, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrCompletion, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: ollama api status %d: %s", ErrCompletion, resp.StatusCode, respBody)
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrCompletion, err)
	}

	text := strings.TrimSpace(result.Message.Content)
	if text == "" {
		return nil, fmt.Errorf("%w: ollama returned empty content", ErrCompletion)
	}

	return &Response{
		Content:  text,
		Provider: "ollama",
	}, nil
}
