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

// OpenAI calls an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	url    string
	apiKey string
	model  string
	client *http.Client
}

// NewOpenAI creates a new OpenAI chat completions client.
func NewOpenAI(url, apiKey, model string, client *http.Client) *OpenAI {
	if url == "" {
		url = "https://api.openai.com/v1/chat/completions"
	}
	return &OpenAI{
		url:    url,
		apiKey: apiKey,
		model:  model,
		client: client,
	}
}

// Generate sends the transcript to the chat completions API.
func (o *OpenAI) Generate(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	reqBody := map[string]any{
		"model":             o.model,
		"messages":          messages,
		"temperature":       opts.Temperature,
		"presence_penalty":  opts.PresencePenalty,
		"frequency_penalty": opts.FrequencyPenalty,
		"max_tokens":        opts.MaxTokens,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: openai api: %w", ErrCompletion, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrCompletion, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: openai api status %d: %s", ErrCompletion, resp.StatusCode, respBody)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrCompletion, err)
	}

	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai returned no choices", ErrCompletion)
	}
	text := strings.TrimSpace(result.Choices[0].Message.Content)
	if text == "" {
		return nil, fmt.Errorf("%w: openai returned empty content", ErrCompletion)
	}

	return &Response{
		Content:    text,
		Provider:   "openai",
		TokensUsed: result.Usage.TotalTokens,
	}, nil
}
