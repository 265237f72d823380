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

const anthropicAPI = "https://api.anthropic.com/v1/messages"

// Anthropic calls the Anthropic Messages API directly.
type Anthropic struct {
	url    string
	apiKey string
	model  string
	client *http.Client
}

// NewAnthropic creates a new Anthropic API client.
func NewAnthropic(apiKey, model string, client *http.Client) *Anthropic {
	return &Anthropic{
		url:    anthropicAPI,
		apiKey: apiKey,
		model:  model,
		client: client,
	}
}

// Generate sends the transcript to the Anthropic API. System messages are
// lifted into the top-level system field; the API has no penalty knobs.
func (a *Anthropic) Generate(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	var system []string
	turns := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	turns = alternate(turns)
	if len(turns) == 0 {
		return nil, fmt.Errorf("%w: anthropic transcript has no user turn", ErrCompletion)
	}

	temp := opts.Temperature
	if temp > 1 {
		temp = 1
	}
	reqBody := map[string]any{
		"model":       a.model,
		"max_tokens":  opts.MaxTokens,
		"temperature": temp,
		"messages":    turns,
	}
	if len(system) > 0 {
		reqBody["system"] = strings.Join(system, "\n\n")
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: anthropic api: %w", ErrCompletion, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrCompletion, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: anthropic api status %d: %s", ErrCompletion, resp.StatusCode, respBody)
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrCompletion, err)
	}

	text := ""
	if len(result.Content) > 0 {
		text = strings.TrimSpace(result.Content[0].Text)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: anthropic returned empty content", ErrCompletion)
	}

	return &Response{
		Content:    text,
		Provider:   "anthropic",
		TokensUsed: result.Usage.InputTokens + result.Usage.OutputTokens,
	}, nil
}

// alternate shapes a transcript for the Messages API, which requires the
// first turn to come from the user and roles to alternate. Leading
// assistant turns are dropped and same-role neighbours are joined.
func alternate(turns []Message) []Message {
	out := make([]Message, 0, len(turns))
	for _, m := range turns {
		if len(out) == 0 && m.Role != "user" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1].Content += "\n" + m.Content
			continue
		}
		out = append(out, m)
	}
	return out
}
