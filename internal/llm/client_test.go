package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lazypower/companion/internal/config"
)

func TestNewClientOpenAI(t *testing.T) {
	cfg := config.LLMConfig{Provider: "openai", OpenAIKey: "sk-test"}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, ok := client.(*OpenAI); !ok {
		t.Errorf("expected *OpenAI, got %T", client)
	}
}

func TestNewClientOpenAIMissingKey(t *testing.T) {
	cfg := config.LLMConfig{Provider: "openai"}
	if _, err := NewClient(cfg); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestNewClientAnthropic(t *testing.T) {
	cfg := config.LLMConfig{Provider: "anthropic", AnthropicKey: "test-key"}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, ok := client.(*Anthropic); !ok {
		t.Errorf("expected *Anthropic, got %T", client)
	}
}

func TestNewClientOllamaRateLimited(t *testing.T) {
	cfg := config.LLMConfig{Provider: "ollama", RatePerMinute: 30}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, ok := client.(*RateLimited); !ok {
		t.Errorf("expected *RateLimited, got %T", client)
	}
}

func TestNewClientUnknown(t *testing.T) {
	cfg := config.LLMConfig{Provider: "gpt"}
	if _, err := NewClient(cfg); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"content":"  คิดถึงนะ  "}}],"usage":{"total_tokens":42}}`))
	}))
	defer srv.Close()

	c := NewOpenAI(srv.URL, "sk-test", "gpt-4o-mini", srv.Client())
	resp, err := c.Generate(context.Background(), []Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "hi"},
	}, Options{Temperature: 0.92, PresencePenalty: 0.55, FrequencyPenalty: 0.45, MaxTokens: 220})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Content != "คิดถึงนะ" {
		t.Errorf("Content = %q, want trimmed text", resp.Content)
	}
	if resp.TokensUsed != 42 {
		t.Errorf("TokensUsed = %d, want 42", resp.TokensUsed)
	}
	if got["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", got["model"])
	}
	if got["max_tokens"] != float64(220) {
		t.Errorf("max_tokens = %v, want 220", got["max_tokens"])
	}
	if msgs, _ := got["messages"].([]any); len(msgs) != 2 {
		t.Errorf("messages len = %d, want 2", len(msgs))
	}
}

func TestOpenAIGenerateErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer srv.Close()

	c := NewOpenAI(srv.URL, "sk-test", "gpt-4o-mini", srv.Client())
	_, err := c.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}}, Options{})
	if !errors.Is(err, ErrCompletion) {
		t.Fatalf("err = %v, want ErrCompletion", err)
	}
}

func TestOpenAIGenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewOpenAI(srv.URL, "sk-test", "gpt-4o-mini", &http.Client{Timeout: 20 * time.Millisecond})
	_, err := c.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}}, Options{})
	if !errors.Is(err, ErrCompletion) {
		t.Fatalf("err = %v, want ErrCompletion", err)
	}
}

func TestAnthropicLiftsSystem(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"content":[{"text":"ok"}],"usage":{"input_tokens":3,"output_tokens":1}}`))
	}))
	defer srv.Close()

	c := NewAnthropic("k", "m", srv.Client())
	c.url = srv.URL
	resp, err := c.Generate(context.Background(), []Message{
		{Role: "system", Content: "persona"},
		{Role: "user", Content: "hi"},
	}, Options{Temperature: 0.98, MaxTokens: 100})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.TokensUsed != 4 {
		t.Errorf("TokensUsed = %d, want 4", resp.TokensUsed)
	}
	if got["system"] != "persona" {
		t.Errorf("system = %v, want persona", got["system"])
	}
	if msgs, _ := got["messages"].([]any); len(msgs) != 1 {
		t.Errorf("messages len = %d, want 1 (system lifted out)", len(msgs))
	}
}

func TestAnthropicAlternatesRoles(t *testing.T) {
	var got struct {
		Messages []Message `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"content":[{"text":"ok"}]}`))
	}))
	defer srv.Close()

	c := NewAnthropic("k", "m", srv.Client())
	c.url = srv.URL
	_, err := c.Generate(context.Background(), []Message{
		{Role: "system", Content: "persona"},
		{Role: "assistant", Content: "trimmed reply"},
		{Role: "user", Content: "first"},
		{Role: "user", Content: "second"},
		{Role: "assistant", Content: "answer"},
		{Role: "user", Content: "third"},
	}, Options{MaxTokens: 100})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	want := []Message{
		{Role: "user", Content: "first\nsecond"},
		{Role: "assistant", Content: "answer"},
		{Role: "user", Content: "third"},
	}
	if len(got.Messages) != len(want) {
		t.Fatalf("messages = %+v, want %+v", got.Messages, want)
	}
	for i := range want {
		if got.Messages[i] != want[i] {
			t.Errorf("messages[%d] = %+v, want %+v", i, got.Messages[i], want[i])
		}
	}
}

func TestAnthropicNoUserTurn(t *testing.T) {
	c := NewAnthropic("k", "m", http.DefaultClient)
	c.url = "http://127.0.0.1:0"
	_, err := c.Generate(context.Background(), []Message{
		{Role: "system", Content: "persona"},
		{Role: "assistant", Content: "only me"},
	}, Options{MaxTokens: 100})
	if !errors.Is(err, ErrCompletion) {
		t.Fatalf("err = %v, want ErrCompletion", err)
	}
}

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s, want /api/chat", r.URL.Path)
		}
		w.Write([]byte(`{"message":{"role":"assistant","content":"สวัสดี"}}`))
	}))
	defer srv.Close()

	c := NewOllama(srv.URL, "llama3.2", srv.Client())
	resp, err := c.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}}, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Content != "สวัสดี" {
		t.Errorf("Content = %q", resp.Content)
	}
}

func TestRateLimitedHonorsContext(t *testing.T) {
	mock := &MockClient{Response: &Response{Content: "x"}}
	rl := NewRateLimited(mock, 1)

	// Burst of one is consumed immediately
	if _, err := rl.Generate(context.Background(), nil, Options{}); err != nil {
		t.Fatalf("first Generate: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := rl.Generate(ctx, nil, Options{})
	if !errors.Is(err, ErrCompletion) {
		t.Fatalf("err = %v, want ErrCompletion", err)
	}
	if mock.CallCount() != 1 {
		t.Errorf("wrapped client called %d times, want 1", mock.CallCount())
	}
}

func TestMockClient(t *testing.T) {
	mock := &MockClient{
		Response: &Response{Content: "test response", Provider: "mock"},
	}

	resp, err := mock.Generate(context.Background(), []Message{{Role: "user", Content: "test prompt"}}, Options{MaxTokens: 5})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Content != "test response" {
		t.Errorf("content = %q, want %q", resp.Content, "test response")
	}
	if mock.CallCount() != 1 {
		t.Errorf("expected 1 call, got %d", mock.CallCount())
	}
	if mock.Calls[0][0].Content != "test prompt" {
		t.Errorf("call[0] = %q, want %q", mock.Calls[0][0].Content, "test prompt")
	}
}

func TestMomentPromptsAndFallbacks(t *testing.T) {
	for _, m := range []string{"morning", "day", "night"} {
		if MomentPrompt(m) == "" {
			t.Errorf("MomentPrompt(%q) is empty", m)
		}
		if MomentFallback(m) == "" {
			t.Errorf("MomentFallback(%q) is empty", m)
		}
	}
	if MomentPrompt("brunch") != "" {
		t.Error("unknown moment should have no prompt")
	}
}
