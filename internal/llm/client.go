package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lazypower/companion/internal/config"
)

// ErrCompletion wraps every provider failure: transport errors, non-200
// responses, undecodable bodies and empty completions.
var ErrCompletion = errors.New("completion failed")

// Message is one entry of a chat transcript.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Options tunes a single generation.
type Options struct {
	Temperature      float64
	PresencePenalty  float64
	FrequencyPenalty float64
	MaxTokens        int
}

// Client is the interface for completion providers.
type Client interface {
	Generate(ctx context.Context, messages []Message, opts Options) (*Response, error)
}

// Response holds the result of a completion.
type Response struct {
	Content    string
	Provider   string
	TokensUsed int
}

// ReplyOptions returns generation options for conversational replies.
func ReplyOptions(cfg config.LLMConfig) Options {
	return Options{
		Temperature:      cfg.Temperature,
		PresencePenalty:  cfg.PresencePenalty,
		FrequencyPenalty: cfg.FrequencyPenalty,
		MaxTokens:        cfg.MaxTokens,
	}
}

// ProactiveOptions returns generation options for unprompted messages.
func ProactiveOptions(cfg config.LLMConfig) Options {
	opts := ReplyOptions(cfg)
	opts.Temperature = cfg.ProactiveTemp
	return opts
}

// NewClient creates a completion client based on the config provider setting.
// When RatePerMinute is set the client is wrapped in a rate limiter.
func NewClient(cfg config.LLMConfig) (Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	var c Client
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY")
		}
		model := cfg.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		c = NewOpenAI(cfg.OpenAIURL, cfg.OpenAIKey, model, httpClient)
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, fmt.Errorf("anthropic provider requires ANTHROPIC_API_KEY or config")
		}
		model := cfg.Model
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		c = NewAnthropic(cfg.AnthropicKey, model, httpClient)
	case "ollama":
		url := cfg.OllamaURL
		if url == "" {
			url = "http://localhost:11434"
		}
		model := cfg.Model
		if model == "" {
			model = "llama3.2"
		}
		c = NewOllama(url, model, httpClient)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}

	if cfg.RatePerMinute > 0 {
		c = NewRateLimited(c, cfg.RatePerMinute)
	}
	return c, nil
}
