package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all companion configuration.
// Every numeric threshold the engine and scheduler use lives here so that
// deployments can tune them without a rebuild.
type Config struct {
	Server    ServerConfig    `envPrefix:"SERVER_"`
	Database  DatabaseConfig  `envPrefix:"DB_"`
	LLM       LLMConfig       `envPrefix:"LLM_"`
	LINE      LINEConfig      `envPrefix:"LINE_"`
	Engine    EngineConfig    `envPrefix:"ENGINE_"`
	Scheduler SchedulerConfig `envPrefix:"SCHEDULER_"`
	LogLevel  string          `env:"LOG_LEVEL"`
	Timezone  string          `env:"TZ_NAME"`
}

type ServerConfig struct {
	Bind string `env:"BIND"`
	Port int    `env:"PORT"`
}

type DatabaseConfig struct {
	Path string `env:"PATH"`
}

type LLMConfig struct {
	Provider         string        `env:"PROVIDER"` // "openai", "anthropic", "ollama"
	Model            string        `env:"MODEL"`
	OpenAIKey        string        `env:"OPENAI_API_KEY,unset"`
	OpenAIURL        string        `env:"OPENAI_URL"`
	AnthropicKey     string        `env:"ANTHROPIC_API_KEY,unset"`
	OllamaURL        string        `env:"OLLAMA_URL"`
	Timeout          time.Duration `env:"TIMEOUT"`
	Temperature      float64       `env:"TEMPERATURE"`
	ProactiveTemp    float64       `env:"PROACTIVE_TEMPERATURE"`
	PresencePenalty  float64       `env:"PRESENCE_PENALTY"`
	FrequencyPenalty float64       `env:"FREQUENCY_PENALTY"`
	MaxTokens        int           `env:"MAX_TOKENS"`
	RatePerMinute    int           `env:"RATE_PER_MINUTE"` // 0 disables limiting
}

type LINEConfig struct {
	ChannelSecret string `env:"CHANNEL_SECRET,unset"`
	AccessToken   string `env:"CHANNEL_ACCESS_TOKEN,unset"`
	APIURL        string `env:"API_URL"`
}

// EngineConfig holds emotion, memory, window and delay tuning.
type EngineConfig struct {
	MaxHistory         int           `env:"MAX_HISTORY"`  // turns per role kept in the window
	MemoryLimit        int           `env:"MEMORY_LIMIT"` // memories injected into the prompt
	LowImportanceCap   int           `env:"LOW_IMPORTANCE_CAP"`
	DurableImportance  int           `env:"DURABLE_IMPORTANCE"` // memories at or above this are never pruned
	MinMemoryLength    int           `env:"MIN_MEMORY_LENGTH"`
	MemoryMaxLength    int           `env:"MEMORY_MAX_LENGTH"`
	TurnMaxLength      int           `env:"TURN_MAX_LENGTH"`
	DelayBase          float64       `env:"DELAY_BASE"`     // seconds
	DelayPerChar       float64       `env:"DELAY_PER_CHAR"` // seconds per character
	DelayCeiling       float64       `env:"DELAY_CEILING"`  // seconds
	ReplyTimeout       time.Duration `env:"REPLY_TIMEOUT"`
	ShutdownDrainLimit time.Duration `env:"SHUTDOWN_DRAIN"`
}

// SchedulerConfig holds the proactive loop settings.
type SchedulerConfig struct {
	Enabled        bool          `env:"ENABLED"`
	Interval       time.Duration `env:"INTERVAL"`
	LockPath       string        `env:"LOCK_PATH"`
	RecoveryHour   int           `env:"RECOVERY_HOUR"`
	RecoveryMinute int           `env:"RECOVERY_MINUTE_END"` // exclusive
	RecoverEnergy  int           `env:"RECOVER_ENERGY"`
	RecoverSocial  int           `env:"RECOVER_SOCIAL"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "memory.db",
		},
		LLM: LLMConfig{
			Provider:         "openai",
			Model:            "gpt-4o-mini",
			OpenAIURL:        "https://api.openai.com/v1/chat/completions",
			OllamaURL:        "http://localhost:11434",
			Timeout:          30 * time.Second,
			Temperature:      0.92,
			ProactiveTemp:    0.98,
			PresencePenalty:  0.55,
			FrequencyPenalty: 0.45,
			MaxTokens:        220,
		},
		LINE: LINEConfig{
			APIURL: "https://api.line.me",
		},
		Engine: EngineConfig{
			MaxHistory:         10,
			MemoryLimit:        8,
			LowImportanceCap:   50,
			DurableImportance:  5,
			MinMemoryLength:    10,
			MemoryMaxLength:    300,
			TurnMaxLength:      500,
			DelayBase:          1.5,
			DelayPerChar:       0.03,
			DelayCeiling:       12,
			ReplyTimeout:       2 * time.Minute,
			ShutdownDrainLimit: 15 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Enabled:        true,
			Interval:       60 * time.Second,
			LockPath:       "/tmp/companion_scheduler.lock",
			RecoveryHour:   5,
			RecoveryMinute: 5,
			RecoverEnergy:  30,
			RecoverSocial:  20,
		},
		LogLevel: "info",
		Timezone: "Asia/Bangkok",
	}
}

// Load returns Default() overlaid with values from the environment.
// A .env file in the working directory is read first if present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.MaxHistory <= 0 {
		return fmt.Errorf("ENGINE_MAX_HISTORY must be positive, got %d", c.Engine.MaxHistory)
	}
	if c.Engine.LowImportanceCap <= 0 {
		return fmt.Errorf("ENGINE_LOW_IMPORTANCE_CAP must be positive, got %d", c.Engine.LowImportanceCap)
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("SCHEDULER_INTERVAL must be positive, got %s", c.Scheduler.Interval)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
