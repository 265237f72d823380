package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lazypower/companion/internal/config"
	"github.com/lazypower/companion/internal/delivery"
	"github.com/lazypower/companion/internal/llm"
	"github.com/lazypower/companion/internal/metrics"
	"github.com/lazypower/companion/internal/store"
)

// Pipeline turns an inbound message into a delayed, generated reply.
// State, memory and history are written before the slow generation call,
// so a failed generation never leaves them half-updated.
type Pipeline struct {
	Emotion   *Emotion
	Memories  *Memories
	Window    *Window
	Composer  *Composer
	LLM       llm.Client
	Deliverer delivery.Deliverer
	Cfg       config.EngineConfig
	Opts      llm.Options

	// Sleep and Jitter are replaceable so tests do not wait.
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter Jitter

	wg sync.WaitGroup
}

// NewPipeline wires the engine components over db.
func NewPipeline(db *store.DB, cfg *config.Config, loc *time.Location, client llm.Client, d delivery.Deliverer) *Pipeline {
	mem := NewMemories(db, cfg.Engine)
	return &Pipeline{
		Emotion:   NewEmotion(db, loc),
		Memories:  mem,
		Window:    NewWindow(db, cfg.Engine),
		Composer:  NewComposer(db, mem),
		LLM:       client,
		Deliverer: d,
		Cfg:       cfg.Engine,
		Opts:      llm.ReplyOptions(cfg.LLM),
		Sleep:     Sleep,
		Jitter:    UniformJitter,
	}
}

// Record runs the synchronous half of the pipeline: evaluate emotion,
// consider the message as a memory, and append it to the window. It
// returns the user's state after evaluation.
func (p *Pipeline) Record(userID, text string) (*store.UserState, error) {
	state, err := p.Emotion.Evaluate(userID, text)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if _, err := p.Memories.Consider(userID, text); err != nil {
		return nil, fmt.Errorf("consider memory: %w", err)
	}
	if err := p.Window.Append(userID, store.RoleUser, text); err != nil {
		return nil, fmt.Errorf("append inbound: %w", err)
	}
	return state, nil
}

// Handle records the message and answers it in the background. It
// returns once the message is recorded; the reply is pushed after the
// human-like delay. Use Wait to drain in-flight replies.
func (p *Pipeline) Handle(userID, text string) error {
	metrics.MessagesReceived.Inc()

	state, err := p.Record(userID, text)
	if err != nil {
		return err
	}

	requestID := uuid.NewString()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.Cfg.ReplyTimeout)
		defer cancel()

		logger := log.With().Str("request_id", requestID).Str("user_id", userID).Logger()

		reply, err := p.Reply(ctx, userID, text, *state)
		if err != nil {
			logger.Error().Err(err).Msg("reply failed")
			return
		}
		if err := p.Deliverer.Push(ctx, userID, reply); err != nil {
			metrics.Deliveries.WithLabelValues("reply", "error").Inc()
			logger.Error().Err(err).Msg("deliver reply")
			return
		}
		metrics.Deliveries.WithLabelValues("reply", "ok").Inc()
		logger.Debug().Int("chars", len([]rune(reply))).Msg("reply delivered")
	}()
	return nil
}

// Reply waits the human-like delay, generates an answer from the current
// prompt and window, and appends it to the window. A failed generation
// yields the fallback text instead of an error.
func (p *Pipeline) Reply(ctx context.Context, userID, text string, state store.UserState) (string, error) {
	delay := ReplyDelay(p.Cfg, state, text, p.Jitter)
	metrics.ReplyDelay.Observe(delay.Seconds())
	if err := p.Sleep(ctx, delay); err != nil {
		return "", fmt.Errorf("delay: %w", err)
	}

	system, err := p.Composer.Compose(userID)
	if err != nil {
		return "", fmt.Errorf("compose: %w", err)
	}
	history, err := p.Window.Read(userID)
	if err != nil {
		return "", fmt.Errorf("read window: %w", err)
	}

	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, llm.Message{Role: "system", Content: system})
	msgs = append(msgs, history...)

	reply := p.generate(ctx, userID, msgs)

	if err := p.Window.Append(userID, store.RoleAssistant, reply); err != nil {
		return "", fmt.Errorf("append outbound: %w", err)
	}
	return reply, nil
}

func (p *Pipeline) generate(ctx context.Context, userID string, msgs []llm.Message) string {
	start := time.Now()
	resp, err := p.LLM.Generate(ctx, msgs, p.Opts)
	metrics.GenerationLatency.Observe(time.Since(start).Seconds())
	if err == nil && resp != nil && strings.TrimSpace(resp.Content) != "" {
		metrics.Generations.WithLabelValues("reply", "ok").Inc()
		return strings.TrimSpace(resp.Content)
	}
	if err == nil {
		err = llm.ErrCompletion
	}
	metrics.Generations.WithLabelValues("reply", "fallback").Inc()
	log.Warn().Err(err).Str("user_id", userID).Msg("generation failed, using fallback")
	return llm.ReplyFallback
}

// Wait blocks until every in-flight reply finishes or ctx is done.
func (p *Pipeline) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
