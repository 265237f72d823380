package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lazypower/companion/internal/config"
	"github.com/lazypower/companion/internal/delivery"
	"github.com/lazypower/companion/internal/engine"
	"github.com/lazypower/companion/internal/llm"
	"github.com/lazypower/companion/internal/scheduler"
	"github.com/lazypower/companion/internal/server"
)

var dryRun bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the LINE webhook and run the scheduler",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log outbound messages instead of sending them to LINE")
}

// applyKeyFallbacks fills provider keys from their conventional
// unprefixed variables when the prefixed ones are unset.
func applyKeyFallbacks(cfg *config.Config) {
	if cfg.LLM.OpenAIKey == "" {
		cfg.LLM.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.LLM.AnthropicKey == "" {
		cfg.LLM.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.LLM.Provider == "openai" && cfg.LLM.OpenAIKey == "" && cfg.LLM.AnthropicKey != "" {
		cfg.LLM.Provider = "anthropic"
	}
}

func newDeliverer(cfg config.Config) (delivery.Deliverer, error) {
	if dryRun {
		log.Warn().Msg("dry run: outbound messages are recorded, not sent")
		return &delivery.MockDeliverer{}, nil
	}
	if cfg.LINE.AccessToken == "" {
		return nil, errors.New("LINE_CHANNEL_ACCESS_TOKEN is required (or use --dry-run)")
	}
	if cfg.LINE.ChannelSecret == "" {
		return nil, errors.New("LINE_CHANNEL_SECRET is required (or use --dry-run)")
	}
	return delivery.NewLINE(cfg.LINE.APIURL, cfg.LINE.AccessToken), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyKeyFallbacks(&cfg)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		log.Warn().Err(err).Msg("LLM not configured, every reply will use the fallback text")
		client = &llm.MockClient{Err: llm.ErrCompletion}
	} else {
		log.Info().Str("provider", cfg.LLM.Provider).Str("model", cfg.LLM.Model).Msg("llm configured")
	}

	out, err := newDeliverer(cfg)
	if err != nil {
		return err
	}

	pipeline := engine.NewPipeline(db, &cfg, loc, client, out)
	srv := server.New(db, pipeline, cfg.LINE.ChannelSecret, VersionString())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	schedDone := make(chan struct{})
	leader, err := acquireScheduler(cfg)
	if err != nil {
		return err
	}
	if leader != nil {
		sched := scheduler.New(db, pipeline.Composer, client, out, &cfg, loc)
		go func() {
			defer close(schedDone)
			sched.Run(ctx)
		}()
	} else {
		close(schedDone)
	}
	defer leader.Release()

	addr := cfg.ListenAddr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("db", db.Path).Str("tz", loc.String()).Msg("companion serving")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}
	stop()
	log.Info().Msg("shutting down")
	drain(httpServer, schedDone, pipeline, cfg.Engine.ShutdownDrainLimit)
	return runErr
}

// drain stops accepting requests, then waits for the scheduler loop and,
// up to limit, for in-flight replies. It returns before the caller's
// deferred db.Close runs, on every exit path.
func drain(httpServer *http.Server, schedDone <-chan struct{}, pipeline *engine.Pipeline, limit time.Duration) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	<-schedDone

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), limit)
	defer cancelDrain()
	if err := pipeline.Wait(drainCtx); err != nil {
		log.Warn().Err(err).Msg("replies still in flight at shutdown")
	}
}

func acquireScheduler(cfg config.Config) (*scheduler.Leader, error) {
	if !cfg.Scheduler.Enabled {
		log.Info().Msg("scheduler disabled")
		return nil, nil
	}
	return scheduler.AcquireLeader(cfg.Scheduler.LockPath)
}
