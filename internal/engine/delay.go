package engine

import (
	"context"
	"math/rand/v2"
	"time"
	"unicode/utf8"

	"github.com/lazypower/companion/internal/config"
	"github.com/lazypower/companion/internal/store"
)

// jitterBand is the random range, in seconds, added on top of the typing time.
type jitterBand struct{ lo, hi float64 }

var (
	drainedBand = jitterBand{5, 9} // social battery low
	tiredBand   = jitterBand{3, 6} // energy low
	normalBand  = jitterBand{1, 3}
)

const lowReserve = 40

// Jitter draws a value from [lo, hi).
type Jitter func(lo, hi float64) float64

// UniformJitter draws uniformly from [lo, hi).
func UniformJitter(lo, hi float64) float64 {
	return lo + rand.Float64()*(hi-lo)
}

func bandFor(s store.UserState) jitterBand {
	switch {
	case s.SocialBattery < lowReserve:
		return drainedBand
	case s.Energy < lowReserve:
		return tiredBand
	default:
		return normalBand
	}
}

// ReplyDelay returns how long to wait before answering text, given the
// user's state after the message was evaluated. The result never exceeds
// cfg.DelayCeiling seconds.
func ReplyDelay(cfg config.EngineConfig, s store.UserState, text string, jitter Jitter) time.Duration {
	if jitter == nil {
		jitter = UniformJitter
	}
	band := bandFor(s)
	secs := cfg.DelayBase + cfg.DelayPerChar*float64(utf8.RuneCountInString(text)) + jitter(band.lo, band.hi)
	secs = min(secs, cfg.DelayCeiling)
	if secs < 0 {
		secs = 0
	}
	return time.Duration(secs * float64(time.Second))
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
