package scheduler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"

	"github.com/lazypower/companion/internal/metrics"
)

// Leader holds the cross-process scheduler lock.
type Leader struct {
	lock *flock.Flock
}

// AcquireLeader tries once, without blocking, to take the lock at path.
// It returns nil and no error when another process already holds it; the
// caller must then skip running the scheduler rather than retry.
func AcquireLeader(path string) (*Leader, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire scheduler lock: %w", err)
	}
	if !ok {
		log.Info().Str("lock", path).Msg("scheduler lock held by another process, skipping scheduler")
		return nil, nil
	}
	metrics.SchedulerLeader.Set(1)
	log.Info().Str("lock", path).Msg("scheduler lock acquired")
	return &Leader{lock: fl}, nil
}

// Release gives up the lock. Safe to call on a nil Leader.
func (l *Leader) Release() error {
	if l == nil {
		return nil
	}
	metrics.SchedulerLeader.Set(0)
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release scheduler lock: %w", err)
	}
	return nil
}
