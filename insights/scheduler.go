package insights

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"insights-engine/domain"
)

const (
	defaultRefreshInterval = 5 * time.Minute
	defaultRunTimeout      = time.Minute
)

// Loader produces the entity snapshot a refresh computes from.
type Loader interface {
	Load(ctx context.Context) (domain.Snapshot, error)
}

// RunStamp persists the completion time of a refresh for "last updated"
// display.
type RunStamp interface {
	Set(ctx context.Context, t time.Time) error
}

// State is the output of one refresh run. It is replaced wholesale per tick
// and never mutated in place, so readers may hold it freely.
type State struct {
	Snapshot    domain.Snapshot
	Metrics     domain.MetricsSnapshot
	RunID       string
	RefreshedAt time.Time
}

// SchedulerConfig tunes the refresh loop.
type SchedulerConfig struct {
	// Interval between refreshes; defaults to 5 minutes.
	Interval time.Duration
	// RunTimeout bounds one refresh end to end; defaults to 1 minute.
	RunTimeout time.Duration
	// Stamp, when set, records the time of each completed refresh.
	Stamp RunStamp
}

// Scheduler drives periodic recomputation: one refresh at Start, then one per
// interval. Runs are single-flight; a tick arriving while a refresh is still
// loading is skipped, which is safe because every run is a pure function of
// the snapshot it loads.
type Scheduler struct {
	loader  Loader
	cfg     SchedulerConfig
	logger  *log.Logger
	state   atomic.Pointer[State]
	running atomic.Bool

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(loader Loader, cfg SchedulerConfig, logger *log.Logger) *Scheduler {
	if loader == nil {
		panic("insights.NewScheduler: loader is nil")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultRefreshInterval
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = defaultRunTimeout
	}
	if logger == nil {
		logger = log.New()
	}
	return &Scheduler{loader: loader, cfg: cfg, logger: logger, done: make(chan struct{})}
}

// Start launches the refresh loop. The first refresh begins immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, s.cancel = context.WithCancel(ctx)
		go s.run(ctx)
	})
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	s.refresh(ctx)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

// Stop cancels any in-flight refresh and waits for the loop to exit. Results
// of a load resolving after Stop are discarded.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel == nil {
			close(s.done)
			return
		}
		s.cancel()
		<-s.done
	})
}

// State returns the result of the most recent completed refresh; ok is false
// before the first one finishes.
func (s *Scheduler) State() (State, bool) {
	p := s.state.Load()
	if p == nil {
		return State{}, false
	}
	return *p, true
}

func (s *Scheduler) refresh(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("refresh already in flight, skipping tick")
		return
	}
	defer s.running.Store(false)

	runID := uuid.NewString()
	started := time.Now()

	rctx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	snap, err := s.loader.Load(rctx)
	if err != nil {
		s.logger.WithFields(log.Fields{"run_id": runID, "error": err.Error()}).
			Warn("refresh aborted")
		return
	}
	if ctx.Err() != nil {
		// Torn down while loading; do not apply the late result.
		return
	}

	now := time.Now()
	next := &State{
		Snapshot:    snap,
		Metrics:     Aggregate(snap, domain.ScopeAll, now),
		RunID:       runID,
		RefreshedAt: now,
	}
	s.state.Store(next)

	if s.cfg.Stamp != nil {
		if err := s.cfg.Stamp.Set(rctx, now); err != nil {
			s.logger.WithFields(log.Fields{"run_id": runID, "error": err.Error()}).
				Warn("failed to record analysis stamp")
		}
	}

	s.logger.WithFields(log.Fields{
		"run_id":      runID,
		"duration_ms": float64(time.Since(started)) / float64(time.Millisecond),
		"partial":     snap.Partial,
		"projects":    len(snap.Projects),
		"tasks":       len(snap.Tasks),
		"meetings":    len(snap.Meetings),
	}).Info("insights refreshed")
}
