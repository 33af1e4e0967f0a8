package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"insights-engine/domain"
)

const defaultFetchTimeout = 15 * time.Second

// SnapshotLoader assembles a point-in-time Snapshot from a Provider. Each
// collection is fetched concurrently behind its own circuit breaker and
// timeout; a failing fetch yields an empty collection and flags the snapshot
// as partial instead of aborting the load.
type SnapshotLoader struct {
	provider Provider
	timeout  time.Duration
	logger   *log.Logger
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewSnapshotLoader creates a loader over the given provider. A zero timeout
// falls back to the default per-collection fetch timeout.
func NewSnapshotLoader(provider Provider, timeout time.Duration, logger *log.Logger) *SnapshotLoader {
	if provider == nil {
		panic("storage.NewSnapshotLoader: provider is nil")
	}
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if logger == nil {
		logger = log.New()
	}
	l := &SnapshotLoader{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
	for _, name := range []string{"projects", "tasks", "meetings", "budgets", "users", "areas"} {
		l.breakers[name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.WithFields(log.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("collection breaker state change")
			},
		})
	}
	return l
}

// Load fetches all collections concurrently and returns the snapshot built
// from whatever loaded. It returns a non-nil error only when ctx is done.
func (l *SnapshotLoader) Load(ctx context.Context) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}

	var (
		mu     sync.Mutex
		failed []string
		snap   domain.Snapshot
		wg     sync.WaitGroup
	)

	fail := func(name string, err error) {
		l.logger.WithFields(log.Fields{"collection": name, "error": err.Error()}).
			Warn("collection fetch failed, using empty collection")
		mu.Lock()
		failed = append(failed, name)
		mu.Unlock()
	}

	fetch := func(name string, fn func(context.Context) error) {
		defer wg.Done()
		cctx, cancel := context.WithTimeout(ctx, l.timeout)
		defer cancel()
		_, err := l.breakers[name].Execute(func() (any, error) {
			return nil, fn(cctx)
		})
		if err != nil {
			fail(name, err)
		}
	}

	wg.Add(6)
	go fetch("projects", func(cctx context.Context) error {
		projects, err := l.provider.ListProjects(cctx)
		if err != nil {
			return err
		}
		snap.Projects = projects
		return nil
	})
	go fetch("tasks", func(cctx context.Context) error {
		tasks, err := l.provider.ListTasks(cctx)
		if err != nil {
			return err
		}
		snap.Tasks = tasks
		return nil
	})
	go fetch("meetings", func(cctx context.Context) error {
		meetings, err := l.provider.ListMeetings(cctx)
		if err != nil {
			return err
		}
		snap.Meetings = meetings
		return nil
	})
	go fetch("budgets", func(cctx context.Context) error {
		budgets, err := l.provider.ListBudgets(cctx)
		if err != nil {
			return err
		}
		snap.Budgets = budgets
		return nil
	})
	go fetch("users", func(cctx context.Context) error {
		users, err := l.provider.ListUsers(cctx)
		if err != nil {
			return err
		}
		snap.Users = users
		return nil
	})
	go fetch("areas", func(cctx context.Context) error {
		areas, err := l.provider.ListAreas(cctx)
		if err != nil {
			return err
		}
		snap.Areas = areas
		return nil
	})
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}

	sort.Strings(failed)
	snap.Failed = failed
	snap.Partial = len(failed) > 0
	snap.LoadedAt = time.Now()
	return snap, nil
}
