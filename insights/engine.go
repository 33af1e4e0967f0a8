package insights

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"insights-engine/domain"
)

// Dismissals is the persisted set of notification ids each user has hidden.
type Dismissals interface {
	Get(ctx context.Context, userEmail string) (map[string]struct{}, error)
	Add(ctx context.Context, userEmail, id string) error
	AddAll(ctx context.Context, userEmail string, ids []string) error
}

// Engine is the pull-facing facade over the latest refresh state, the rule
// engine and the dismissal store.
type Engine struct {
	sched      *Scheduler
	dismissals Dismissals
	logger     *log.Logger
}

// NewEngine wires a scheduler and a dismissal store together.
func NewEngine(sched *Scheduler, dismissals Dismissals, logger *log.Logger) *Engine {
	if sched == nil {
		panic("insights.NewEngine: scheduler is nil")
	}
	if dismissals == nil {
		panic("insights.NewEngine: dismissals is nil")
	}
	if logger == nil {
		logger = log.New()
	}
	return &Engine{sched: sched, dismissals: dismissals, logger: logger}
}

// Metrics returns the KPI snapshot for the given scope, synchronously over
// the last loaded data. The portfolio-wide snapshot is precomputed per
// refresh; a project scope re-aggregates the same snapshot on demand. ok is
// false before the first refresh completes.
func (e *Engine) Metrics(scope string) (domain.MetricsSnapshot, bool) {
	st, ok := e.sched.State()
	if !ok {
		return domain.MetricsSnapshot{}, false
	}
	if scope == "" || scope == domain.ScopeAll {
		return st.Metrics, true
	}
	return Aggregate(st.Snapshot, scope, time.Now()), true
}

// Notifications returns the user's sorted, dismissal-filtered feed. When the
// dismissal store is unreachable the feed degrades to an unfiltered list for
// this call instead of failing.
func (e *Engine) Notifications(ctx context.Context, userEmail string) []domain.Notification {
	st, ok := e.sched.State()
	if !ok {
		return []domain.Notification{}
	}
	if _, known := st.Snapshot.UserByEmail(userEmail); !known {
		e.logger.WithField("user", userEmail).Debug("user absent from loaded snapshot")
	}
	dismissed, err := e.dismissals.Get(ctx, userEmail)
	if err != nil {
		e.logger.WithFields(log.Fields{"user": userEmail, "error": err.Error()}).
			Warn("dismissal store unavailable, serving unfiltered feed")
		dismissed = nil
	}
	return Generate(st.Snapshot, userEmail, dismissed, time.Now())
}

// Dismiss hides one notification id for the user, persistently. The id stays
// suppressed on later refreshes for as long as the underlying condition keeps
// deriving the same id.
func (e *Engine) Dismiss(ctx context.Context, userEmail, id string) error {
	return e.dismissals.Add(ctx, userEmail, id)
}

// ClearAll dismisses every notification currently derivable for the user.
func (e *Engine) ClearAll(ctx context.Context, userEmail string) error {
	st, ok := e.sched.State()
	if !ok {
		return nil
	}
	current := Generate(st.Snapshot, userEmail, nil, time.Now())
	if len(current) == 0 {
		return nil
	}
	ids := make([]string, len(current))
	for i, n := range current {
		ids[i] = n.ID
	}
	return e.dismissals.AddAll(ctx, userEmail, ids)
}

// LastRefreshed reports when the latest snapshot was computed; ok is false
// before the first refresh.
func (e *Engine) LastRefreshed() (time.Time, bool) {
	st, ok := e.sched.State()
	if !ok {
		return time.Time{}, false
	}
	return st.RefreshedAt, true
}
