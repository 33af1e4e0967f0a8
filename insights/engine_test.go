package insights

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"insights-engine/domain"
)

type memDismissals struct {
	mu     sync.Mutex
	sets   map[string]map[string]struct{}
	getErr error
}

func newMemDismissals() *memDismissals {
	return &memDismissals{sets: make(map[string]map[string]struct{})}
}

func (m *memDismissals) Get(ctx context.Context, userEmail string) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make(map[string]struct{}, len(m.sets[userEmail]))
	for id := range m.sets[userEmail] {
		out[id] = struct{}{}
	}
	return out, nil
}

func (m *memDismissals) Add(ctx context.Context, userEmail, id string) error {
	return m.AddAll(ctx, userEmail, []string{id})
}

func (m *memDismissals) AddAll(ctx context.Context, userEmail string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.sets[userEmail]
	if set == nil {
		set = make(map[string]struct{})
		m.sets[userEmail] = set
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return nil
}

func newRefreshedEngine(t *testing.T, snap domain.Snapshot, dismissals Dismissals) (*Engine, *stubLoader, *Scheduler) {
	t.Helper()
	loader := &stubLoader{snap: snap}
	sched := NewScheduler(loader, SchedulerConfig{Interval: time.Hour}, log.New())
	sched.refresh(context.Background())
	return NewEngine(sched, dismissals, log.New()), loader, sched
}

func overdueTaskSnapshot() domain.Snapshot {
	return domain.Snapshot{
		Tasks: []domain.Task{
			{ID: "42", Title: "Auditoria", Status: domain.TaskInProgress, AssignedTo: user, Deadline: time.Now().AddDate(0, 0, -2)},
		},
	}
}

func TestEngineMetricsBeforeFirstRefresh(t *testing.T) {
	loader := &stubLoader{}
	sched := NewScheduler(loader, SchedulerConfig{Interval: time.Hour}, log.New())
	engine := NewEngine(sched, newMemDismissals(), log.New())

	if _, ok := engine.Metrics(domain.ScopeAll); ok {
		t.Fatalf("expected no metrics before the first refresh")
	}
	if list := engine.Notifications(context.Background(), user); len(list) != 0 {
		t.Fatalf("expected empty feed before the first refresh, got %#v", list)
	}
}

func TestEngineScopedMetricsFromLatestSnapshot(t *testing.T) {
	snap := domain.Snapshot{
		Projects: []domain.Project{{ID: "p1", Status: domain.ProjectActive, TotalEstimatedCost: 40000}},
		Budgets:  []domain.Budget{{ID: "b1", ProjectID: "p1", TotalValue: 100000}},
	}
	engine, _, _ := newRefreshedEngine(t, snap, newMemDismissals())

	all, ok := engine.Metrics("")
	if !ok || all.Scope != domain.ScopeAll {
		t.Fatalf("expected cached portfolio metrics, got %#v ok=%v", all, ok)
	}
	scoped, ok := engine.Metrics("p1")
	if !ok || scoped.Scope != "p1" {
		t.Fatalf("expected scoped metrics, got %#v ok=%v", scoped, ok)
	}
	if scoped.Financial.BudgetUtilization != 40 {
		t.Fatalf("unexpected scoped utilization: %v", scoped.Financial.BudgetUtilization)
	}
}

func TestEngineDismissSuppressesAcrossRecomputes(t *testing.T) {
	engine, _, sched := newRefreshedEngine(t, overdueTaskSnapshot(), newMemDismissals())
	ctx := context.Background()

	list := engine.Notifications(ctx, user)
	if len(list) != 1 || list[0].ID != "task-overdue-42" {
		t.Fatalf("unexpected initial feed: %#v", list)
	}

	if err := engine.Dismiss(ctx, user, "task-overdue-42"); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if list := engine.Notifications(ctx, user); len(list) != 0 {
		t.Fatalf("dismissed id resurfaced: %#v", list)
	}

	// The same condition still present after a recompute must stay hidden.
	sched.refresh(ctx)
	if list := engine.Notifications(ctx, user); len(list) != 0 {
		t.Fatalf("dismissed id resurfaced after recompute: %#v", list)
	}
}

func TestEngineClearAllDismissesCurrentFeed(t *testing.T) {
	snap := domain.Snapshot{
		Tasks: []domain.Task{
			{ID: "1", Title: "A", Status: domain.TaskPending, AssignedTo: user},
			{ID: "2", Title: "B", Status: domain.TaskInProgress, AssignedTo: user, Deadline: time.Now().AddDate(0, 0, -1)},
		},
	}
	engine, _, _ := newRefreshedEngine(t, snap, newMemDismissals())
	ctx := context.Background()

	if list := engine.Notifications(ctx, user); len(list) != 2 {
		t.Fatalf("expected two notifications, got %#v", list)
	}
	if err := engine.ClearAll(ctx, user); err != nil {
		t.Fatalf("clear all: %v", err)
	}
	if list := engine.Notifications(ctx, user); len(list) != 0 {
		t.Fatalf("expected empty feed after clear all, got %#v", list)
	}
}

func TestEngineDegradesWhenDismissalStoreFails(t *testing.T) {
	dismissals := newMemDismissals()
	dismissals.getErr = errors.New("redis down")
	engine, _, _ := newRefreshedEngine(t, overdueTaskSnapshot(), dismissals)

	list := engine.Notifications(context.Background(), user)
	if len(list) != 1 {
		t.Fatalf("feed must still be served unfiltered, got %#v", list)
	}
}
