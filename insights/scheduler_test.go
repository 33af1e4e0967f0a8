package insights

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"insights-engine/domain"
)

type stubLoader struct {
	mu    sync.Mutex
	snap  domain.Snapshot
	err   error
	calls atomic.Int32
	block chan struct{}
}

func (l *stubLoader) Load(ctx context.Context) (domain.Snapshot, error) {
	l.calls.Add(1)
	if l.block != nil {
		select {
		case <-l.block:
		case <-ctx.Done():
			return domain.Snapshot{}, ctx.Err()
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap, l.err
}

func (l *stubLoader) setSnapshot(snap domain.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snap = snap
}

func TestSchedulerRefreshPublishesState(t *testing.T) {
	loader := &stubLoader{snap: domain.Snapshot{Projects: []domain.Project{{ID: "p1"}}}}
	s := NewScheduler(loader, SchedulerConfig{Interval: time.Hour}, log.New())

	if _, ok := s.State(); ok {
		t.Fatalf("expected no state before the first refresh")
	}

	s.refresh(context.Background())

	st, ok := s.State()
	if !ok {
		t.Fatalf("expected state after refresh")
	}
	if len(st.Snapshot.Projects) != 1 {
		t.Fatalf("unexpected snapshot: %#v", st.Snapshot)
	}
	if st.Metrics.Scope != domain.ScopeAll {
		t.Fatalf("expected portfolio-wide metrics, got %q", st.Metrics.Scope)
	}
	if st.RunID == "" || st.RefreshedAt.IsZero() {
		t.Fatalf("missing run bookkeeping: %#v", st)
	}
}

func TestSchedulerReplacesStateWholesale(t *testing.T) {
	loader := &stubLoader{snap: domain.Snapshot{Projects: []domain.Project{{ID: "p1"}}}}
	s := NewScheduler(loader, SchedulerConfig{Interval: time.Hour}, log.New())

	s.refresh(context.Background())
	first, _ := s.State()

	loader.setSnapshot(domain.Snapshot{Projects: []domain.Project{{ID: "p1"}, {ID: "p2"}}})
	s.refresh(context.Background())
	second, _ := s.State()

	if first.RunID == second.RunID {
		t.Fatalf("expected a new run id per refresh")
	}
	if len(first.Snapshot.Projects) != 1 || len(second.Snapshot.Projects) != 2 {
		t.Fatalf("state was not replaced: %#v / %#v", first.Snapshot, second.Snapshot)
	}
}

func TestSchedulerSkipsOverlappingRefresh(t *testing.T) {
	loader := &stubLoader{block: make(chan struct{})}
	s := NewScheduler(loader, SchedulerConfig{Interval: time.Hour}, log.New())

	done := make(chan struct{})
	go func() {
		s.refresh(context.Background())
		close(done)
	}()

	// Wait for the first refresh to reach the loader, then tick again.
	deadline := time.Now().Add(2 * time.Second)
	for loader.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("first refresh never started")
		}
		time.Sleep(time.Millisecond)
	}
	s.refresh(context.Background())
	if got := loader.calls.Load(); got != 1 {
		t.Fatalf("overlapping refresh must be skipped, loader calls: %d", got)
	}

	close(loader.block)
	<-done
}

func TestSchedulerStopDiscardsLateResult(t *testing.T) {
	loader := &stubLoader{block: make(chan struct{})}
	s := NewScheduler(loader, SchedulerConfig{Interval: time.Hour}, log.New())

	s.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for loader.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("initial refresh never started")
		}
		time.Sleep(time.Millisecond)
	}

	s.Stop()

	if _, ok := s.State(); ok {
		t.Fatalf("result arriving after Stop must not be applied")
	}
}

func TestSchedulerTicks(t *testing.T) {
	loader := &stubLoader{}
	s := NewScheduler(loader, SchedulerConfig{Interval: 10 * time.Millisecond}, log.New())

	s.Start(context.Background())
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for loader.calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected periodic refreshes, got %d", loader.calls.Load())
		}
		time.Sleep(time.Millisecond)
	}
}
