package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"insights-engine/domain"
)

func TestLoadAssemblesAllCollections(t *testing.T) {
	provider := &stubProvider{
		listProjectsFn: func(ctx context.Context) ([]domain.Project, error) {
			return []domain.Project{{ID: "p1"}}, nil
		},
		listTasksFn: func(ctx context.Context) ([]domain.Task, error) {
			return []domain.Task{{ID: "t1"}, {ID: "t2"}}, nil
		},
		listMeetingsFn: func(ctx context.Context) ([]domain.Meeting, error) {
			return []domain.Meeting{{ID: "m1"}}, nil
		},
		listBudgetsFn: func(ctx context.Context) ([]domain.Budget, error) {
			return []domain.Budget{{ID: "b1", TotalValue: 1000}}, nil
		},
	}
	loader := NewSnapshotLoader(provider, time.Second, log.New())

	snap, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Partial {
		t.Fatalf("expected complete snapshot, failed: %v", snap.Failed)
	}
	if len(snap.Projects) != 1 || len(snap.Tasks) != 2 || len(snap.Meetings) != 1 || len(snap.Budgets) != 1 {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}
	if snap.LoadedAt.IsZero() {
		t.Fatalf("expected LoadedAt to be set")
	}
}

func TestLoadDegradesOnFailedCollection(t *testing.T) {
	provider := &stubProvider{
		listProjectsFn: func(ctx context.Context) ([]domain.Project, error) {
			return []domain.Project{{ID: "p1"}}, nil
		},
		listTasksFn: func(ctx context.Context) ([]domain.Task, error) {
			return nil, errors.New("timeout")
		},
		listMeetingsFn: func(ctx context.Context) ([]domain.Meeting, error) {
			return nil, errors.New("timeout")
		},
	}
	loader := NewSnapshotLoader(provider, time.Second, log.New())

	snap, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !snap.Partial {
		t.Fatalf("expected partial snapshot")
	}
	if want := []string{"meetings", "tasks"}; !reflect.DeepEqual(snap.Failed, want) {
		t.Fatalf("unexpected failed collections: %v", snap.Failed)
	}
	if len(snap.Projects) != 1 {
		t.Fatalf("surviving collections should still load, got %#v", snap.Projects)
	}
	if len(snap.Tasks) != 0 {
		t.Fatalf("failed collection should be empty, got %#v", snap.Tasks)
	}
}

func TestLoadOpensBreakerAfterRepeatedFailures(t *testing.T) {
	var calls int
	provider := &stubProvider{
		listTasksFn: func(ctx context.Context) ([]domain.Task, error) {
			calls++
			return nil, errors.New("down")
		},
	}
	loader := NewSnapshotLoader(provider, time.Second, log.New())

	// The breaker trips after more than 3 consecutive failures; later loads
	// must not reach the provider while it is open.
	for i := 0; i < 6; i++ {
		snap, err := loader.Load(context.Background())
		if err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
		if !snap.Partial {
			t.Fatalf("load %d: expected partial snapshot", i)
		}
	}
	if calls > 4 {
		t.Fatalf("expected breaker to stop provider calls, got %d", calls)
	}
}

func TestLoadHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loader := NewSnapshotLoader(&stubProvider{}, time.Second, log.New())
	if _, err := loader.Load(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
