package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// ErrKeyNotFound is returned by KV.Get when the key has never been written.
var ErrKeyNotFound = errors.New("storage: key not found")

// KV is the minimal durable key-value contract the engine needs. Injecting it
// keeps dismissal persistence free of any concrete storage technology.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// RedisKV stores values in Redis without expiry; dismissals persist until
// explicitly cleared.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV creates a KV backed by the given Redis client.
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrKeyNotFound
	}
	return data, err
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// MemoryKV is an in-process KV used in tests and as the session-only fallback
// when no durable store is configured.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV creates an empty in-memory KV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *MemoryKV) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	return nil
}

func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// DismissalStore persists the set of notification ids each user has
// dismissed. The set survives refresh cycles and process restarts and is
// stored as a single JSON array of string ids under one key per user.
type DismissalStore struct {
	kv KV

	// Serializes the read-check-write cycle of Add/AddAll within this
	// process.
	mu sync.Mutex
}

// NewDismissalStore creates a store over the given KV.
func NewDismissalStore(kv KV) *DismissalStore {
	if kv == nil {
		panic("storage.NewDismissalStore: kv is nil")
	}
	return &DismissalStore{kv: kv}
}

func dismissalKey(userEmail string) string {
	return "insights:dismissals:" + userEmail
}

// Get returns the user's dismissed id set. A user with no stored dismissals
// gets an empty set.
func (s *DismissalStore) Get(ctx context.Context, userEmail string) (map[string]struct{}, error) {
	ids, err := s.load(ctx, userEmail)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// Add records one dismissed id.
func (s *DismissalStore) Add(ctx context.Context, userEmail, id string) error {
	return s.AddAll(ctx, userEmail, []string{id})
}

// AddAll records a batch of dismissed ids, skipping ones already present.
func (s *DismissalStore) AddAll(ctx context.Context, userEmail string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.load(ctx, userEmail)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(stored))
	for _, id := range stored {
		seen[id] = struct{}{}
	}
	changed := false
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		stored = append(stored, id)
		changed = true
	}
	if !changed {
		return nil
	}
	data, err := sonic.Marshal(stored)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, dismissalKey(userEmail), data)
}

// Clear forgets every dismissal of the user.
func (s *DismissalStore) Clear(ctx context.Context, userEmail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(ctx, dismissalKey(userEmail))
}

func (s *DismissalStore) load(ctx context.Context, userEmail string) ([]string, error) {
	data, err := s.kv.Get(ctx, dismissalKey(userEmail))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := sonic.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

const analysisStampKey = "insights:last-analysis"

// AnalysisStamp persists the timestamp of the last completed refresh. It only
// feeds the "last updated" display, never notification correctness.
type AnalysisStamp struct {
	kv KV
}

// NewAnalysisStamp creates a stamp over the given KV.
func NewAnalysisStamp(kv KV) *AnalysisStamp {
	if kv == nil {
		panic("storage.NewAnalysisStamp: kv is nil")
	}
	return &AnalysisStamp{kv: kv}
}

// Set records the refresh time as an RFC3339 string.
func (a *AnalysisStamp) Set(ctx context.Context, t time.Time) error {
	return a.kv.Set(ctx, analysisStampKey, []byte(t.UTC().Format(time.RFC3339)))
}

// Get returns the last recorded refresh time; ok is false when none was ever
// recorded or the stored value is unreadable.
func (a *AnalysisStamp) Get(ctx context.Context) (time.Time, bool, error) {
	data, err := a.kv.Get(ctx, analysisStampKey)
	if errors.Is(err, ErrKeyNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, string(data))
	if err != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}
