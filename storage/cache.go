package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"insights-engine/domain"
)

// Provider reads the dashboard's entity collections. Implemented by Store and
// decorated by Cache.
type Provider interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ListTasks(ctx context.Context) ([]domain.Task, error)
	ListMeetings(ctx context.Context) ([]domain.Meeting, error)
	ListBudgets(ctx context.Context) ([]domain.Budget, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	ListAreas(ctx context.Context) ([]domain.Area, error)
}

// Cache wraps a Provider with Redis-backed read-through caching. It only ever
// shortens reads: any cache failure falls back to the backing provider and
// poisoned keys are dropped.
type Cache struct {
	base  Provider
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Provider wrapper using the given Redis client
// and TTL. A nil client or zero TTL disables caching.
func NewCache(base Provider, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base provider is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var cached []domain.Project
	if c.lookup(ctx, cacheKey("projects"), &cached) {
		return cached, nil
	}
	projects, err := c.base.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, cacheKey("projects"), projects)
	return projects, nil
}

func (c *Cache) ListTasks(ctx context.Context) ([]domain.Task, error) {
	var cached []domain.Task
	if c.lookup(ctx, cacheKey("tasks"), &cached) {
		return cached, nil
	}
	tasks, err := c.base.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, cacheKey("tasks"), tasks)
	return tasks, nil
}

func (c *Cache) ListMeetings(ctx context.Context) ([]domain.Meeting, error) {
	var cached []domain.Meeting
	if c.lookup(ctx, cacheKey("meetings"), &cached) {
		return cached, nil
	}
	meetings, err := c.base.ListMeetings(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, cacheKey("meetings"), meetings)
	return meetings, nil
}

func (c *Cache) ListBudgets(ctx context.Context) ([]domain.Budget, error) {
	var cached []domain.Budget
	if c.lookup(ctx, cacheKey("budgets"), &cached) {
		return cached, nil
	}
	budgets, err := c.base.ListBudgets(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, cacheKey("budgets"), budgets)
	return budgets, nil
}

func (c *Cache) ListUsers(ctx context.Context) ([]domain.User, error) {
	var cached []domain.User
	if c.lookup(ctx, cacheKey("users"), &cached) {
		return cached, nil
	}
	users, err := c.base.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, cacheKey("users"), users)
	return users, nil
}

func (c *Cache) ListAreas(ctx context.Context) ([]domain.Area, error) {
	var cached []domain.Area
	if c.lookup(ctx, cacheKey("areas"), &cached) {
		return cached, nil
	}
	areas, err := c.base.ListAreas(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, cacheKey("areas"), areas)
	return areas, nil
}

func (c *Cache) lookup(ctx context.Context, key string, dest any) bool {
	if c.redis == nil || c.ttl == 0 {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing provider without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := sonic.Unmarshal(data, dest); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(v)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func cacheKey(collection string) string {
	return "insights:collections:" + collection
}
