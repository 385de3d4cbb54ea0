package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"prism-board/domain"
)

type taskLister interface {
	ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.TaskView, error)
}

// Cache wraps a Store with Redis-backed caching of project boards. Only
// the unfiltered task list of a project is cached.
type Cache struct {
	*Store
	base  taskLister
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base taskLister, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}

	c := &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
	if s, ok := base.(*Store); ok {
		c.Store = s
	}
	return c
}

func (c *Cache) ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.TaskView, error) {
	if !isBoardFilter(f) {
		return c.base.ListTasks(ctx, f)
	}
	if tasks, ok := c.loadBoard(ctx, f.ProjectID); ok {
		return tasks, nil
	}

	tasks, err := c.base.ListTasks(ctx, f)
	if err != nil {
		return nil, err
	}

	c.storeBoard(ctx, f.ProjectID, tasks)
	return tasks, nil
}

// BoardChanged drops the cached board of a project.
func (c *Cache) BoardChanged(ctx context.Context, projectID string) {
	if c.redis == nil || projectID == "" {
		return
	}
	_, _ = c.redis.Del(ctx, boardCacheKey(projectID)).Result()
}

func (c *Cache) loadBoard(ctx context.Context, projectID string) ([]domain.TaskView, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, boardCacheKey(projectID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing store without failing.
			_ = c.redis.Del(ctx, boardCacheKey(projectID)).Err()
		}
		return nil, false
	}
	var tasks []domain.TaskView
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, boardCacheKey(projectID)).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) storeBoard(ctx context.Context, projectID string, tasks []domain.TaskView) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, boardCacheKey(projectID), data, c.ttl).Err()
}

func isBoardFilter(f domain.TaskFilter) bool {
	return f.ProjectID != "" && f == domain.TaskFilter{ProjectID: f.ProjectID}
}

func boardCacheKey(projectID string) string {
	return "board:" + projectID
}
