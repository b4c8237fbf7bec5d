package studyblog

import (
	"context"
	"sync"
	"time"
)

// feedCache is an in-memory cache of the published post set and the subject
// list with TTL. The subject filter is applied to the cached set, so changing
// the filter never waits on the database while the cache is warm.
type feedCache struct {
	mu       sync.RWMutex
	posts    []Post
	subjects []Subject
	fetched  time.Time
	ttl      time.Duration
	store    *Store
}

func newFeedCache(s *Store, ttl time.Duration) *feedCache {
	return &feedCache{store: s, ttl: ttl}
}

func (c *feedCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
// Called after every post mutation.
func (c *feedCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.subjects = nil
	c.mu.Unlock()
}

func (c *feedCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	posts, err := c.store.ListPublished(ctx, "")
	if err != nil {
		return err
	}
	if posts == nil {
		// An empty feed is still a warm cache.
		posts = []Post{}
	}
	subjects, err := c.store.ListSubjects(ctx)
	if err != nil {
		return err
	}
	c.posts = posts
	c.subjects = subjects
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns cached posts and subjects after ensuring freshness.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *feedCache) ensureLoaded(ctx context.Context) ([]Post, []Subject, error) {
	c.mu.RLock()
	if c.valid() {
		posts, subjects := c.posts, c.subjects
		c.mu.RUnlock()
		return posts, subjects, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, nil, err
	}
	return c.posts, c.subjects, nil
}

// ListPublished returns published posts, optionally narrowed to a subject.
func (c *feedCache) ListPublished(ctx context.Context, subjectID string) ([]Post, error) {
	posts, _, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	if subjectID == "" {
		return posts, nil
	}
	var filtered []Post
	for _, p := range posts {
		if p.SubjectID == subjectID {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// ListSubjects returns all subjects.
func (c *feedCache) ListSubjects(ctx context.Context) ([]Subject, error) {
	_, subjects, err := c.ensureLoaded(ctx)
	return subjects, err
}
