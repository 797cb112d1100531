package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/repository"
)

// TaskCache is the in-process task store shared by the service, the jobs and
// the presentation layers. All mutation is serialized by mu.
type TaskCache struct {
	mu       sync.RWMutex
	entries  map[domain.TaskKey]repository.CacheEntry
	syncedAt map[domain.Source]time.Time
}

// NewTaskCache returns an empty cache.
func NewTaskCache() *TaskCache {
	return &TaskCache{
		entries:  make(map[domain.TaskKey]repository.CacheEntry),
		syncedAt: make(map[domain.Source]time.Time),
	}
}

func (c *TaskCache) Get(key domain.TaskKey) (repository.CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return repository.CacheEntry{}, false
	}
	return cloneEntry(entry), true
}

func (c *TaskCache) Lookup(id domain.TaskID) []repository.CacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []repository.CacheEntry
	for key, entry := range c.entries {
		if key.ID == id {
			out = append(out, cloneEntry(entry))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Task.Source < out[j].Task.Source })
	return out
}

func (c *TaskCache) Put(task domain.Task, fetchedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[task.Key()] = repository.CacheEntry{Task: task.Clone(), FetchedAt: fetchedAt}
}

func (c *TaskCache) Update(key domain.TaskKey, fn func(domain.Task) (domain.Task, error), fetchedAt time.Time) (domain.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	updated, err := fn(entry.Task.Clone())
	if err != nil {
		return domain.Task{}, err
	}
	updated.Source, updated.ID = key.Source, key.ID
	c.entries[key] = repository.CacheEntry{Task: updated.Clone(), FetchedAt: fetchedAt}
	return updated, nil
}

func (c *TaskCache) Invalidate(key domain.TaskKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *TaskCache) ReplaceAll(source domain.Source, tasks []domain.Task, fetchedAt time.Time) {
	fresh := make(map[domain.TaskKey]repository.CacheEntry, len(tasks))
	for _, task := range tasks {
		task.Source = source
		fresh[task.Key()] = repository.CacheEntry{Task: task.Clone(), FetchedAt: fetchedAt}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if key.Source == source {
			delete(c.entries, key)
		}
	}
	for key, entry := range fresh {
		c.entries[key] = entry
	}
	c.syncedAt[source] = fetchedAt
}

func (c *TaskCache) List(filter domain.TaskFilter) []domain.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Task, 0, len(c.entries))
	for _, entry := range c.entries {
		if filter.Matches(entry.Task) {
			out = append(out, entry.Task.Clone())
		}
	}
	sortTasks(out)
	return out
}

func (c *TaskCache) Entries() []repository.CacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]repository.CacheEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		out = append(out, cloneEntry(entry))
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i].Task, out[j].Task) })
	return out
}

func (c *TaskCache) SyncedAt(source domain.Source) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	at, ok := c.syncedAt[source]
	return at, ok
}

func cloneEntry(entry repository.CacheEntry) repository.CacheEntry {
	entry.Task = entry.Task.Clone()
	return entry
}

// newest first, then source and id so the order is total
func sortTasks(tasks []domain.Task) {
	sort.Slice(tasks, func(i, j int) bool { return less(tasks[i], tasks[j]) })
}

func less(a, b domain.Task) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	return a.ID < b.ID
}

var _ repository.TaskCache = (*TaskCache)(nil)
