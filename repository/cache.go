package repository

import (
	"time"

	"github.com/fastygo/taskhub/domain"
)

// CacheEntry is a cached task together with the time it was last fetched.
type CacheEntry struct {
	Task      domain.Task `json:"task"`
	FetchedAt time.Time   `json:"fetched_at"`
}

// TaskCache holds canonical tasks keyed by source and id. It never expires
// entries and never reaches out to a remote source on a miss.
type TaskCache interface {
	Get(key domain.TaskKey) (CacheEntry, bool)
	// Lookup returns every entry whose id matches, across all sources.
	Lookup(id domain.TaskID) []CacheEntry
	Put(task domain.Task, fetchedAt time.Time)
	// Update rewrites the entry at key with fn while holding the cache lock.
	// It fails with domain.ErrTaskNotFound when the entry is gone, and leaves
	// the entry as it was when fn returns an error.
	Update(key domain.TaskKey, fn func(domain.Task) (domain.Task, error), fetchedAt time.Time) (domain.Task, error)
	Invalidate(key domain.TaskKey)
	// ReplaceAll atomically swaps every entry of source for tasks.
	ReplaceAll(source domain.Source, tasks []domain.Task, fetchedAt time.Time)
	List(filter domain.TaskFilter) []domain.Task
	Entries() []CacheEntry
	// SyncedAt reports the last full ReplaceAll of source.
	SyncedAt(source domain.Source) (time.Time, bool)
}
