package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/fastygo/taskhub/domain"
)

const defaultBucket = "job_runs"

// Store persists finished job runs in BoltDB, one nested bucket per job,
// keyed by start time so cursors walk runs chronologically.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// Open initializes the BoltDB file and ensures the root bucket exists.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(defaultBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		bucket: []byte(defaultBucket),
	}, nil
}

// Record appends one run.
func (s *Store) Record(run domain.JobRun) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if run.Job == "" {
		return fmt.Errorf("history: run without job name")
	}
	payload, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		jobs, err := tx.Bucket(s.bucket).CreateBucketIfNotExists([]byte(run.Job))
		if err != nil {
			return err
		}
		return jobs.Put(buildKey(run), payload)
	})
}

// Recent returns up to limit runs of job, newest first.
func (s *Store) Recent(job string, limit int) ([]domain.JobRun, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 20
	}

	runs := []domain.JobRun{}
	err := s.db.View(func(tx *bolt.Tx) error {
		jobs := tx.Bucket(s.bucket).Bucket([]byte(job))
		if jobs == nil {
			return nil
		}
		c := jobs.Cursor()
		for k, v := c.Last(); k != nil && len(runs) < limit; k, v = c.Prev() {
			var run domain.JobRun
			if err := json.Unmarshal(v, &run); err != nil {
				continue
			}
			runs = append(runs, run)
		}
		return nil
	})
	return runs, err
}

// Cleanup removes runs started before the cutoff and reports how many went.
func (s *Store) Cleanup(before time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	limit := []byte(fmt.Sprintf("%020d", before.UnixNano()))
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(s.bucket)
		return root.ForEachBucket(func(name []byte) error {
			jobs := root.Bucket(name)
			var expired [][]byte
			c := jobs.Cursor()
			for k, _ := c.First(); k != nil && bytes.Compare(k[:len(limit)], limit) < 0; k, _ = c.Next() {
				expired = append(expired, append([]byte(nil), k...))
			}
			for _, k := range expired {
				if err := jobs.Delete(k); err != nil {
					return err
				}
			}
			removed += len(expired)
			return nil
		})
	})
	return removed, err
}

// Size returns the number of stored runs across all jobs.
func (s *Store) Size() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(s.bucket)
		return root.ForEachBucket(func(name []byte) error {
			count += root.Bucket(name).Stats().KeyN
			return nil
		})
	})
	return count, err
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Stats exposes Bolt statistics for monitoring endpoints.
func (s *Store) Stats() bolt.Stats {
	if s == nil || s.db == nil {
		return bolt.Stats{}
	}
	return s.db.Stats()
}

func buildKey(run domain.JobRun) []byte {
	return []byte(fmt.Sprintf("%020d_%s", run.StartedAt.UnixNano(), run.ID))
}
