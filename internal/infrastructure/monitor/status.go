package monitor

import "time"

type Status struct {
	Redis        bool                    `json:"redis"`
	RedisEnabled bool                    `json:"redis_enabled"`
	History      bool                    `json:"history"`
	HistoryRuns  int                     `json:"history_runs"`
	Sources      map[string]SourceStatus `json:"sources"`
	LastCheck    time.Time               `json:"last_check"`
}

// SourceStatus describes how fresh the cached copy of one source is.
type SourceStatus struct {
	SyncedAt *time.Time `json:"synced_at,omitempty"`
	Stale    bool       `json:"stale"`
}

// Healthy reports whether every enabled dependency answered.
func (s Status) Healthy() bool {
	return (s.Redis || !s.RedisEnabled) && s.History
}
