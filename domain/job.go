package domain

import "time"

type JobStatus string

const (
	JobNeverRun JobStatus = "never_run"
	JobSuccess  JobStatus = "success"
	JobFailure  JobStatus = "failure"
)

// JobState is a point-in-time view of a registered job.
type JobState struct {
	Name        string     `json:"name"`
	Schedule    string     `json:"schedule"`
	Description string     `json:"description,omitempty"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	LastStatus  JobStatus  `json:"last_status"`
	LastError   string     `json:"last_error,omitempty"`
	Running     bool       `json:"running"`
	NextRun     *time.Time `json:"next_run,omitempty"`
}

// JobRun records one finished execution of a job.
type JobRun struct {
	ID         string    `json:"id"`
	Job        string    `json:"job"`
	Trigger    string    `json:"trigger"`
	Status     JobStatus `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
