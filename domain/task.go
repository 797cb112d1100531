package domain

import (
	"sort"
	"strings"
	"time"
)

// TaskID is the opaque identifier assigned by the owning source. It is kept
// byte-for-byte as the source reports it.
type TaskID string

func (id TaskID) String() string { return string(id) }

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked"
)

// Statuses lists every canonical status in workflow order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone, StatusBlocked}

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusBlocked:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists every canonical priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// Rank orders priorities; unknown values rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 0
}

// Source identifies the remote database owning a task.
type Source string

const (
	SourceTeam     Source = "team"
	SourcePersonal Source = "personal"
	SourceManual   Source = "manual"
)

func (s Source) Valid() bool {
	switch s {
	case SourceTeam, SourcePersonal, SourceManual:
		return true
	}
	return false
}

// Remote reports whether tasks of this source are backed by a remote database.
func (s Source) Remote() bool {
	return s == SourceTeam || s == SourcePersonal
}

// Task is the canonical task entity shared by every source.
type Task struct {
	ID          TaskID            `json:"id,omitempty"`
	Title       string            `json:"title"`
	Status      Status            `json:"status"`
	Priority    Priority          `json:"priority"`
	Source      Source            `json:"source"`
	DueDate     *time.Time        `json:"due_date,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Description string            `json:"description,omitempty"`
	Assignee    string            `json:"assignee,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at,omitempty"`
}

// TaskKey addresses a task inside its source namespace.
type TaskKey struct {
	Source Source
	ID     TaskID
}

func (t *Task) Key() TaskKey {
	return TaskKey{Source: t.Source, ID: t.ID}
}

func (t *Task) IsCompleted() bool {
	return t != nil && t.Status == StatusDone
}

// Clone returns a deep copy so callers never share slices or maps with a store.
func (t Task) Clone() Task {
	if t.DueDate != nil {
		due := *t.DueDate
		t.DueDate = &due
	}
	if t.Tags != nil {
		t.Tags = append([]string(nil), t.Tags...)
	}
	if t.Metadata != nil {
		meta := make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			meta[k] = v
		}
		t.Metadata = meta
	}
	return t
}

// Validate checks the invariants every task must satisfy before it is stored.
func (t *Task) Validate() error {
	if t == nil {
		return ErrInvalidPayload
	}
	if strings.TrimSpace(t.Title) == "" {
		return NewError(ErrCodeInvalid, "task title is required")
	}
	if !t.Status.Valid() {
		return NewError(ErrCodeInvalid, "unknown task status "+string(t.Status))
	}
	if !t.Priority.Valid() {
		return NewError(ErrCodeInvalid, "unknown task priority "+string(t.Priority))
	}
	if !t.Source.Valid() {
		return NewError(ErrCodeInvalid, "unknown task source "+string(t.Source))
	}
	return nil
}

// Date truncates t to its calendar day in t's own location and returns it as midnight UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DatePtr is Date for optional values.
func DatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := Date(*t)
	return &d
}

// NormalizeTags returns the canonical set form: trimmed, de-duplicated, sorted.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

// TaskPatch carries the fields of a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title        *string           `json:"title,omitempty"`
	Status       *Status           `json:"status,omitempty"`
	Priority     *Priority         `json:"priority,omitempty"`
	DueDate      *time.Time        `json:"due_date,omitempty"`
	ClearDueDate bool              `json:"clear_due_date,omitempty"`
	Tags         *[]string         `json:"tags,omitempty"`
	Description  *string           `json:"description,omitempty"`
	Assignee     *string           `json:"assignee,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Status == nil && p.Priority == nil && p.DueDate == nil &&
		!p.ClearDueDate && p.Tags == nil && p.Description == nil && p.Assignee == nil && p.Metadata == nil
}

// Apply returns a patched copy of t. Metadata, when present, replaces the whole map.
func (p TaskPatch) Apply(t Task) Task {
	out := t.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.ClearDueDate {
		out.DueDate = nil
	} else if p.DueDate != nil {
		out.DueDate = DatePtr(p.DueDate)
	}
	if p.Tags != nil {
		out.Tags = NormalizeTags(*p.Tags)
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Assignee != nil {
		out.Assignee = *p.Assignee
	}
	if p.Metadata != nil {
		out.Metadata = NormalizeMetadata(Task{Metadata: p.Metadata}.Clone().Metadata)
	}
	return out
}

// NormalizeMetadata maps an empty metadata map to nil; the two are not
// distinguishable once stored remotely.
func NormalizeMetadata(meta map[string]string) map[string]string {
	if len(meta) == 0 {
		return nil
	}
	return meta
}

// TaskFilter holds optional query criteria. Empty fields match every task.
type TaskFilter struct {
	Statuses   []Status   `json:"statuses,omitempty"`
	Priorities []Priority `json:"priorities,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	Sources    []Source   `json:"sources,omitempty"`
	Assignee   string     `json:"assignee,omitempty"`
	DueBefore  *time.Time `json:"due_before,omitempty"`
	DueAfter   *time.Time `json:"due_after,omitempty"`
}

// Matches reports whether t satisfies every constraint of f.
func (f TaskFilter) Matches(t Task) bool {
	if len(f.Statuses) > 0 && !contains(f.Statuses, t.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !contains(f.Priorities, t.Priority) {
		return false
	}
	if len(f.Sources) > 0 && !contains(f.Sources, t.Source) {
		return false
	}
	if len(f.Tags) > 0 && !intersects(f.Tags, t.Tags) {
		return false
	}
	if f.Assignee != "" && f.Assignee != t.Assignee {
		return false
	}
	if f.DueBefore != nil && (t.DueDate == nil || Date(*t.DueDate).After(Date(*f.DueBefore))) {
		return false
	}
	if f.DueAfter != nil && (t.DueDate == nil || Date(*t.DueDate).Before(Date(*f.DueAfter))) {
		return false
	}
	return true
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func intersects(wanted, have []string) bool {
	for _, w := range wanted {
		if contains(have, w) {
			return true
		}
	}
	return false
}
