package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestTaskFilterMatches(t *testing.T) {
	task := Task{
		ID:       "a",
		Title:    "Write report",
		Status:   StatusInProgress,
		Priority: PriorityHigh,
		Source:   SourceTeam,
		DueDate:  day("2025-01-10"),
		Tags:     []string{"ops", "q1"},
		Assignee: "kana",
	}

	tests := []struct {
		name   string
		filter TaskFilter
		want   bool
	}{
		{"empty filter matches everything", TaskFilter{}, true},
		{"status hit", TaskFilter{Statuses: []Status{StatusTodo, StatusInProgress}}, true},
		{"status miss", TaskFilter{Statuses: []Status{StatusDone}}, false},
		{"priority miss", TaskFilter{Priorities: []Priority{PriorityLow}}, false},
		{"source hit", TaskFilter{Sources: []Source{SourceTeam}}, true},
		{"source miss", TaskFilter{Sources: []Source{SourcePersonal}}, false},
		{"tags intersect", TaskFilter{Tags: []string{"q1", "other"}}, true},
		{"tags disjoint", TaskFilter{Tags: []string{"other"}}, false},
		{"assignee miss", TaskFilter{Assignee: "someone"}, false},
		{"due before inclusive", TaskFilter{DueBefore: day("2025-01-10")}, true},
		{"due before excludes later", TaskFilter{DueBefore: day("2025-01-09")}, false},
		{"due after inclusive", TaskFilter{DueAfter: day("2025-01-10")}, true},
		{"due after excludes earlier", TaskFilter{DueAfter: day("2025-01-11")}, false},
		{"all constraints", TaskFilter{
			Statuses:   []Status{StatusInProgress},
			Priorities: []Priority{PriorityHigh},
			Sources:    []Source{SourceTeam},
			Tags:       []string{"ops"},
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(task))
		})
	}

	undated := task
	undated.DueDate = nil
	assert.False(t, TaskFilter{DueBefore: day("2030-01-01")}.Matches(undated))
}

func TestTaskPatchApply(t *testing.T) {
	base := Task{
		ID:       "a",
		Title:    "Old",
		Status:   StatusTodo,
		Priority: PriorityLow,
		Source:   SourceManual,
		DueDate:  day("2025-01-01"),
		Tags:     []string{"x"},
		Metadata: map[string]string{"k": "v"},
	}

	title := "New"
	done := StatusDone
	tags := []string{"b", "a", "b"}
	patched := TaskPatch{Title: &title, Status: &done, Tags: &tags}.Apply(base)

	assert.Equal(t, "New", patched.Title)
	assert.Equal(t, StatusDone, patched.Status)
	assert.Equal(t, PriorityLow, patched.Priority)
	assert.Equal(t, []string{"a", "b"}, patched.Tags)
	assert.Equal(t, base.DueDate, patched.DueDate)

	// the original is untouched
	assert.Equal(t, "Old", base.Title)
	assert.Equal(t, []string{"x"}, base.Tags)

	cleared := TaskPatch{ClearDueDate: true}.Apply(base)
	assert.Nil(t, cleared.DueDate)

	wiped := TaskPatch{Metadata: map[string]string{}}.Apply(base)
	assert.Nil(t, wiped.Metadata)
	assert.Equal(t, map[string]string{"k": "v"}, base.Metadata)

	assert.True(t, TaskPatch{}.IsEmpty())
	assert.False(t, TaskPatch{ClearDueDate: true}.IsEmpty())
}

func TestTaskValidate(t *testing.T) {
	valid := Task{Title: "x", Status: StatusTodo, Priority: PriorityMedium, Source: SourceManual}
	require.NoError(t, valid.Validate())

	for name, mutate := range map[string]func(*Task){
		"blank title":  func(t *Task) { t.Title = "  " },
		"bad status":   func(t *Task) { t.Status = "open" },
		"bad priority": func(t *Task) { t.Priority = "p1" },
		"bad source":   func(t *Task) { t.Source = "jira" },
	} {
		t.Run(name, func(t *testing.T) {
			task := valid
			mutate(&task)
			err := task.Validate()
			require.Error(t, err)
			assert.True(t, IsDomainError(err, ErrCodeInvalid))
		})
	}
}

func TestNormalizeTagsAndDate(t *testing.T) {
	assert.Nil(t, NormalizeTags(nil))
	assert.Nil(t, NormalizeTags([]string{" ", ""}))
	assert.Equal(t, []string{"a", "b"}, NormalizeTags([]string{" b", "a", "b "}))

	tokyo := time.FixedZone("JST", 9*3600)
	late := time.Date(2025, 3, 1, 23, 30, 0, 0, tokyo)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Date(late))
}

func TestCloneIsDeep(t *testing.T) {
	orig := Task{DueDate: day("2025-01-01"), Tags: []string{"a"}, Metadata: map[string]string{"k": "v"}}
	c := orig.Clone()
	c.Tags[0] = "z"
	c.Metadata["k"] = "changed"
	*c.DueDate = c.DueDate.AddDate(0, 0, 1)

	assert.Equal(t, "a", orig.Tags[0])
	assert.Equal(t, "v", orig.Metadata["k"])
	assert.Equal(t, *day("2025-01-01"), *orig.DueDate)
}

func TestErrorsUnwrap(t *testing.T) {
	err := WrapError(ErrCodeNotFound, "job x", ErrJobNotFound)
	assert.True(t, errors.Is(err, ErrJobNotFound))
	assert.True(t, IsDomainError(err, ErrCodeNotFound))
	assert.False(t, IsDomainError(errors.New("plain"), ErrCodeNotFound))

	mapping := NewMappingError("status", "Someday")
	assert.Contains(t, mapping.Error(), `"Someday"`)
	assert.True(t, IsDomainError(mapping, ErrCodeMapping))
}
