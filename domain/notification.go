package domain

import (
	"sort"
	"time"
)

type NotificationKind string

const (
	NotificationDueToday NotificationKind = "due_today"
	NotificationOverdue  NotificationKind = "overdue"
	NotificationSummary  NotificationKind = "summary"
)

func (k NotificationKind) Valid() bool {
	switch k {
	case NotificationDueToday, NotificationOverdue, NotificationSummary:
		return true
	}
	return false
}

// Notification is the payload handed to dispatchers. Rendering is theirs.
type Notification struct {
	Kind        NotificationKind `json:"kind"`
	Tasks       []Task           `json:"tasks"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// SortForNotification orders tasks by due date ascending (undated last),
// then priority descending, then title ascending.
func SortForNotification(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch {
		case a.DueDate == nil && b.DueDate != nil:
			return false
		case a.DueDate != nil && b.DueDate == nil:
			return true
		case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		}
		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra > rb
		}
		return a.Title < b.Title
	})
}
