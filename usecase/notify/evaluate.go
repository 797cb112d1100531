package notify

import (
	"time"

	"github.com/fastygo/taskhub/domain"
)

// Evaluate selects and orders the tasks a notification of kind carries as of
// the given instant. The calendar day is taken in asOf's location. Input
// tasks are never modified.
func Evaluate(tasks []domain.Task, kind domain.NotificationKind, asOf time.Time) domain.Notification {
	today := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)

	selected := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.IsCompleted() {
			continue
		}
		var keep bool
		switch kind {
		case domain.NotificationDueToday:
			keep = t.DueDate != nil && domain.Date(*t.DueDate).Equal(today)
		case domain.NotificationOverdue:
			keep = t.DueDate != nil && domain.Date(*t.DueDate).Before(today)
		case domain.NotificationSummary:
			keep = true
		}
		if keep {
			selected = append(selected, t.Clone())
		}
	}
	domain.SortForNotification(selected)

	return domain.Notification{
		Kind:        kind,
		Tasks:       selected,
		GeneratedAt: asOf,
	}
}
