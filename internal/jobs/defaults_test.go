package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/config"
	"github.com/fastygo/taskhub/internal/scheduler"
)

var schedules = config.SchedulerConfig{
	Timezone:         "UTC",
	SyncTeamCron:     "*/15 * * * *",
	SyncPersonalCron: "*/30 * * * *",
	DueCron:          "0 9 * * *",
	OverdueCron:      "0 18 * * *",
	SummaryCron:      "0 8 * * 1-5",
	PruneCron:        "30 3 * * *",
}

type fakeSyncer struct {
	sources []domain.Source
	synced  []domain.Source
	err     error
}

func (f *fakeSyncer) Sources() []domain.Source { return f.sources }

func (f *fakeSyncer) Sync(_ context.Context, source domain.Source) (int, error) {
	f.synced = append(f.synced, source)
	return 3, f.err
}

type fakeNotifier struct{ kinds []domain.NotificationKind }

func (f *fakeNotifier) Notify(_ context.Context, kind domain.NotificationKind) (domain.Notification, error) {
	f.kinds = append(f.kinds, kind)
	return domain.Notification{Kind: kind}, nil
}

type fakePruner struct{ before time.Time }

func (f *fakePruner) Cleanup(before time.Time) (int, error) {
	f.before = before
	return 2, nil
}

func names(jobs []scheduler.Job) []string {
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Name)
	}
	return out
}

func TestDefaultsFollowConfiguredSources(t *testing.T) {
	notifier := &fakeNotifier{}
	tests := []struct {
		name    string
		sources []domain.Source
		want    []string
	}{
		{"none", nil, []string{SendDueNotifications, SendOverdueNotifications, SendDailySummary}},
		{"team only", []domain.Source{domain.SourceTeam}, []string{SyncTeamTasks, SendDueNotifications, SendOverdueNotifications, SendDailySummary}},
		{"both", []domain.Source{domain.SourceTeam, domain.SourcePersonal}, []string{SyncTeamTasks, SyncPersonalTasks, SendDueNotifications, SendOverdueNotifications, SendDailySummary}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := Defaults(schedules, Deps{Tasks: &fakeSyncer{sources: tt.sources}, Notifier: notifier})
			assert.Equal(t, tt.want, names(jobs))
		})
	}
}

func TestPruneJobNeedsRetention(t *testing.T) {
	pruner := &fakePruner{}
	jobs := Defaults(schedules, Deps{Pruner: pruner})
	assert.Empty(t, jobs)

	jobs = Defaults(schedules, Deps{Pruner: pruner, Retention: time.Hour})
	require.Equal(t, []string{PruneJobHistory}, names(jobs))
	require.NoError(t, jobs[0].Run(context.Background()))
	assert.WithinDuration(t, time.Now().Add(-time.Hour), pruner.before, 5*time.Second)
}

func TestRegisteredJobsDriveCollaborators(t *testing.T) {
	syncer := &fakeSyncer{sources: []domain.Source{domain.SourcePersonal}, err: errors.New("notion down")}
	notifier := &fakeNotifier{}
	s := scheduler.New(nil)
	require.NoError(t, Register(s, Defaults(schedules, Deps{Tasks: syncer, Notifier: notifier})))

	outcome, err := s.Trigger(context.Background(), SyncPersonalTasks)
	require.NoError(t, err)
	assert.Equal(t, scheduler.OutcomeFailed, outcome)
	assert.Equal(t, []domain.Source{domain.SourcePersonal}, syncer.synced)

	outcome, err = s.Trigger(context.Background(), SendDailySummary)
	require.NoError(t, err)
	assert.Equal(t, scheduler.OutcomeSucceeded, outcome)
	assert.Equal(t, []domain.NotificationKind{domain.NotificationSummary}, notifier.kinds)

	_, err = s.Trigger(context.Background(), SyncTeamTasks)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))

	assert.True(t, domain.IsDomainError(Register(s, Defaults(schedules, Deps{Notifier: notifier})), domain.ErrCodeDuplicateJob))
}
