package mention

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/repository/memory"
	"github.com/fastygo/taskhub/usecase/task"
)

type keyStore struct {
	mu   sync.Mutex
	keys map[string]domain.Task
}

func newKeyStore() *keyStore { return &keyStore{keys: make(map[string]domain.Task)} }

func (k *keyStore) Lookup(_ context.Context, key string) (*domain.Task, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	t, ok := k.keys[key]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (k *keyStore) Remember(_ context.Context, key string, t domain.Task) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[key] = t
	return nil
}

// countingTasks wraps the task service and counts creations.
type countingTasks struct {
	*task.UseCase
	created atomic.Int32
}

func (c *countingTasks) CreateTask(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	c.created.Add(1)
	time.Sleep(10 * time.Millisecond)
	return c.UseCase.CreateTask(ctx, t)
}

func newTasks() *countingTasks {
	return &countingTasks{UseCase: task.New(memory.NewTaskCache(), nil, nil)}
}

func slackMention(id, text string) domain.Mention {
	return domain.Mention{
		Origin:    domain.OriginSlack,
		RawText:   text,
		Author:    "U123",
		MessageID: id,
		Timestamp: time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC),
		ChannelID: "C42",
	}
}

func TestIngestIsIdempotent(t *testing.T) {
	tasks := newTasks()
	uc := New(tasks, nil)
	ctx := context.Background()
	m := slackMention("1700000000.000100", "<@U999> fix login !urgent due:2025-03-12 #auth")

	first, created, err := uc.Ingest(ctx, m)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "fix login", first.Title)
	assert.Equal(t, domain.PriorityUrgent, first.Priority)
	assert.Equal(t, domain.SourceManual, first.Source)
	assert.Equal(t, []string{"auth"}, first.Tags)
	require.NotNil(t, first.DueDate)
	assert.Equal(t, "2025-03-12", first.DueDate.Format("2006-01-02"))
	assert.Equal(t, m.Timestamp, first.CreatedAt)
	assert.Equal(t, m.RawText, first.Description)
	assert.Equal(t, map[string]string{
		domain.MetaIdempotencyKey: "slack:1700000000.000100",
		domain.MetaAuthor:         "U123",
		domain.MetaOrigin:         "slack",
		domain.MetaMessageID:      "1700000000.000100",
		domain.MetaChannelID:      "C42",
	}, first.Metadata)

	second, created, err := uc.Ingest(ctx, m)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 1, tasks.created.Load())

	other := m
	other.Origin = domain.OriginDiscord
	_, created, err = uc.Ingest(ctx, other)
	require.NoError(t, err)
	assert.True(t, created, "same message id from another origin is a new mention")
}

func TestConcurrentRedeliveryCreatesOneTask(t *testing.T) {
	tasks := newTasks()
	uc := New(tasks, nil)
	m := slackMention("42", "deploy")

	const workers = 8
	var (
		wg      sync.WaitGroup
		first   atomic.Int32
		ids     sync.Map
		failure atomic.Value
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, created, err := uc.Ingest(context.Background(), m)
			if err != nil {
				failure.Store(err)
				return
			}
			if created {
				first.Add(1)
			}
			ids.Store(got.ID, struct{}{})
		}()
	}
	wg.Wait()

	assert.Nil(t, failure.Load())
	assert.EqualValues(t, 1, tasks.created.Load())
	assert.EqualValues(t, 1, first.Load())
	count := 0
	ids.Range(func(any, any) bool { count++; return true })
	assert.Equal(t, 1, count)
}

func TestIngestConsultsSharedKeys(t *testing.T) {
	keys := newKeyStore()
	m := slackMention("7", "rotate keys")

	_, created, err := New(newTasks(), nil, WithKeyStore(keys)).Ingest(context.Background(), m)
	require.NoError(t, err)
	require.True(t, created)

	// A second instance with its own empty cache sees the shared key.
	tasks := newTasks()
	got, created, err := New(tasks, nil, WithKeyStore(keys)).Ingest(context.Background(), m)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "rotate keys", got.Title)
	assert.Zero(t, tasks.created.Load())
}

func TestIngestRejectsIncompleteMentions(t *testing.T) {
	uc := New(newTasks(), nil)
	tests := []struct {
		name   string
		mutate func(*domain.Mention)
	}{
		{"no origin", func(m *domain.Mention) { m.Origin = "" }},
		{"unknown origin", func(m *domain.Mention) { m.Origin = "irc" }},
		{"no text", func(m *domain.Mention) { m.RawText = "" }},
		{"no author", func(m *domain.Mention) { m.Author = "" }},
		{"no message id", func(m *domain.Mention) { m.MessageID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := slackMention("1", "hello")
			tt.mutate(&m)
			_, _, err := uc.Ingest(context.Background(), m)
			assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
		})
	}
}

func TestParse(t *testing.T) {
	due := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		text string
		want Details
	}{
		{
			name: "plain text",
			text: "review the PR",
			want: Details{Title: "review the PR", Priority: domain.PriorityMedium},
		},
		{
			name: "all markers",
			text: "<@U1|bot> Pay invoice !HIGH due:2025-01-31 #finance #ops #finance",
			want: Details{Title: "Pay invoice", Priority: domain.PriorityHigh, DueDate: &due, Tags: []string{"finance", "ops"}},
		},
		{
			name: "discord markup",
			text: "<@!1234> <@&5678> water plants",
			want: Details{Title: "water plants", Priority: domain.PriorityMedium},
		},
		{
			name: "invalid date is dropped from title",
			text: "book flights due:tomorrow",
			want: Details{Title: "book flights", Priority: domain.PriorityMedium},
		},
		{
			name: "only markup",
			text: "<@U1> !low",
			want: Details{Title: fallbackTitle, Priority: domain.PriorityLow},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.text, 0))
		})
	}
}

func TestParseTruncatesTitle(t *testing.T) {
	got := Parse(strings.Repeat("word ", 40), 20)
	assert.LessOrEqual(t, len([]rune(got.Title)), 20)
	assert.True(t, strings.HasSuffix(got.Title, "…"))

	assert.Len(t, []rune(Parse(strings.Repeat("é", 150), 0).Title), defaultTitleMax)
}
