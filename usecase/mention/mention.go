package mention

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/repository"
)

const (
	defaultTitleMax = 100
	fallbackTitle   = "Task from mention"
)

var (
	priorityMarker = regexp.MustCompile(`(?i)!(low|medium|high|urgent)\b`)
	dueMarker      = regexp.MustCompile(`due:(\d{4}-\d{2}-\d{2})`)
	dueToken       = regexp.MustCompile(`due:\S+`)
	tagMarker      = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)
	userMarkup     = regexp.MustCompile(`<@[!&]?\w+(\|[^>]*)?>`)

	validate = validator.New()
)

// Tasks is the subset of the task service ingestion writes through.
type Tasks interface {
	ListTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error)
	CreateTask(ctx context.Context, task *domain.Task) (*domain.Task, error)
}

// UseCase turns mentions into manual tasks, at most once per message.
type UseCase struct {
	tasks    Tasks
	keys     repository.KeyStore
	titleMax int
	group    singleflight.Group
	logger   *zap.Logger
}

type Option func(*UseCase)

// WithKeyStore shares idempotency keys between instances.
func WithKeyStore(keys repository.KeyStore) Option {
	return func(uc *UseCase) { uc.keys = keys }
}

func WithTitleMax(n int) Option {
	return func(uc *UseCase) {
		if n > 1 {
			uc.titleMax = n
		}
	}
}

func New(tasks Tasks, logger *zap.Logger, opts ...Option) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	uc := &UseCase{
		tasks:    tasks,
		titleMax: defaultTitleMax,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

type outcome struct {
	task    domain.Task
	created bool
}

// Ingest returns the task derived from m. created is false when the message
// was already ingested, in which case the existing task is returned unchanged.
func (uc *UseCase) Ingest(ctx context.Context, m domain.Mention) (domain.Task, bool, error) {
	if err := validate.Struct(m); err != nil {
		return domain.Task{}, false, domain.WrapError(domain.ErrCodeInvalid, "invalid mention", err)
	}
	key := m.IdempotencyKey()

	leader := false
	v, err, _ := uc.group.Do(key, func() (interface{}, error) {
		leader = true
		return uc.ingest(ctx, key, m)
	})
	if err != nil {
		return domain.Task{}, false, err
	}
	res := v.(outcome)
	return res.task.Clone(), res.created && leader, nil
}

func (uc *UseCase) ingest(ctx context.Context, key string, m domain.Mention) (outcome, error) {
	logger := uc.logger.With(zap.String("idempotency_key", key))

	existing, err := uc.findLocal(ctx, key)
	if err != nil {
		return outcome{}, err
	}
	if existing != nil {
		logger.Info("mention already ingested", zap.String("task_id", string(existing.ID)))
		return outcome{task: *existing}, nil
	}

	if uc.keys != nil {
		shared, err := uc.keys.Lookup(ctx, key)
		if err != nil {
			return outcome{}, err
		}
		if shared != nil {
			logger.Info("mention ingested by another instance", zap.String("task_id", string(shared.ID)))
			return outcome{task: *shared}, nil
		}
	}

	draft := uc.draft(m, key)
	created, err := uc.tasks.CreateTask(ctx, &draft)
	if err != nil {
		logger.Error("mention task creation failed", zap.Error(err))
		return outcome{}, err
	}

	if uc.keys != nil {
		if err := uc.keys.Remember(ctx, key, *created); err != nil {
			logger.Warn("idempotency key not shared", zap.Error(err))
		}
	}
	logger.Info("mention ingested",
		zap.String("task_id", string(created.ID)),
		zap.String("origin", string(m.Origin)))
	return outcome{task: *created, created: true}, nil
}

func (uc *UseCase) findLocal(ctx context.Context, key string) (*domain.Task, error) {
	tasks, err := uc.tasks.ListTasks(ctx, domain.TaskFilter{})
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].Metadata[domain.MetaIdempotencyKey] == key {
			return &tasks[i], nil
		}
	}
	return nil, nil
}

func (uc *UseCase) draft(m domain.Mention, key string) domain.Task {
	details := Parse(m.RawText, uc.titleMax)
	meta := map[string]string{
		domain.MetaIdempotencyKey: key,
		domain.MetaAuthor:         m.Author,
		domain.MetaOrigin:         string(m.Origin),
		domain.MetaMessageID:      m.MessageID,
	}
	if m.ChannelID != "" {
		meta[domain.MetaChannelID] = m.ChannelID
	}
	if m.Permalink != "" {
		meta[domain.MetaPermalink] = m.Permalink
	}
	task := domain.Task{
		Title:       details.Title,
		Status:      domain.StatusTodo,
		Priority:    details.Priority,
		Source:      domain.SourceManual,
		DueDate:     details.DueDate,
		Tags:        details.Tags,
		Description: m.RawText,
		Metadata:    meta,
	}
	if !m.Timestamp.IsZero() {
		task.CreatedAt = m.Timestamp.UTC()
	}
	return task
}

// Details are the task fields recovered from a mention's text.
type Details struct {
	Title    string
	Priority domain.Priority
	DueDate  *time.Time
	Tags     []string
}

// Parse extracts inline markers from text: !priority, due:YYYY-MM-DD and
// #tag. The remaining text, without user markup, becomes the title.
func Parse(text string, titleMax int) Details {
	if titleMax <= 1 {
		titleMax = defaultTitleMax
	}
	details := Details{Priority: domain.PriorityMedium}

	if match := priorityMarker.FindStringSubmatch(text); match != nil {
		details.Priority = domain.Priority(strings.ToLower(match[1]))
	}
	if match := dueMarker.FindStringSubmatch(text); match != nil {
		if due, err := time.Parse("2006-01-02", match[1]); err == nil {
			details.DueDate = &due
		}
	}
	var tags []string
	for _, match := range tagMarker.FindAllStringSubmatch(text, -1) {
		tags = append(tags, match[1])
	}
	details.Tags = domain.NormalizeTags(tags)

	title := userMarkup.ReplaceAllString(text, " ")
	title = priorityMarker.ReplaceAllString(title, " ")
	title = dueToken.ReplaceAllString(title, " ")
	title = tagMarker.ReplaceAllString(title, " ")
	title = strings.Join(strings.Fields(title), " ")
	details.Title = truncate(title, titleMax)
	if details.Title == "" {
		details.Title = fallbackTitle
	}
	return details
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}
