package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/config"
	"github.com/fastygo/taskhub/repository"
)

// Doer is the part of fasthttp.Client the source depends on.
type Doer interface {
	DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error
}

type source struct {
	kind       domain.Source
	client     Doer
	mapper     *Mapper
	baseURL    string
	apiKey     string
	version    string
	databaseID string
	pageSize   int
	timeout    time.Duration
	logger     *zap.Logger
}

// NewSource returns a TaskSource backed by one Notion database.
func NewSource(kind domain.Source, cfg config.NotionConfig, db config.NotionDatabase, client Doer, logger *zap.Logger) (repository.TaskSource, error) {
	if !kind.Remote() {
		return nil, domain.NewError(domain.ErrCodeInvalid, fmt.Sprintf("%s is not a remote source", kind))
	}
	if db.DatabaseID == "" {
		return nil, domain.NewError(domain.ErrCodeInvalid, fmt.Sprintf("%s database id is not configured", kind))
	}
	mapper, err := NewMapper(kind, db.Schema)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = &fasthttp.Client{
			Name:                     "taskhub",
			MaxIdleConnDuration:      time.Minute,
			NoDefaultUserAgentHeader: true,
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageSize <= 0 || cfg.PageSize > 100 {
		cfg.PageSize = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &source{
		kind:       kind,
		client:     client,
		mapper:     mapper,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		version:    cfg.APIVersion,
		databaseID: db.DatabaseID,
		pageSize:   cfg.PageSize,
		timeout:    cfg.Timeout,
		logger:     logger.With(zap.String("source", string(kind))),
	}, nil
}

func (s *source) Kind() domain.Source { return s.kind }

func (s *source) List(ctx context.Context) ([]domain.Task, error) {
	var (
		tasks  []domain.Task
		cursor string
		pages  int
	)
	for {
		body := queryRequest{
			PageSize:    s.pageSize,
			StartCursor: cursor,
			Sorts:       []querySort{{Timestamp: "created_time", Direction: "descending"}},
		}
		var resp queryResponse
		if err := s.do(ctx, fasthttp.MethodPost, "/databases/"+s.databaseID+"/query", body, &resp); err != nil {
			return nil, err
		}
		pages++

		for _, page := range resp.Results {
			task, err := s.mapper.ToTask(page)
			if err != nil {
				return nil, domain.WrapError(domain.ErrCodeMapping, fmt.Sprintf("%s page %s", s.kind, page.ID), err)
			}
			tasks = append(tasks, task)
		}

		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			break
		}
		cursor = *resp.NextCursor
	}

	s.logger.Debug("listed notion database", zap.Int("tasks", len(tasks)), zap.Int("pages", pages))
	return tasks, nil
}

func (s *source) Get(ctx context.Context, id domain.TaskID) (*domain.Task, error) {
	page, err := s.getPage(ctx, id)
	if err != nil {
		return nil, err
	}
	task, err := s.mapper.ToTask(*page)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *source) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	page := s.mapper.FromTask(*task)
	body := createRequest{
		Parent:     Parent{DatabaseID: s.databaseID},
		Properties: writable(page.Properties),
	}

	var created Page
	if err := s.do(ctx, fasthttp.MethodPost, "/pages", body, &created); err != nil {
		return nil, err
	}
	out, err := s.mapper.ToTask(created)
	if err != nil {
		return nil, err
	}
	s.logger.Info("notion page created", zap.String("task_id", string(out.ID)))
	return &out, nil
}

func (s *source) Update(ctx context.Context, id domain.TaskID, patch domain.TaskPatch) (*domain.Task, error) {
	if patch.IsEmpty() {
		return s.Get(ctx, id)
	}
	props, err := s.mapper.PatchProperties(patch)
	if err != nil {
		return nil, err
	}

	var updated Page
	if err := s.do(ctx, fasthttp.MethodPatch, "/pages/"+string(id), updateRequest{Properties: props}, &updated); err != nil {
		return nil, err
	}
	out, err := s.mapper.ToTask(updated)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete archives the page; Notion has no hard delete for database rows.
func (s *source) Delete(ctx context.Context, id domain.TaskID) error {
	if _, err := s.getPage(ctx, id); err != nil {
		return err
	}
	archived := true
	if err := s.do(ctx, fasthttp.MethodPatch, "/pages/"+string(id), updateRequest{Archived: &archived}, nil); err != nil {
		return err
	}
	s.logger.Info("notion page archived", zap.String("task_id", string(id)))
	return nil
}

func (s *source) getPage(ctx context.Context, id domain.TaskID) (*Page, error) {
	if id == "" {
		return nil, domain.ErrTaskNotFound
	}
	var page Page
	if err := s.do(ctx, fasthttp.MethodGet, "/pages/"+string(id), nil, &page); err != nil {
		return nil, err
	}
	if page.Archived {
		return nil, domain.ErrTaskNotFound
	}
	if page.Parent.DatabaseID != "" && !sameID(page.Parent.DatabaseID, s.databaseID) {
		return nil, domain.ErrTaskNotFound
	}
	return &page, nil
}

func (s *source) do(ctx context.Context, method, path string, body, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return domain.RemoteUnavailable("notion request not sent", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Notion-Version", s.version)
	req.Header.SetContentType("application/json")
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return domain.WrapError(domain.ErrCodeInternal, "encode notion request", err)
		}
		req.SetBodyRaw(payload)
	}

	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	if err := s.client.DoTimeout(req, resp, timeout); err != nil {
		return domain.RemoteUnavailable(fmt.Sprintf("notion %s %s failed", method, path), err)
	}

	if err := classify(resp.StatusCode(), resp.Body()); err != nil {
		if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			s.logger.Warn("notion request rejected",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("status", resp.StatusCode()),
				zap.Error(err))
		}
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return domain.RemoteUnavailable("decode notion response", err)
	}
	return nil
}

// classify maps an HTTP status onto the error taxonomy.
func classify(status int, body []byte) error {
	if status < 300 {
		return nil
	}
	apiErr := &apiError{Status: status}
	_ = json.Unmarshal(body, apiErr)

	switch {
	case status == fasthttp.StatusNotFound:
		return domain.ErrTaskNotFound
	case status == fasthttp.StatusUnauthorized,
		status == fasthttp.StatusForbidden,
		status == fasthttp.StatusTooManyRequests,
		status >= 500:
		return domain.RemoteUnavailable(fmt.Sprintf("notion returned %d", status), apiErr)
	default:
		return domain.WrapError(domain.ErrCodeInvalid, fmt.Sprintf("notion returned %d", status), apiErr)
	}
}
