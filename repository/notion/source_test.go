package notion

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/config"
)

type call struct {
	method string
	path   string
	body   []byte
	auth   string
}

type reply struct {
	status int
	body   interface{}
	err    error
}

// fakeNotion answers requests through handler and records every call.
type fakeNotion struct {
	mu      sync.Mutex
	calls   []call
	handler func(c call) reply
}

func (f *fakeNotion) DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, _ time.Duration) error {
	c := call{
		method: string(req.Header.Method()),
		path:   strings.TrimPrefix(string(req.URI().Path()), "/v1"),
		body:   append([]byte(nil), req.Body()...),
		auth:   string(req.Header.Peek("Authorization")),
	}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	r := f.handler(c)
	if r.err != nil {
		return r.err
	}
	resp.SetStatusCode(r.status)
	if r.body != nil {
		payload, _ := json.Marshal(r.body)
		resp.SetBody(payload)
	}
	return nil
}

func (f *fakeNotion) recorded() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func newTestSource(t *testing.T, handler func(c call) reply) (*fakeNotion, *source) {
	t.Helper()
	fake := &fakeNotion{handler: handler}
	cfg := config.NotionConfig{
		APIKey:     "secret_test",
		APIVersion: "2022-06-28",
		BaseURL:    "https://api.notion.test/v1/",
		PageSize:   2,
	}
	src, err := NewSource(domain.SourceTeam, cfg, config.NotionDatabase{DatabaseID: "db-team", Schema: testSchema()}, fake, nil)
	require.NoError(t, err)
	return fake, src.(*source)
}

func pageOf(t *testing.T, id, title string) Page {
	t.Helper()
	m, err := NewMapper(domain.SourceTeam, testSchema())
	require.NoError(t, err)
	task := fullTask()
	task.ID = domain.TaskID(id)
	task.Title = title
	page := m.FromTask(task)
	page.Parent = Parent{Type: "database_id", DatabaseID: "db-team"}
	return page
}

func TestListPaginates(t *testing.T) {
	next := "cursor-2"
	fake, src := newTestSource(t, func(c call) reply {
		var q queryRequest
		_ = json.Unmarshal(c.body, &q)
		if q.StartCursor == "" {
			return reply{status: 200, body: queryResponse{
				Results:    []Page{pageOf(t, "a", "First"), pageOf(t, "b", "Second")},
				HasMore:    true,
				NextCursor: &next,
			}}
		}
		return reply{status: 200, body: queryResponse{Results: []Page{pageOf(t, "c", "Third")}}}
	})

	tasks, err := src.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, domain.TaskID("c"), tasks[2].ID)
	assert.Equal(t, domain.SourceTeam, tasks[0].Source)

	calls := fake.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, fasthttp.MethodPost, calls[0].method)
	assert.Equal(t, "/databases/db-team/query", calls[0].path)
	assert.Equal(t, "Bearer secret_test", calls[0].auth)
	assert.Contains(t, string(calls[1].body), `"start_cursor":"cursor-2"`)
	assert.Contains(t, string(calls[0].body), `"page_size":2`)
}

func TestListFailsWholeOnOneBadPage(t *testing.T) {
	_, src := newTestSource(t, func(c call) reply {
		bad := pageOf(t, "bad", "Broken")
		bad.Properties["Status"] = Property{Type: TypeStatus, Status: &Option{Name: "Someday"}}
		return reply{status: 200, body: queryResponse{Results: []Page{pageOf(t, "ok", "Fine"), bad}}}
	})

	tasks, err := src.List(context.Background())
	assert.Nil(t, tasks)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeMapping))
	assert.Contains(t, err.Error(), "bad")
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name  string
		reply reply
		code  domain.ErrorCode
	}{
		{"transport", reply{err: errors.New("dial tcp: connection refused")}, domain.ErrCodeRemoteUnavailable},
		{"unauthorized", reply{status: 401, body: apiError{Code: "unauthorized", Message: "API token is invalid."}}, domain.ErrCodeRemoteUnavailable},
		{"rate limited", reply{status: 429}, domain.ErrCodeRemoteUnavailable},
		{"server error", reply{status: 503}, domain.ErrCodeRemoteUnavailable},
		{"not found", reply{status: 404}, domain.ErrCodeNotFound},
		{"validation", reply{status: 400, body: apiError{Code: "validation_error", Message: "bad"}}, domain.ErrCodeInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, src := newTestSource(t, func(call) reply { return tt.reply })
			_, err := src.Get(context.Background(), "p1")
			assert.True(t, domain.IsDomainError(err, tt.code), err)
		})
	}
}

func TestCanceledContextIsNotSent(t *testing.T) {
	fake, src := newTestSource(t, func(call) reply { return reply{status: 200} })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.List(ctx)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeRemoteUnavailable))
	assert.Empty(t, fake.recorded())
}

func TestCreateSendsWritableProperties(t *testing.T) {
	fake, src := newTestSource(t, func(c call) reply {
		return reply{status: 200, body: pageOf(t, "new-page", "Ship release")}
	})

	task := fullTask()
	task.ID = ""
	created, err := src.Create(context.Background(), &task)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskID("new-page"), created.ID)

	calls := fake.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "/pages", calls[0].path)

	var body map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(calls[0].body, &body))
	assert.JSONEq(t, `"db-team"`, string(body["parent"]["database_id"]))
	assert.NotContains(t, body["properties"], "Created", "created time is read-only")
	assert.Contains(t, body["properties"], "Status")
}

func TestUpdateSendsOnlyPatchedProperties(t *testing.T) {
	fake, src := newTestSource(t, func(c call) reply {
		return reply{status: 200, body: pageOf(t, "p1", "Renamed")}
	})

	title := "Renamed"
	updated, err := src.Update(context.Background(), "p1", domain.TaskPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	calls := fake.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, fasthttp.MethodPatch, calls[0].method)
	assert.Equal(t, "/pages/p1", calls[0].path)

	var body struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(calls[0].body, &body))
	assert.Len(t, body.Properties, 1)
	assert.Contains(t, body.Properties, "Name")
}

func TestDeleteArchivesPage(t *testing.T) {
	fake, src := newTestSource(t, func(c call) reply {
		return reply{status: 200, body: pageOf(t, "p1", "Gone soon")}
	})

	require.NoError(t, src.Delete(context.Background(), "p1"))
	calls := fake.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, fasthttp.MethodGet, calls[0].method)
	assert.Equal(t, fasthttp.MethodPatch, calls[1].method)
	assert.JSONEq(t, `{"archived":true}`, string(calls[1].body))
}

func TestGetTreatsArchivedAndForeignPagesAsMissing(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Page)
	}{
		{"archived", func(p *Page) { p.Archived = true }},
		{"other database", func(p *Page) { p.Parent.DatabaseID = "db-elsewhere" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, src := newTestSource(t, func(call) reply {
				page := pageOf(t, "p1", "x")
				tt.mutate(&page)
				return reply{status: 200, body: page}
			})
			_, err := src.Get(context.Background(), "p1")
			assert.ErrorIs(t, err, domain.ErrTaskNotFound)
		})
	}
}

func TestNewSourceRequiresDatabase(t *testing.T) {
	_, err := NewSource(domain.SourceTeam, config.NotionConfig{}, config.NotionDatabase{Schema: testSchema()}, nil, nil)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
	_, err = NewSource(domain.SourceManual, config.NotionConfig{}, config.NotionDatabase{DatabaseID: "x", Schema: testSchema()}, nil, nil)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
}
