package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/infrastructure/metrics"
	"NewsAggregator/internal/infrastructure/storage"
	"NewsAggregator/internal/usecase"
)

type fakeTrigger struct {
	report usecase.Report
	err    error
}

func (f *fakeTrigger) TryRunCycle(context.Context) (usecase.Report, error) {
	return f.report, f.err
}

type fixture struct {
	handler  http.Handler
	articles *usecase.ArticleService
	trigger  *fakeTrigger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	opts := storage.Options{Debounce: time.Hour}
	articleRepo := storage.NewArticleRepository(filepath.Join(dir, "articles.json"), opts)
	sourceRepo := storage.NewSourceRepository(filepath.Join(dir, "sources.json"), []domain.Source{
		{Name: "Default", URL: "https://default.example.com/rss"},
	}, opts)
	t.Cleanup(func() {
		_ = articleRepo.Close()
		_ = sourceRepo.Close()
	})

	f := &fixture{
		articles: usecase.NewArticleService(articleRepo, nil),
		trigger:  &fakeTrigger{},
	}
	f.handler = NewServer(Deps{
		Articles: f.articles,
		Sources:  usecase.NewSourceService(sourceRepo),
		Fetch:    f.trigger,
		Metrics:  metrics.New(),
	}).Handler()
	return f
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestArticleEndpoints(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/articles", `{"title":"Hello","url":"https://example.com/hello","source":"Manual"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[articleResponse](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Hello", created.Title)

	rec = f.do(t, http.MethodPost, "/api/articles", `{"title":"Again","url":"https://example.com/hello","source":"Manual"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/articles", `{"title":"","url":"nope","source":"Manual"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	verr := decode[errorResponse](t, rec)
	assert.Contains(t, verr.Fields, "title")
	assert.Contains(t, verr.Fields, "url")

	rec = f.do(t, http.MethodPost, "/api/articles", `{broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/articles/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[articleResponse](t, rec).ID)

	rec = f.do(t, http.MethodGet, "/api/articles/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/articles/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodDelete, "/api/articles/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListArticlesPaginates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	for i := range 15 {
		_, err := f.articles.Add(context.Background(), usecase.AddArticleInput{
			Title:  fmt.Sprintf("t%d", i),
			URL:    fmt.Sprintf("https://example.com/%d", i),
			Source: "Manual",
		})
		require.NoError(t, err)
	}

	rec := f.do(t, http.MethodGet, "/api/articles", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[pageResponse](t, rec)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, 15, page.Total)
	assert.Equal(t, 2, page.TotalPages)

	rec = f.do(t, http.MethodGet, "/api/articles?page=2&pageSize=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[pageResponse](t, rec).Items, 5)

	rec = f.do(t, http.MethodGet, "/api/articles?page=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSourceEndpoints(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/sources", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]sourceResponse](t, rec), 1)

	rec = f.do(t, http.MethodPost, "/api/sources", `{"name":"New","url":"https://new.example.com/rss"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[sourceResponse](t, rec)

	rec = f.do(t, http.MethodPost, "/api/sources", `{"name":"Dup","url":"https://new.example.com/rss"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/sources", `{"name":"Bad","url":"ftp://new.example.com/rss"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/sources/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodDelete, "/api/sources/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFetchEndpoint(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.trigger.report = usecase.Report{Sources: 1, Fetched: 3, Considered: 3, Added: 2, Duplicates: 1}
	rec := f.do(t, http.MethodPost, "/api/fetch", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, f.trigger.report, decode[usecase.Report](t, rec))

	f.trigger.err = usecase.ErrCycleRunning
	rec = f.do(t, http.MethodPost, "/api/fetch", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthMetricsAndCORS(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	req := httptest.NewRequest(http.MethodGet, "/api/sources", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	out := httptest.NewRecorder()
	f.handler.ServeHTTP(out, req)
	assert.Equal(t, "*", out.Header().Get("Access-Control-Allow-Origin"))

	rec = f.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
