package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/common"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/models"
	"github.com/ternarybob/gleaner/internal/services/auth"
	"github.com/ternarybob/gleaner/internal/services/cache"
	"github.com/ternarybob/gleaner/internal/services/scheduler"
	"github.com/ternarybob/gleaner/internal/storage/file"
)

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, query string, count int) ([]models.DetailRecord, error) {
	args := m.Called(ctx, query, count)
	records, _ := args.Get(0).([]models.DetailRecord)
	return records, args.Error(1)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestSearchHandler_Get(t *testing.T) {
	service := new(MockSearchService)
	service.On("Search", mock.Anything, "coffee", 2).Return([]models.DetailRecord{
		{Title: "Pour over", Link: "https://site.test/explore/1", Content: "Bloom for 30s"},
		models.NewDegradedRecord(models.LinkReference{URL: "https://site.test/explore/2", Title: "stub"}),
	}, nil)

	handler := NewSearchHandler(service, arbor.NewLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/search?q=%20coffee%20&count=2", nil)
	rec := httptest.NewRecorder()
	handler.SearchHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var response SearchResponse
	decodeBody(t, rec, &response)
	assert.Equal(t, "coffee", response.Query)
	assert.Equal(t, 2, response.Count)
	assert.Equal(t, 1, response.Degraded)
	assert.Equal(t, "Pour over", response.Results[0].Title)
	service.AssertExpectations(t)
}

func TestSearchHandler_PostDefaultsCount(t *testing.T) {
	service := new(MockSearchService)
	service.On("Search", mock.Anything, "tea", models.DefaultSearchCount).Return([]models.DetailRecord{}, nil)

	handler := NewSearchHandler(service, arbor.NewLogger())
	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"tea"}`))
	rec := httptest.NewRecorder()
	handler.SearchHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var response SearchResponse
	decodeBody(t, rec, &response)
	assert.Zero(t, response.Count)
	assert.NotNil(t, response.Results)
	service.AssertExpectations(t)
}

func TestSearchHandler_RejectsBadRequests(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{name: "missing query", method: http.MethodGet, target: "/api/search", status: http.StatusBadRequest},
		{name: "non-numeric count", method: http.MethodGet, target: "/api/search?q=tea&count=many", status: http.StatusBadRequest},
		{name: "count too large", method: http.MethodGet, target: fmt.Sprintf("/api/search?q=tea&count=%d", models.MaxSearchCount+1), status: http.StatusBadRequest},
		{name: "negative count", method: http.MethodGet, target: "/api/search?q=tea&count=-1", status: http.StatusBadRequest},
		{name: "malformed body", method: http.MethodPost, target: "/api/search", body: "{", status: http.StatusBadRequest},
		{name: "wrong method", method: http.MethodDelete, target: "/api/search?q=tea", status: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockSearchService)
			handler := NewSearchHandler(service, arbor.NewLogger())

			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.SearchHandler(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			service.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSearchHandler_SessionUnavailable(t *testing.T) {
	service := new(MockSearchService)
	service.On("Search", mock.Anything, "coffee", 3).
		Return(nil, fmt.Errorf("%w: login timed out", interfaces.ErrSessionUnavailable))

	handler := NewSearchHandler(service, arbor.NewLogger())
	rec := httptest.NewRecorder()
	handler.SearchHandler(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=coffee&count=3", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSearchHandler_InternalError(t *testing.T) {
	service := new(MockSearchService)
	service.On("Search", mock.Anything, "coffee", 3).Return(nil, errors.New("browser crashed"))

	handler := NewSearchHandler(service, arbor.NewLogger())
	rec := httptest.NewRecorder()
	handler.SearchHandler(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=coffee&count=3", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func newTestCache(t *testing.T) *cache.Service {
	t.Helper()
	logger := arbor.NewLogger()
	storage := file.NewCacheStorage(filepath.Join(t.TempDir(), "search-cache.json"), logger)
	return cache.NewService(storage, &common.CacheConfig{Enabled: true, TTL: "336h"}, logger)
}

func TestCacheHandler(t *testing.T) {
	cacheService := newTestCache(t)
	ctx := context.Background()
	cacheService.Set(ctx, "coffee", 2, []models.DetailRecord{{Title: "a"}, {Title: "b"}})
	cacheService.Set(ctx, "tea", 1, []models.DetailRecord{{Title: "c"}})

	handler := NewCacheHandler(cacheService, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.StatsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.CacheStats
	decodeBody(t, rec, &stats)
	assert.Equal(t, 2, stats.Total)

	rec = httptest.NewRecorder()
	handler.SweepHandler(rec, httptest.NewRequest(http.MethodPost, "/api/cache/sweep", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var sweep map[string]interface{}
	decodeBody(t, rec, &sweep)
	assert.Equal(t, float64(0), sweep["removed"])

	rec = httptest.NewRecorder()
	handler.ClearHandler(rec, httptest.NewRequest(http.MethodGet, "/api/cache/clear", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	handler.ClearHandler(rec, httptest.NewRequest(http.MethodPost, "/api/cache/clear", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, cacheService.Stats(ctx).Total)
}

func newTestAuthHandler(t *testing.T) (*AuthHandler, interfaces.SessionStorage) {
	t.Helper()
	config := common.NewDefaultConfig()
	logger := arbor.NewLogger()
	storage := file.NewSessionStorage(filepath.Join(t.TempDir(), "cookies.json"), logger)
	session := auth.NewService(&config.Session, config.Site, storage, logger, auth.NewStorageProvider(storage))
	return NewAuthHandler(session, storage, logger), storage
}

func TestAuthHandler_ImportStatusAndLogout(t *testing.T) {
	handler, storage := newTestAuthHandler(t)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	handler.GetSessionStatusHandler(rec, httptest.NewRequest(http.MethodGet, "/api/session/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status SessionStatus
	decodeBody(t, rec, &status)
	assert.Equal(t, models.SessionStateUnauthenticated, status.State)
	assert.False(t, status.Stored)

	body := `[{"name":"web_session","value":"abc","domain":".site.test","path":"/","expires":-1},
{"name":"old","value":"x","domain":".site.test","path":"/","expires":1000},
{"name":"","value":"dropped","domain":".site.test"}]`
	rec = httptest.NewRecorder()
	handler.ImportSessionHandler(rec, httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	cookies, found, err := storage.LoadCookies(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, cookies, 2)

	rec = httptest.NewRecorder()
	handler.GetSessionStatusHandler(rec, httptest.NewRequest(http.MethodGet, "/api/session/status", nil))
	decodeBody(t, rec, &status)
	assert.True(t, status.Stored)
	assert.Equal(t, 2, status.StoredCookies)
	assert.Equal(t, 1, status.Expired)

	rec = httptest.NewRecorder()
	handler.LogoutHandler(rec, httptest.NewRequest(http.MethodDelete, "/api/session", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	_, found, err = storage.LoadCookies(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAuthHandler_ImportRejectsUnusableBody(t *testing.T) {
	handler, _ := newTestAuthHandler(t)

	for _, body := range []string{"not json", `{"name":"x"}`, `[]`, `[{"name":"x","value":"y"}]`} {
		rec := httptest.NewRecorder()
		handler.ImportSessionHandler(rec, httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestSchedulerHandler(t *testing.T) {
	service := scheduler.NewService(arbor.NewLogger())
	runs := 0
	require.NoError(t, service.RegisterJob("cache_sweep", "0 0 * * * *", "Remove expired cache entries", func() error {
		runs++
		return nil
	}))

	handler := NewSchedulerHandler(service)

	rec := httptest.NewRecorder()
	handler.TriggerJobHandler(rec, httptest.NewRequest(http.MethodPost, "/api/scheduler/trigger?name=cache_sweep", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, runs)

	rec = httptest.NewRecorder()
	handler.TriggerJobHandler(rec, httptest.NewRequest(http.MethodPost, "/api/scheduler/trigger?name=missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	handler.ListJobsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/scheduler/jobs", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Running bool                    `json:"running"`
		Jobs    []*interfaces.JobStatus `json:"jobs"`
	}
	decodeBody(t, rec, &response)
	assert.False(t, response.Running)
	require.Len(t, response.Jobs, 1)
	assert.Equal(t, "cache_sweep", response.Jobs[0].Name)
	assert.NotNil(t, response.Jobs[0].LastRun)
}
