package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"todolist/internal/config"
	"todolist/internal/database"
	"todolist/internal/domain"
	"todolist/internal/limiter"
	"todolist/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const internalErrorBody = `{"error":"Internal Server Error"}`

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListTodos(ctx context.Context) ([]models.Todo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Todo), args.Error(1)
}

func (m *mockStore) CreateTodo(ctx context.Context, title string) (*models.Todo, error) {
	args := m.Called(ctx, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Todo), args.Error(1)
}

func (m *mockStore) DeleteTodo(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) PingContext(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type errLimiter struct{}

func (errLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	cfg := config.DatabaseConfig{Driver: models.DriverSQLite, Path: filepath.Join(t.TempDir(), "test.db")}
	db, err := database.Open(context.Background(), cfg, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testAPIConfig() *config.APIConfig {
	return &config.APIConfig{
		HTTP: config.APIHTTPConfig{Port: 0},
		CORS: config.APICORSConfig{AllowedOrigins: []string{"*"}},
	}
}

func newTestServer(t *testing.T, store domain.TodoStore) *httptest.Server {
	t.Helper()
	logger := zerolog.New(io.Discard)
	server := NewHTTPServer(testAPIConfig(), store, nil, &logger)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, strings.TrimSpace(string(raw))
}

func listTodos(t *testing.T, baseURL string) []models.Todo {
	t.Helper()
	resp, body := doRequest(t, http.MethodGet, baseURL+"/todos", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var todos []models.Todo
	require.NoError(t, json.Unmarshal([]byte(body), &todos))
	return todos
}

func createTodo(t *testing.T, baseURL, title string) models.Todo {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"title": title})
	require.NoError(t, err)
	resp, body := doRequest(t, http.MethodPost, baseURL+"/todos", string(payload))
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	var todo models.Todo
	require.NoError(t, json.Unmarshal([]byte(body), &todo))
	return todo
}

func TestListTodos_Empty(t *testing.T) {
	ts := newTestServer(t, newTestDB(t))

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/todos", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "[]", body)
}

func TestTodoRoundTrip(t *testing.T) {
	ts := newTestServer(t, newTestDB(t))

	created := createTodo(t, ts.URL, "Buy milk")
	assert.Positive(t, created.ID)
	assert.Equal(t, "Buy milk", created.Title)

	assert.Contains(t, listTodos(t, ts.URL), created)

	resp, body := doRequest(t, http.MethodDelete, fmt.Sprintf("%s/todos/%d", ts.URL, created.ID), "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, body)

	assert.NotContains(t, listTodos(t, ts.URL), created)
}

func TestListTodos_AscendingAfterDeletes(t *testing.T) {
	ts := newTestServer(t, newTestDB(t))

	a := createTodo(t, ts.URL, "A")
	b := createTodo(t, ts.URL, "B")
	c := createTodo(t, ts.URL, "C")

	resp, _ := doRequest(t, http.MethodDelete, fmt.Sprintf("%s/todos/%d", ts.URL, b.ID), "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	d := createTodo(t, ts.URL, "D")

	assert.Equal(t, []models.Todo{a, c, d}, listTodos(t, ts.URL))
}

func TestCreateTodo_TitleRequired(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing title", body: `{}`},
		{name: "empty title", body: `{"title":""}`},
		{name: "null title", body: `{"title":null}`},
		{name: "empty body", body: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, newTestDB(t))

			resp, body := doRequest(t, http.MethodPost, ts.URL+"/todos", tt.body)
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.Equal(t, internalErrorBody, body)

			assert.Empty(t, listTodos(t, ts.URL))
		})
	}
}

func TestCreateTodo_BadJSON(t *testing.T) {
	ts := newTestServer(t, newTestDB(t))

	for _, body := range []string{`{"title":`, `["x"]`, `{"name":"x"}`} {
		resp, got := doRequest(t, http.MethodPost, ts.URL+"/todos", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.JSONEq(t, `{"error":"invalid JSON body"}`, got)
	}
	assert.Empty(t, listTodos(t, ts.URL))
}

func TestDeleteTodo_Missing(t *testing.T) {
	ts := newTestServer(t, newTestDB(t))

	resp, body := doRequest(t, http.MethodDelete, ts.URL+"/todos/999999", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, body)
}

func TestDeleteTodo_InvalidID(t *testing.T) {
	ts := newTestServer(t, newTestDB(t))

	for _, id := range []string{"abc", "1.5", "99999999999999999999"} {
		resp, body := doRequest(t, http.MethodDelete, ts.URL+"/todos/"+id, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, id)
		assert.JSONEq(t, `{"error":"invalid id"}`, body)
	}
}

func TestConcurrentCreates(t *testing.T) {
	ts := newTestServer(t, newTestDB(t))

	const n = 50
	var wg sync.WaitGroup
	ids := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := fmt.Sprintf(`{"title":"todo %d"}`, i)
			resp, err := http.Post(ts.URL+"/todos", "application/json", strings.NewReader(payload))
			if err != nil {
				t.Errorf("request %d failed: %v", i, err)
				return
			}
			defer resp.Body.Close()
			var todo models.Todo
			if resp.StatusCode != http.StatusCreated || json.NewDecoder(resp.Body).Decode(&todo) != nil {
				t.Errorf("request %d: status %d", i, resp.StatusCode)
				return
			}
			ids <- todo.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]struct{})
	for id := range ids {
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
	assert.Len(t, listTodos(t, ts.URL), n)
}

func TestStorageFailures(t *testing.T) {
	store := new(mockStore)
	store.On("ListTodos", mock.Anything).Return(nil, errors.New("connection reset"))
	store.On("CreateTodo", mock.Anything, "x").Return(nil, errors.New("connection reset"))
	store.On("DeleteTodo", mock.Anything, int64(1)).Return(errors.New("connection reset"))
	ts := newTestServer(t, store)

	cases := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/todos", ""},
		{http.MethodPost, "/todos", `{"title":"x"}`},
		{http.MethodDelete, "/todos/1", ""},
	}
	for _, c := range cases {
		resp, body := doRequest(t, c.method, ts.URL+c.path, c.body)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, c.method)
		assert.Equal(t, internalErrorBody, body, "cause must not leak")
	}
	store.AssertExpectations(t)
}

func TestPanicRecovered(t *testing.T) {
	store := new(mockStore)
	store.On("ListTodos", mock.Anything).Run(func(mock.Arguments) { panic("boom") })
	ts := newTestServer(t, store)

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/todos", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, internalErrorBody, body)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, newTestDB(t))

	resp, _ := doRequest(t, http.MethodGet, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadyz(t *testing.T) {
	ts := newTestServer(t, newTestDB(t))

	resp, _ := doRequest(t, http.MethodGet, ts.URL+"/readyz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadyz_DBFail(t *testing.T) {
	db := newTestDB(t)
	db.Close()
	ts := newTestServer(t, db)

	resp, _ := doRequest(t, http.MethodGet, ts.URL+"/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, newTestDB(t))

	resp, _ := doRequest(t, http.MethodOptions, ts.URL+"/todos", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "DELETE")

	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/todos", "")
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORS_AllowList(t *testing.T) {
	cfg := testAPIConfig()
	cfg.CORS.AllowedOrigins = []string{"http://app.example"}
	logger := zerolog.New(io.Discard)
	ts := httptest.NewServer(NewHTTPServer(cfg, newTestDB(t), nil, &logger).Handler())
	t.Cleanup(ts.Close)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/todos", http.NoBody)
	req.Header.Set("Origin", "http://app.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://app.example", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://other.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	logger := zerolog.New(io.Discard)
	server := NewHTTPServer(testAPIConfig(), newTestDB(t), limiter.NewMemoryLimiter(0.001, 1), &logger)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	resp1, _ := doRequest(t, http.MethodGet, ts.URL+"/todos", "")
	assert.Equal(t, http.StatusOK, resp1.StatusCode)

	resp2, body := doRequest(t, http.MethodGet, ts.URL+"/todos", "")
	assert.Equal(t, http.StatusTooManyRequests, resp2.StatusCode)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, body)
}

func TestRateLimit_FailOpen(t *testing.T) {
	logger := zerolog.New(io.Discard)
	server := NewHTTPServer(testAPIConfig(), newTestDB(t), errLimiter{}, &logger)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	resp, _ := doRequest(t, http.MethodGet, ts.URL+"/todos", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequestID(t *testing.T) {
	ts := newTestServer(t, newTestDB(t))

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", http.NoBody)
	req.Header.Set("X-Request-ID", "req-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-123", resp.Header.Get("X-Request-ID"))

	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/healthz", "")
	assert.Len(t, resp.Header.Get("X-Request-ID"), 36)
}

func TestHTTPServer_ServeAndShutdown(t *testing.T) {
	logger := zerolog.New(io.Discard)
	server := NewHTTPServer(testAPIConfig(), newTestDB(t), nil, &logger)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(lis) }()

	resp, _ := doRequest(t, http.MethodGet, "http://"+lis.Addr().String()+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))
	assert.NoError(t, <-errCh)
}

func TestHTTPServer_ShutdownUnstarted(t *testing.T) {
	logger := zerolog.New(io.Discard)
	server := NewHTTPServer(testAPIConfig(), newTestDB(t), nil, &logger)

	assert.NoError(t, server.Shutdown(context.Background()))
}
