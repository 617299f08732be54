package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"burnshare/pkg/blob"
	"burnshare/pkg/cache"
	"burnshare/pkg/config"
	httpHandlers "burnshare/pkg/http"
	"burnshare/pkg/logging"
	"burnshare/pkg/security"
	"burnshare/pkg/service"
	"burnshare/pkg/storage"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stack struct {
	router  *chi.Mux
	shares  *service.ShareService
	sweeper *service.Sweeper
	clock   *clock
}

// newStack wires the API the way cmd/api does, on SQLite and in-memory
// blobs and cache.
func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()

	store, err := storage.Open(ctx, config.Database{Driver: "sqlite", URL: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	statsCache, closeCache, err := cache.New(ctx, config.Cache{Driver: "memory"})
	require.NoError(t, err)
	t.Cleanup(func() { closeCache() })

	blobs, err := blob.New(ctx, config.Blob{Driver: "memory"})
	require.NoError(t, err)

	c := &clock{now: time.Now().UTC().Truncate(time.Millisecond)}
	logger := logging.Discard()
	shares := service.NewShareService(store, blobs, logger, service.DefaultShareConfig()).WithClock(c.Now)
	reviews := service.NewReviewService(store, statsCache, security.NewIPHasher("secret"), logger, time.Minute)

	r := chi.NewRouter()
	httpHandlers.SetupRoutes(r, httpHandlers.NewHandler(shares, reviews, logger), []string{"*"})

	return &stack{
		router:  r,
		shares:  shares,
		sweeper: service.NewSweeper(shares, time.Hour, logger),
		clock:   c,
	}
}

func (s *stack) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var body map[string]any
	if w.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestTextShareScenario(t *testing.T) {
	s := newStack(t)

	w, created := s.do(t, jsonRequest(t, "POST", "/api/shares", map[string]any{
		"content_type":    "text",
		"content_text":    "the launch code is 0000",
		"passcode_length": 6,
	}))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Regexp(t, `^[0-9]{6}$`, created["passcode"])
	assert.Contains(t, created, "expires_at")

	w, payload := s.do(t, httptest.NewRequest("GET", "/api/shares/by-slug/"+created["slug"].(string), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "the launch code is 0000", payload["content_text"])

	w, _ = s.do(t, httptest.NewRequest("GET", "/api/shares/by-slug/"+created["slug"].(string), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = s.do(t, httptest.NewRequest("GET", "/api/shares/by-passcode/"+created["passcode"].(string), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImageShareScenario(t *testing.T) {
	s := newStack(t)
	data := bytes.Repeat([]byte{0x42}, 10*1024*1024)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("content_type", "image"))
	part, err := mw.CreateFormFile("file", "scan.jpg")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/shares", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w, created := s.do(t, req)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Regexp(t, `^[0-9A-Za-z]{8}$`, created["slug"])

	w, payload := s.do(t, httptest.NewRequest("GET", "/api/shares/by-slug/"+created["slug"].(string), nil))
	require.Equal(t, http.StatusOK, w.Code)
	fileURL := payload["file_url"].(string)

	w, _ = s.do(t, httptest.NewRequest("GET", fileURL+"?delete=true", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, len(data), w.Body.Len())

	w, _ = s.do(t, httptest.NewRequest("GET", fileURL+"?delete=true", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSweepScenario(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		w, _ := s.do(t, jsonRequest(t, "POST", "/api/shares", map[string]any{"content_type": "text", "content_text": "x"}))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	assert.Zero(t, s.sweeper.RunOnce(ctx))

	s.clock.Advance(24*time.Hour + time.Second)
	assert.Equal(t, 3, s.sweeper.RunOnce(ctx))
	assert.Zero(t, s.sweeper.RunOnce(ctx))
}

func TestReviewScenario(t *testing.T) {
	s := newStack(t)

	for _, rating := range []int{5, 4, 4} {
		req := jsonRequest(t, "POST", "/api/reviews", map[string]any{"rating": rating})
		req.Header.Set("CF-Connecting-IP", "198.51.100.1")
		w, _ := s.do(t, req)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, body := s.do(t, httptest.NewRequest("GET", "/api/reviews/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	stats := body["stats"].(map[string]any)
	assert.Equal(t, float64(3), stats["total"])
	assert.Equal(t, 4.33, stats["average"])
	assert.Equal(t, float64(2), stats["distribution"].(map[string]any)["4"])
}
