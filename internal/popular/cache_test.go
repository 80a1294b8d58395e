package popular

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nikbrunner/pm/internal/logging"
	"github.com/nikbrunner/pm/internal/model"
	"github.com/nikbrunner/pm/internal/storage"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

const feedJSON = `{
  "categories": ["All", "Coding"],
  "prompts": [
    {"id": "r1", "title": "Refactor", "content": "Refactor this code", "tags": ["code"], "category": "Coding"}
  ]
}`

// feedServer serves body with status and records every request.
type feedServer struct {
	*httptest.Server
	mu       sync.Mutex
	status   int
	body     string
	requests []*http.Request
}

func newFeedServer(t *testing.T, status int, body string) *feedServer {
	t.Helper()
	fs := &feedServer{status: status, body: body}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.requests = append(fs.requests, r)
		status, body := fs.status, fs.body
		fs.mu.Unlock()
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *feedServer) set(status int, body string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.status, fs.body = status, body
}

func (fs *feedServer) count() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.requests)
}

func newTestCache(store storage.Storage, feedURL string) *Cache {
	c := NewCache(store, WithDefaultURL(feedURL), WithLogger(logging.Discard()))
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return c
}

func TestFetch_CachesAndAvoidsSecondRequest(t *testing.T) {
	ctx := context.Background()
	srv := newFeedServer(t, http.StatusOK, feedJSON)
	c := newTestCache(storage.NewMemoryStorage(), srv.URL+"/prompts.json")

	first := c.Fetch(ctx, false)
	second := c.Fetch(ctx, false)

	assert.DeepEqual(t, first, second)
	assert.Equal(t, srv.count(), 1)
	assert.Equal(t, first.Prompts[0].ID, "r1")

	last, ok := c.LastUpdate(ctx)
	assert.Assert(t, ok)
	assert.Equal(t, last.UnixMilli(), int64(1700000000000))
}

func TestFetch_ForceRefreshHitsNetwork(t *testing.T) {
	ctx := context.Background()
	srv := newFeedServer(t, http.StatusOK, feedJSON)
	c := newTestCache(storage.NewMemoryStorage(), srv.URL)

	c.Fetch(ctx, false)
	srv.set(http.StatusOK, `{"categories":["All"],"prompts":[]}`)

	got := c.Fetch(ctx, true)
	assert.Equal(t, srv.count(), 2)
	assert.Assert(t, is.Len(got.Prompts, 0))

	// The refreshed response replaced the cache
	assert.Assert(t, is.Len(c.Fetch(ctx, false).Prompts, 0))
}

func TestFetch_ForceRefreshFailureReturnsCache(t *testing.T) {
	ctx := context.Background()
	srv := newFeedServer(t, http.StatusOK, feedJSON)
	c := newTestCache(storage.NewMemoryStorage(), srv.URL)

	cached := c.Fetch(ctx, false)
	srv.set(http.StatusInternalServerError, "boom")

	got := c.Fetch(ctx, true)
	assert.DeepEqual(t, got, cached)
}

func TestFetch_FailureWithoutCacheReturnsDefaults(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusServiceUnavailable, ""},
		{"not found", http.StatusNotFound, "missing"},
		{"invalid json", http.StatusOK, "{"},
		{"prompts not array", http.StatusOK, `{"categories":[],"prompts":{}}`},
		{"categories missing", http.StatusOK, `{"prompts":[]}`},
		{"categories null", http.StatusOK, `{"categories":null,"prompts":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFeedServer(t, tt.status, tt.body)
			store := storage.NewMemoryStorage()
			c := newTestCache(store, srv.URL)

			got := c.Fetch(context.Background(), true)
			assert.DeepEqual(t, got, DefaultPrompts())

			// Defaults are never written to the cache
			_, err := store.Get(context.Background(), storage.KeyCachedPrompts)
			assert.Assert(t, errors.Is(err, storage.ErrNotFound))
		})
	}
}

func TestFetch_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestCache(storage.NewMemoryStorage(), url)
	assert.DeepEqual(t, c.Fetch(context.Background(), false), DefaultPrompts())
}

func TestFetch_CacheBuster(t *testing.T) {
	ctx := context.Background()
	srv := newFeedServer(t, http.StatusOK, feedJSON)

	c := newTestCache(storage.NewMemoryStorage(), srv.URL+"/feed.json?lang=en")
	c.Fetch(ctx, true)

	srv.mu.Lock()
	q := srv.requests[0].URL.Query()
	srv.mu.Unlock()
	assert.Equal(t, q.Get("lang"), "en")
	assert.Equal(t, q.Get("_t"), "1700000000000")
}

func TestWithCacheBuster(t *testing.T) {
	now := time.UnixMilli(42)
	assert.Equal(t, withCacheBuster("https://x.test/a.json", now), "https://x.test/a.json?_t=42")
	assert.Equal(t, withCacheBuster("https://x.test/a.json?v=1", now), "https://x.test/a.json?v=1&_t=42")
}

func TestCustomURL(t *testing.T) {
	ctx := context.Background()
	defaultSrv := newFeedServer(t, http.StatusOK, `{"categories":[],"prompts":[]}`)
	customSrv := newFeedServer(t, http.StatusOK, feedJSON)
	c := newTestCache(storage.NewMemoryStorage(), defaultSrv.URL)

	u, err := c.CustomURL(ctx)
	assert.NilError(t, err)
	assert.Equal(t, u, "")

	assert.NilError(t, c.SetCustomURL(ctx, customSrv.URL))
	assert.Equal(t, c.FeedURL(ctx), customSrv.URL)

	c.Fetch(ctx, true)
	assert.Equal(t, customSrv.count(), 1)
	assert.Equal(t, defaultSrv.count(), 0)

	// Clearing the override goes back to the default
	assert.NilError(t, c.SetCustomURL(ctx, ""))
	c.Fetch(ctx, true)
	assert.Equal(t, defaultSrv.count(), 1)
}

func TestSetCustomURL_Invalid(t *testing.T) {
	c := newTestCache(storage.NewMemoryStorage(), "http://unused.test")

	for _, u := range []string{"ftp://example.com/feed", "not a url", "https://"} {
		assert.Assert(t, c.SetCustomURL(context.Background(), u) != nil, "url %q", u)
	}
}

func TestFetch_StorageFailureStillReturnsData(t *testing.T) {
	srv := newFeedServer(t, http.StatusOK, feedJSON)
	store := storage.NewMemoryStorage()
	store.SetError(errors.New("unavailable"))
	c := newTestCache(store, srv.URL)

	got := c.Fetch(context.Background(), false)
	assert.Equal(t, got.Prompts[0].ID, "r1")
}

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Prompt feed</title>
    <item>
      <guid>rss-1</guid>
      <title>Explain code</title>
      <description>Explain what this code does.</description>
      <category>Coding</category>
      <category>learning</category>
    </item>
    <item>
      <guid>rss-2</guid>
      <title>Write a haiku</title>
      <description>Write a haiku about the topic.</description>
      <category>Writing</category>
    </item>
    <item>
      <guid>rss-3</guid>
      <title>Untagged</title>
      <description>No category.</description>
    </item>
  </channel>
</rss>`

func TestFetch_RSSFeed(t *testing.T) {
	srv := newFeedServer(t, http.StatusOK, rssFeed)
	c := newTestCache(storage.NewMemoryStorage(), srv.URL)

	got := c.Fetch(context.Background(), true)

	assert.DeepEqual(t, got.Categories, []string{model.CategoryAll, "Coding", "Writing"})
	assert.Assert(t, is.Len(got.Prompts, 3))
	assert.DeepEqual(t, got.Prompts[0], model.PopularPrompt{
		ID:       "rss-1",
		Title:    "Explain code",
		Content:  "Explain what this code does.",
		Tags:     []string{"Coding", "learning"},
		Category: "Coding",
	})
	assert.Equal(t, got.Prompts[2].Category, "")
}

func TestFetch_UnknownXMLDocument(t *testing.T) {
	srv := newFeedServer(t, http.StatusOK, "<html><body>not a feed</body></html>")
	c := newTestCache(storage.NewMemoryStorage(), srv.URL)

	got := c.Fetch(context.Background(), true)
	assert.Assert(t, strings.HasPrefix(got.Prompts[0].ID, "pp"))
}

func TestPoller_RefreshesOnInterval(t *testing.T) {
	srv := newFeedServer(t, http.StatusOK, feedJSON)
	c := newTestCache(storage.NewMemoryStorage(), srv.URL)

	var refreshes atomic.Int32
	p := NewPoller(c, func() int { return 1 })
	p.unit = 10 * time.Millisecond
	p.OnRefresh(func(model.PromptsResponse) { refreshes.Add(1) })

	p.Start()
	deadline := time.Now().Add(2 * time.Second)
	for refreshes.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	p.Stop()
	p.Stop()

	assert.Assert(t, refreshes.Load() >= 2)
	assert.Assert(t, srv.count() >= 2)
}

func TestClampInterval(t *testing.T) {
	assert.Equal(t, clampInterval(0), model.MinSyncInterval)
	assert.Equal(t, clampInterval(5), 5)
	assert.Equal(t, clampInterval(600), model.MaxSyncInterval)
}
