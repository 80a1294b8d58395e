// Package popular fetches and caches the curated prompt feed.
package popular

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/nikbrunner/pm/internal/logging"
	"github.com/nikbrunner/pm/internal/model"
	"github.com/nikbrunner/pm/internal/storage"
)

// MaxBodySize caps how much of a feed response is read.
const MaxBodySize = 5 << 20

// ErrFetch marks a failed remote fetch. It never escapes Fetch.
var ErrFetch = errors.New("fetch popular prompts")

// Option configures a Cache.
type Option func(*Cache)

// WithHTTPClient sets the HTTP client used for feed requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) {
		c.client = client
	}
}

// WithDefaultURL sets the feed URL used when no override is stored.
func WithDefaultURL(u string) Option {
	return func(c *Cache) {
		if u != "" {
			c.defaultURL = u
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// Cache serves the curated prompt feed from storage, refreshing it from the
// network on a cache miss or a forced refresh.
type Cache struct {
	store      storage.Storage
	client     *http.Client
	defaultURL string
	logger     *slog.Logger
	now        func() time.Time
}

// NewCache creates a Cache over store.
func NewCache(store storage.Storage, opts ...Option) *Cache {
	c := &Cache{
		store:      store,
		client:     &http.Client{Timeout: 30 * time.Second},
		defaultURL: storage.DefaultFeedURL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.With("component", "popular")
	}
	return c
}

// Fetch returns the curated prompts. Without force a cached response is
// returned as is. Network or payload failures fall back to the cached
// response, then to DefaultPrompts. Fetch never fails.
func (c *Cache) Fetch(ctx context.Context, force bool) model.PromptsResponse {
	if !force {
		if cached, ok := c.cached(ctx); ok {
			return cached
		}
	}

	resp, err := c.fetchRemote(ctx)
	if err == nil {
		if err := c.save(ctx, resp); err != nil {
			c.logger.Warn("cache popular prompts failed", "error", err)
		}
		return resp
	}

	c.logger.Warn("fetch popular prompts failed", "error", err)

	if cached, ok := c.cached(ctx); ok {
		c.logger.Info("using cached popular prompts")
		return cached
	}
	c.logger.Info("using built-in popular prompts")
	return DefaultPrompts()
}

// FeedURL returns the override URL if set, else the default.
func (c *Cache) FeedURL(ctx context.Context) string {
	custom, err := c.CustomURL(ctx)
	if err != nil {
		c.logger.Warn("read feed URL failed", "error", err)
	}
	if custom != "" {
		return custom
	}
	return c.defaultURL
}

// CustomURL returns the stored override URL, or "" when none is set.
func (c *Cache) CustomURL(ctx context.Context) (string, error) {
	data, err := c.store.Get(ctx, storage.KeyPromptsURL)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var u string
	if err := json.Unmarshal(data, &u); err != nil {
		return "", fmt.Errorf("decode %s: %w", storage.KeyPromptsURL, err)
	}
	return u, nil
}

// SetCustomURL stores a feed URL override. An empty URL removes it.
func (c *Cache) SetCustomURL(ctx context.Context, rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return c.store.Delete(ctx, storage.KeyPromptsURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid feed URL %q", rawURL)
	}

	data, err := json.Marshal(rawURL)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, storage.KeyPromptsURL, data)
}

// LastUpdate returns when the cache was last refreshed from the network.
func (c *Cache) LastUpdate(ctx context.Context) (time.Time, bool) {
	data, err := c.store.Get(ctx, storage.KeyPromptsLastUpdate)
	if err != nil {
		return time.Time{}, false
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// cached reads the stored response.
func (c *Cache) cached(ctx context.Context) (model.PromptsResponse, bool) {
	data, err := c.store.Get(ctx, storage.KeyCachedPrompts)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Warn("read cached popular prompts failed", "error", err)
		}
		return model.PromptsResponse{}, false
	}

	var resp model.PromptsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn("decode cached popular prompts failed", "error", err)
		return model.PromptsResponse{}, false
	}
	return resp, true
}

// save stores resp and the refresh time.
func (c *Cache) save(ctx context.Context, resp model.PromptsResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, storage.KeyCachedPrompts, data); err != nil {
		return err
	}
	ts := strconv.FormatInt(c.now().UnixMilli(), 10)
	return c.store.Set(ctx, storage.KeyPromptsLastUpdate, []byte(ts))
}

func (c *Cache) fetchRemote(ctx context.Context) (model.PromptsResponse, error) {
	feedURL := withCacheBuster(c.FeedURL(ctx), c.now())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return model.PromptsResponse{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json, application/rss+xml, application/atom+xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return model.PromptsResponse{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.PromptsResponse{}, fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return model.PromptsResponse{}, fmt.Errorf("%w: read body: %v", ErrFetch, err)
	}

	return c.parse(body)
}

// parse decodes a JSON payload, or an RSS/Atom document.
func (c *Cache) parse(body []byte) (model.PromptsResponse, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '<' {
		feed, err := gofeed.NewParser().Parse(bytes.NewReader(trimmed))
		if err != nil {
			return model.PromptsResponse{}, fmt.Errorf("%w: parse feed: %v", ErrFetch, err)
		}
		return fromFeed(feed), nil
	}
	return parseJSON(trimmed)
}

// parseJSON requires both "categories" and "prompts" to be arrays.
func parseJSON(body []byte) (model.PromptsResponse, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return model.PromptsResponse{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	for _, field := range []string{"categories", "prompts"} {
		v := bytes.TrimSpace(raw[field])
		if len(v) == 0 || v[0] != '[' {
			return model.PromptsResponse{}, fmt.Errorf("%w: %s must be an array", ErrFetch, field)
		}
	}

	var resp model.PromptsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.PromptsResponse{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return resp, nil
}

// withCacheBuster appends _t=<unix ms> to the URL.
func withCacheBuster(u string, now time.Time) string {
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "_t=" + strconv.FormatInt(now.UnixMilli(), 10)
}
