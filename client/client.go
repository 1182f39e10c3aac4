// Package client is a Go client for the podcast API with a cached list and a
// polling strategy that only hits the network while a generation is running.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultCacheTTL     = 5 * time.Minute
	DefaultPollInterval = 30 * time.Second
	DefaultSyncInterval = time.Minute
)

// Podcast is the public projection served by the list endpoints.
type Podcast struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Author      string  `json:"author"`
	Thumbnail   string  `json:"thumbnail"`
	Genre       string  `json:"genre"`
	Duration    string  `json:"duration"`
	Topic       string  `json:"topic"`
	AudioURL    string  `json:"audioUrl"`
	Status      string  `json:"status"`
	Plays       int     `json:"plays"`
	Rating      float64 `json:"rating"`
	CreatedAt   string  `json:"createdAt"`
}

// InProgress reports whether the record is still mid-generation.
func (p Podcast) InProgress() bool {
	return p.Status == "generating" || p.Status == "generating_audio"
}

// Client caches the caller's podcast list and deduplicates concurrent fetches.
// StartPolling runs a ticker that refreshes the list only while at least one
// cached record is non-terminal; it must be stopped when the owner goes away.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	cacheTTL time.Duration

	group singleflight.Group

	mu          sync.RWMutex
	podcasts    []Podcast
	lastFetched time.Time

	pollMu   sync.Mutex
	pollStop chan struct{}
	syncStop chan struct{}
}

type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithCacheTTL changes how long a fetched list is served from cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cacheTTL = ttl }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		token:    token,
		http:     &http.Client{Timeout: 30 * time.Second},
		cacheTTL: DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Podcasts returns a copy of the cached list.
func (c *Client) Podcasts() []Podcast {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Podcast, len(c.podcasts))
	copy(out, c.podcasts)
	return out
}

func (c *Client) cacheValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastFetched.IsZero() || len(c.podcasts) == 0 {
		return false
	}
	return time.Since(c.lastFetched) < c.cacheTTL
}

// FetchPodcasts returns the podcast list, serving from cache while it is
// fresh unless force is set. Concurrent callers share one in-flight request.
func (c *Client) FetchPodcasts(ctx context.Context, force bool) ([]Podcast, error) {
	if !force && c.cacheValid() {
		return c.Podcasts(), nil
	}

	result, err, _ := c.group.Do("fetch_podcasts_"+c.token, func() (interface{}, error) {
		podcasts, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.podcasts = podcasts
		c.lastFetched = time.Now()
		c.mu.Unlock()
		return podcasts, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Podcast), nil
}

func (c *Client) fetch(ctx context.Context) ([]Podcast, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/podcasts", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch podcasts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch podcasts: status %d", resp.StatusCode)
	}

	var payload struct {
		Podcasts []Podcast `json:"podcasts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode podcasts: %w", err)
	}
	return payload.Podcasts, nil
}

// StartPolling launches the smart polling loop. Each tick inspects the cached
// list and forces a refresh only when a record is still in progress. Any
// previous loop is stopped first.
func (c *Client) StartPolling(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	c.pollMu.Lock()
	defer c.pollMu.Unlock()
	c.stopLocked()

	stop := make(chan struct{})
	c.pollStop = stop

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.tick()
			}
		}
	}()
}

func (c *Client) tick() {
	if !c.hasInProgress() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	// Overlapping ticks collapse onto the same in-flight request.
	_, _ = c.FetchPodcasts(ctx, true)
}

func (c *Client) hasInProgress() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.podcasts {
		if p.InProgress() {
			return true
		}
	}
	return false
}

// StopPolling halts the polling loop. Safe to call repeatedly.
func (c *Client) StopPolling() {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()
	c.stopLocked()
}

func (c *Client) stopLocked() {
	if c.pollStop != nil {
		close(c.pollStop)
		c.pollStop = nil
	}
}

// StartBackgroundSync refreshes the cached list shortly before its TTL lapses
// so readers keep hitting warm data. A cache that was never populated is left
// alone. Any previous sync loop is stopped first.
func (c *Client) StartBackgroundSync(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}

	c.pollMu.Lock()
	defer c.pollMu.Unlock()
	c.stopSyncLocked()

	stop := make(chan struct{})
	c.syncStop = stop

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.syncTick(interval)
			}
		}
	}()
}

func (c *Client) syncTick(interval time.Duration) {
	c.mu.RLock()
	last := c.lastFetched
	c.mu.RUnlock()

	if last.IsZero() {
		return
	}
	// Refresh once the cache would expire before the next tick arrives.
	if time.Since(last) < c.cacheTTL-interval {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, _ = c.FetchPodcasts(ctx, true)
}

// StopBackgroundSync halts the sync loop. Safe to call repeatedly.
func (c *Client) StopBackgroundSync() {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()
	c.stopSyncLocked()
}

func (c *Client) stopSyncLocked() {
	if c.syncStop != nil {
		close(c.syncStop)
		c.syncStop = nil
	}
}

// AddPodcast prepends a record to the cached list, ahead of the next poll.
func (c *Client) AddPodcast(p Podcast) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.podcasts = append([]Podcast{p}, c.podcasts...)
}

// UpdatePodcast applies an in-place mutation to one cached record.
func (c *Client) UpdatePodcast(id string, update func(*Podcast)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.podcasts {
		if c.podcasts[i].ID == id {
			update(&c.podcasts[i])
			return
		}
	}
}

// BatchUpdate applies updates keyed by podcast ID.
func (c *Client) BatchUpdate(updates map[string]func(*Podcast)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.podcasts {
		if update, ok := updates[c.podcasts[i].ID]; ok {
			update(&c.podcasts[i])
		}
	}
}

// ClearCache stops polling and syncing and drops all cached state. Used on
// logout.
func (c *Client) ClearCache() {
	c.StopPolling()
	c.StopBackgroundSync()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.podcasts = nil
	c.lastFetched = time.Time{}
}
