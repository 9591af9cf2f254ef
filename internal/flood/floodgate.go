// Package flood provides per-client request rate limiting for the HTTP API.
package flood

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

const (
	// windowDuration is the fixed time window the limit applies to (always 1 minute)
	windowDuration = 60 * time.Second
	// DefaultMaxClients bounds how many client buckets are remembered at once
	DefaultMaxClients = 10000
)

// Floodgate provides per-client token-bucket rate limiting.
// Buckets live in an LRU cache so idle clients are evicted without a cleanup goroutine.
type Floodgate struct {
	limitPerMinute int // Maximum requests per client per minute, 0 disables limiting
	buckets        *lru.Cache[string, *rate.Limiter]
	mutex          sync.Mutex
	now            func() time.Time
	blocked        uint64
}

// New creates a new Floodgate with the specified rate limiting configuration
// The time window is fixed at 60 seconds (1 minute)
func New(limitPerMinute, maxClients int) *Floodgate {
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}
	// lru.New only fails for a non-positive size.
	buckets, _ := lru.New[string, *rate.Limiter](maxClients)
	return &Floodgate{
		limitPerMinute: limitPerMinute,
		buckets:        buckets,
		now:            time.Now,
	}
}

// Enabled reports whether requests are limited at all.
func (fg *Floodgate) Enabled() bool {
	return fg.limitPerMinute > 0
}

// CheckRequest checks if a request from the specified client to the specified route should be allowed
// Returns true if the request should be processed, false if it should be rejected
func (fg *Floodgate) CheckRequest(route, clientID string) bool {
	if !fg.Enabled() {
		return true
	}
	key := route + ":" + clientID

	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	bucket, ok := fg.buckets.Get(key)
	if !ok {
		bucket = rate.NewLimiter(rate.Every(windowDuration/time.Duration(fg.limitPerMinute)), fg.limitPerMinute)
		fg.buckets.Add(key, bucket)
	}

	if !bucket.AllowN(fg.now(), 1) {
		fg.blocked++
		return false
	}
	return true
}

// GetStats returns statistics about the floodgate for monitoring/debugging
func (fg *Floodgate) GetStats() Stats {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	return Stats{
		ActiveClients:  fg.buckets.Len(),
		LimitPerMinute: fg.limitPerMinute,
		WindowSeconds:  int(windowDuration.Seconds()), // Fixed 1-minute window
		Blocked:        fg.blocked,
	}
}

// Stats contains floodgate statistics
type Stats struct {
	ActiveClients  int    `json:"active_clients"`
	LimitPerMinute int    `json:"limit_per_minute"`
	WindowSeconds  int    `json:"window_seconds"`
	Blocked        uint64 `json:"blocked"`
}
