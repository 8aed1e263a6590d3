package chronyc

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Kind identifies one of the three chronyc reports the engine polls.
type Kind string

const (
	KindTracking    Kind = "tracking"
	KindSources     Kind = "sources"
	KindSourcestats Kind = "sourcestats"
)

// Kinds lists all report kinds in a stable order.
var Kinds = []Kind{KindTracking, KindSources, KindSourcestats}

// args returns the chronyc argument list for the kind.
func (k Kind) args() []string {
	switch k {
	case KindSources:
		return []string{"sources", "-v"}
	case KindSourcestats:
		return []string{"sourcestats", "-v"}
	default:
		return []string{"tracking"}
	}
}

// PollState is the cache's view of one report kind, handed to the parser
// and to the rendering layer.
type PollState struct {
	// Text is the last successful raw output. Empty when HasData is false.
	Text string

	// HasData reports whether this kind has ever succeeded.
	HasData bool

	// Age is the elapsed time since the last success. Meaningless when
	// HasData is false.
	Age time.Duration

	// Fresh is true when the last attempt succeeded and the result is
	// still within the kind's TTL.
	Fresh bool
}

type cacheEntry struct {
	ttl     time.Duration
	text    string
	lastTry time.Time
	lastOK  time.Time
	ok      bool // last attempt succeeded
}

// Cache rate-limits the chronyc queries and keeps the freshest available
// output per kind. A failed query never clears a previously cached result;
// readers see growing Age until the next success.
//
// The cache is the sole writer to each slot; a full entry is published under
// the mutex so readers always observe a consistent state.
type Cache struct {
	runner Runner
	now    func() time.Time

	mu      sync.Mutex
	entries map[Kind]*cacheEntry
}

// NewCache builds a Cache with the given per-kind TTLs.
func NewCache(runner Runner, trackingTTL, sourcesTTL, sourcestatsTTL time.Duration) *Cache {
	return &Cache{
		runner: runner,
		now:    time.Now,
		entries: map[Kind]*cacheEntry{
			KindTracking:    {ttl: trackingTTL},
			KindSources:     {ttl: sourcesTTL},
			KindSourcestats: {ttl: sourcestatsTTL},
		},
	}
}

// SetClock replaces the wall clock. For tests.
func (c *Cache) SetClock(now func() time.Time) { c.now = now }

// Refresh queries every kind whose TTL has elapsed since the last attempt
// (or that has never succeeded). The due queries run concurrently; each
// goroutine only touches its own slot. Refresh returns once all attempts
// for this tick are applied, so a subsequent Get sees the full snapshot.
func (c *Cache) Refresh(ctx context.Context) {
	now := c.now()

	c.mu.Lock()
	var due []Kind
	for _, k := range Kinds {
		e := c.entries[k]
		if e.lastOK.IsZero() || now.Sub(e.lastTry) >= e.ttl {
			e.lastTry = now
			due = append(due, k)
		}
	}
	c.mu.Unlock()

	if len(due) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, k := range due {
		k := k
		g.Go(func() error {
			out, err := c.runner.Run(gctx, k.args()...)

			c.mu.Lock()
			defer c.mu.Unlock()
			e := c.entries[k]
			if err != nil {
				e.ok = false
				slog.Warn("chronyc: query failed, keeping cached output",
					"kind", string(k), "err", err)
				return nil
			}
			e.text = out
			e.lastOK = c.now()
			e.ok = true
			return nil
		})
	}
	_ = g.Wait()
}

// Get returns the cache's current view of kind.
func (c *Cache) Get(kind Kind) PollState {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[kind]
	if !found || e.lastOK.IsZero() {
		return PollState{}
	}
	age := c.now().Sub(e.lastOK)
	if age < 0 {
		age = 0
	}
	return PollState{
		Text:    e.text,
		HasData: true,
		Age:     age,
		Fresh:   e.ok && age < e.ttl,
	}
}

// TTL returns the configured TTL for kind. Zero for an unknown kind.
func (c *Cache) TTL(kind Kind) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, found := c.entries[kind]; found {
		return e.ttl
	}
	return 0
}
