package precache

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/hrygo/flashdeck/plugin/playback"
	"github.com/hrygo/flashdeck/store"
)

// Fetcher resolves speech clips through the audio cache.
type Fetcher interface {
	Premium() bool
	Cached(ctx context.Context, text, voiceID string) bool
	Fetch(ctx context.Context, text, voiceID string) ([]byte, playback.Source, error)
}

// Stats counts what the coordinator did since it was created.
type Stats struct {
	Warmed  int64 `json:"warmed"`
	Skipped int64 `json:"skipped"`
	Failed  int64 `json:"failed"`
	Pending int   `json:"pending"`
}

// Coordinator drains a queue of texts into the audio cache on a background goroutine.
// At most one drain runs at a time; Enqueue during a drain appends to its queue.
type Coordinator struct {
	fetcher Fetcher
	voice   string
	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	pending  []string
	queued   map[string]bool
	draining bool
	done     chan struct{}

	warmed  atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRate limits how many items are processed per second.
func WithRate(limit rate.Limit, burst int) Option {
	return func(c *Coordinator) { c.limiter = rate.NewLimiter(limit, burst) }
}

// WithVoice sets the voice clips are warmed for. Empty uses the fetcher's default.
func WithVoice(voiceID string) Option {
	return func(c *Coordinator) { c.voice = voiceID }
}

// NewCoordinator creates a coordinator.
func NewCoordinator(fetcher Fetcher, opts ...Option) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		fetcher: fetcher,
		limiter: rate.NewLimiter(rate.Limit(10), 1),
		ctx:     ctx,
		cancel:  cancel,
		queued:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enqueue schedules the terms of cards for warming and returns how many were added.
// It does nothing when premium synthesis is not configured or the coordinator is closed.
func (c *Coordinator) Enqueue(cards []*store.Card) int {
	if !c.fetcher.Premium() || c.ctx.Err() != nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	added := 0
	for _, card := range cards {
		if card.Term == "" || c.queued[card.Term] {
			continue
		}
		c.queued[card.Term] = true
		c.pending = append(c.pending, card.Term)
		added++
	}

	if added > 0 && !c.draining {
		c.draining = true
		c.done = make(chan struct{})
		go c.drain(c.done)
	}
	return added
}

// Wait blocks until the running drain, if any, finishes.
func (c *Coordinator) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Close cancels the running drain and waits for it to stop.
func (c *Coordinator) Close() {
	c.cancel()
	c.Wait()
}

// Stats returns the coordinator counters.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	pending := len(c.pending)
	c.mu.Unlock()
	return Stats{
		Warmed:  c.warmed.Load(),
		Skipped: c.skipped.Load(),
		Failed:  c.failed.Load(),
		Pending: pending,
	}
}

func (c *Coordinator) drain(done chan struct{}) {
	defer close(done)

	for {
		text, ok := c.next()
		if !ok {
			return
		}
		c.warm(text)

		if err := c.limiter.Wait(c.ctx); err != nil {
			c.abandon()
			return
		}
		runtime.Gosched()
	}
}

func (c *Coordinator) next() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 || c.ctx.Err() != nil {
		c.draining = false
		c.pending = nil
		return "", false
	}
	text := c.pending[0]
	c.pending = c.pending[1:]
	delete(c.queued, text)
	return text, true
}

func (c *Coordinator) abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draining = false
	c.pending = nil
	clear(c.queued)
}

// warm fetches one clip. Failures are counted and skipped; there is no retry.
func (c *Coordinator) warm(text string) {
	if c.fetcher.Cached(c.ctx, text, c.voice) {
		c.skipped.Add(1)
		return
	}
	if _, _, err := c.fetcher.Fetch(c.ctx, text, c.voice); err != nil {
		c.failed.Add(1)
		slog.Debug("pre-cache skipped clip", "error", err)
		return
	}
	c.warmed.Add(1)
}

var _ Fetcher = (*playback.Fetcher)(nil)
