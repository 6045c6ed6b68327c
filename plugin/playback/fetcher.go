// Package playback resolves speech clips through the audio cache and plays them locally.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/hrygo/flashdeck/plugin/audiocache"
	"github.com/hrygo/flashdeck/plugin/tts"
)

var (
	// ErrPremiumDisabled is returned by Fetch on a cache miss when no synthesizer is configured.
	ErrPremiumDisabled = errors.New("premium speech synthesis is not configured")
	// ErrNothingToSpeak is returned when the text contains no speakable words.
	ErrNothingToSpeak = errors.New("nothing to speak")
)

// Source tells where a clip came from.
type Source string

const (
	SourceNone    Source = "none"
	SourceCache   Source = "cache"
	SourcePremium Source = "premium"
	SourceOffline Source = "offline"
)

// Fetcher returns the clip for a text and voice from the cache, synthesizing and caching it
// on a miss. Concurrent misses for the same key share one synthesis call.
type Fetcher struct {
	cache    *audiocache.Cache
	synth    tts.Synthesizer
	keyFunc  audiocache.KeyFunc
	budgetMB float64
	voice    string

	group singleflight.Group
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithKeyFunc sets the cache key scheme. The default is audiocache.Key.
func WithKeyFunc(fn audiocache.KeyFunc) FetcherOption {
	return func(f *Fetcher) { f.keyFunc = fn }
}

// WithBudget sets the cache budget in MB passed to every Put.
func WithBudget(maxSizeMB float64) FetcherOption {
	return func(f *Fetcher) { f.budgetMB = audiocache.NormalizeBudget(maxSizeMB) }
}

// WithVoice sets the voice used when a caller passes none.
func WithVoice(voiceID string) FetcherOption {
	return func(f *Fetcher) { f.voice = voiceID }
}

// NewFetcher creates a fetcher. synth may be nil, in which case only cached clips are served.
func NewFetcher(cache *audiocache.Cache, synth tts.Synthesizer, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		cache:    cache,
		synth:    synth,
		keyFunc:  audiocache.Key,
		budgetMB: audiocache.DefaultBudgetMB,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Premium reports whether a synthesizer is configured.
func (f *Fetcher) Premium() bool {
	return f.synth != nil
}

// Cache returns the underlying audio cache.
func (f *Fetcher) Cache() *audiocache.Cache {
	return f.cache
}

// Budget returns the cache budget in MB.
func (f *Fetcher) Budget() float64 {
	return f.budgetMB
}

// Key returns the cache key of text spoken with voiceID.
func (f *Fetcher) Key(text, voiceID string) string {
	return f.keyFunc(text, f.resolveVoice(voiceID))
}

// Cached reports whether the clip is cached. It does not count as an access.
func (f *Fetcher) Cached(ctx context.Context, text, voiceID string) bool {
	return f.cache.Contains(ctx, f.Key(text, voiceID))
}

// Fetch returns the clip for text, synthesizing it on a cache miss. A failed synthesis is
// not retried and wraps tts.ErrSynthesisFailed.
func (f *Fetcher) Fetch(ctx context.Context, text, voiceID string) ([]byte, Source, error) {
	voiceID = f.resolveVoice(voiceID)
	key := f.keyFunc(text, voiceID)

	if blob, ok := f.cache.Get(ctx, key); ok {
		return blob, SourceCache, nil
	}
	if f.synth == nil {
		return nil, SourceNone, ErrPremiumDisabled
	}

	spoken := tts.SpeechText(text)
	if spoken == "" {
		return nil, SourceNone, ErrNothingToSpeak
	}

	v, err, shared := f.group.Do(key, func() (any, error) {
		blob, err := f.synth.Synthesize(ctx, spoken, voiceID)
		if err != nil {
			return nil, err
		}
		if !f.cache.Put(ctx, key, blob, f.budgetMB) {
			slog.Debug("synthesized clip not cached", "voice", voiceID)
		}
		return blob, nil
	})
	if err != nil {
		if !errors.Is(err, tts.ErrSynthesisFailed) {
			err = fmt.Errorf("%w: %v", tts.ErrSynthesisFailed, err)
		}
		return nil, SourceNone, err
	}
	if shared {
		slog.Debug("joined in-flight synthesis", "voice", voiceID)
	}
	return v.([]byte), SourcePremium, nil
}

func (f *Fetcher) resolveVoice(voiceID string) string {
	if voiceID == "" {
		return f.voice
	}
	return voiceID
}
