package server

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/hrygo/flashdeck/internal/profile"
	"github.com/hrygo/flashdeck/plugin/audiocache"
	"github.com/hrygo/flashdeck/plugin/playback"
	"github.com/hrygo/flashdeck/plugin/tts"
	"github.com/hrygo/flashdeck/store"
	"github.com/hrygo/flashdeck/store/cache"
)

// NewByteStore returns the audio cache backend selected by profile.CacheBackend and a
// function releasing it.
func NewByteStore(ctx context.Context, profile *profile.Profile, s *store.Store) (audiocache.ByteStore, func() error, error) {
	switch profile.CacheBackend {
	case "", "db":
		return s, func() error { return nil }, nil
	case "memory":
		return audiocache.NewMemoryStore(), func() error { return nil }, nil
	case "redis":
		config := cache.DefaultRedisConfig()
		config.Addr = profile.RedisAddr
		config.Password = profile.RedisPassword
		config.DB = profile.RedisDB
		rs, err := cache.NewRedisStore(ctx, config)
		if err != nil {
			return nil, nil, err
		}
		return rs, rs.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown cache backend %q", profile.CacheBackend)
	}
}

// NewSynthesizer returns the premium synthesizer, or nil when none is configured.
func NewSynthesizer(profile *profile.Profile) (tts.Synthesizer, error) {
	if !profile.IsPremiumSpeechEnabled() {
		slog.Info("premium speech disabled, using offline speech only")
		return nil, nil
	}
	config := tts.DefaultConfig()
	config.APIKey = profile.TTSAPIKey
	config.BaseURL = profile.TTSBaseURL
	config.Model = profile.TTSModel
	config.Voice = profile.TTSVoice
	synth, err := tts.NewOpenAISynthesizer(config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create speech synthesizer")
	}
	return synth, nil
}

// NewFetcher wires the audio cache and synthesizer configured in profile.
func NewFetcher(ctx context.Context, profile *profile.Profile, s *store.Store) (*playback.Fetcher, func() error, error) {
	bs, release, err := NewByteStore(ctx, profile, s)
	if err != nil {
		return nil, nil, err
	}
	synth, err := NewSynthesizer(profile)
	if err != nil {
		_ = release()
		return nil, nil, err
	}
	fetcher := playback.NewFetcher(audiocache.New(bs), synth,
		playback.WithKeyFunc(audiocache.KeyScheme(profile.CacheKeyHash)),
		playback.WithBudget(profile.CacheBudgetMB),
		playback.WithVoice(profile.TTSVoice),
	)
	return fetcher, release, nil
}
