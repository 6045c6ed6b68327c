package playback

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/hrygo/flashdeck/plugin/tts"
)

// Output plays an encoded clip.
type Output interface {
	Play(ctx context.Context, blob []byte) (tts.Handle, error)
}

// ErrStopped is returned by Speak when Stop or a newer Speak superseded it before its
// clip was ready.
var ErrStopped = errors.New("playback stopped")

// Player speaks text, preferring cached or premium clips and falling back to offline
// speech. At most one clip plays at a time.
type Player struct {
	mu      sync.Mutex
	fetcher *Fetcher
	output  Output
	offline tts.OfflineSynthesizer
	current tts.Handle
	// generation increases on every Speak and Stop. A Speak only starts its clip when no
	// newer call happened while it was fetching.
	generation uint64
}

// NewPlayer creates a player. offline may be nil, in which case failed premium playback
// simply does not start.
func NewPlayer(fetcher *Fetcher, output Output, offline tts.OfflineSynthesizer) *Player {
	return &Player{
		fetcher: fetcher,
		output:  output,
		offline: offline,
	}
}

// Speak stops any current playback and starts speaking text. It returns where the audio
// came from, or SourceNone with an error when neither path could start. The clip is fetched
// without holding the player, so Stop never waits for synthesis.
func (p *Player) Speak(ctx context.Context, text, voiceID string) (Source, error) {
	p.mu.Lock()
	p.stopLocked()
	generation := p.generation
	p.mu.Unlock()

	blob, source, err := p.fetcher.Fetch(ctx, text, voiceID)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.generation != generation {
		return SourceNone, ErrStopped
	}

	if err == nil {
		handle, playErr := p.output.Play(ctx, blob)
		if playErr == nil {
			p.current = handle
			return source, nil
		}
		err = playErr
	}
	slog.Info("falling back to offline speech", "error", err)

	if p.offline == nil {
		return SourceNone, errors.Wrap(err, "offline speech is not configured")
	}
	spoken := tts.SpeechText(text)
	if spoken == "" {
		return SourceNone, ErrNothingToSpeak
	}
	handle, offlineErr := p.offline.SynthesizeOffline(ctx, spoken)
	if offlineErr != nil {
		return SourceNone, errors.Wrapf(offlineErr, "offline speech failed after %v", err)
	}
	p.current = handle
	return SourceOffline, nil
}

// Stop ends the current playback, if any, and cancels a Speak that is still fetching its
// clip. It is safe to call when nothing is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Wait blocks until the current playback ends or ctx is done.
func (p *Player) Wait(ctx context.Context) error {
	p.mu.Lock()
	current := p.current
	p.mu.Unlock()
	if current == nil {
		return nil
	}
	select {
	case <-current.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Player) stopLocked() {
	p.generation++
	if p.current == nil {
		return
	}
	if err := p.current.Stop(); err != nil {
		slog.Warn("failed to stop playback", "error", err)
	}
	p.current = nil
}
