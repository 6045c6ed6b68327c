// Package tts synthesizes speech for card text.
package tts

import (
	"context"
	"errors"
)

// ErrSynthesisFailed wraps every error returned by a Synthesizer.
var ErrSynthesisFailed = errors.New("speech synthesis failed")

// Synthesizer produces an audio clip for text spoken with voiceID.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// Handle controls speech that is playing.
type Handle interface {
	// Stop ends playback. It is safe to call more than once.
	Stop() error
	// Done is closed when playback ends.
	Done() <-chan struct{}
}

// OfflineSynthesizer speaks text directly on the local device. Its output is never cached.
type OfflineSynthesizer interface {
	SynthesizeOffline(ctx context.Context, text string) (Handle, error)
}
