package playback

import (
	"context"
	"errors"
	"sync"

	"github.com/hrygo/flashdeck/plugin/tts"
)

// MockHandle is a playback handle that ends when stopped.
type MockHandle struct {
	mu      sync.Mutex
	stopped int
	done    chan struct{}
}

func newMockHandle() *MockHandle {
	return &MockHandle{done: make(chan struct{})}
}

func (h *MockHandle) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped == 0 {
		close(h.done)
	}
	h.stopped++
	return nil
}

func (h *MockHandle) Done() <-chan struct{} {
	return h.done
}

// Stopped reports whether Stop was called.
func (h *MockHandle) Stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped > 0
}

// MockOutput records played clips.
type MockOutput struct {
	mu      sync.Mutex
	Played  [][]byte
	Handles []*MockHandle
	Fail    bool
}

func (o *MockOutput) Play(_ context.Context, blob []byte) (tts.Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Fail {
		return nil, errors.New("no audio device")
	}
	h := newMockHandle()
	o.Played = append(o.Played, blob)
	o.Handles = append(o.Handles, h)
	return h, nil
}

// MockOffline records offline speech requests.
type MockOffline struct {
	mu     sync.Mutex
	Spoken []string
	Fail   bool
}

func (o *MockOffline) SynthesizeOffline(_ context.Context, text string) (tts.Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Fail {
		return nil, errors.New("speech engine missing")
	}
	o.Spoken = append(o.Spoken, text)
	return newMockHandle(), nil
}

var (
	_ Output                 = (*MockOutput)(nil)
	_ tts.OfflineSynthesizer = (*MockOffline)(nil)
)
