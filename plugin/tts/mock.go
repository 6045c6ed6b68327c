package tts

import (
	"context"
	"fmt"
	"sync"
)

// MockSynthesizer returns canned clips for testing.
type MockSynthesizer struct {
	mu    sync.Mutex
	calls map[string]int

	// Fail makes every call fail with ErrSynthesisFailed.
	Fail bool
	// Block, when set, is waited on before returning.
	Block chan struct{}
}

// NewMockSynthesizer creates a new mock synthesizer.
func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{calls: make(map[string]int)}
}

// Synthesize returns "audio:<voice>:<text>".
func (m *MockSynthesizer) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	m.mu.Lock()
	m.calls[text]++
	fail, block := m.Fail, m.Block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, ctx.Err())
		}
	}
	if fail {
		return nil, fmt.Errorf("%w: mock failure", ErrSynthesisFailed)
	}
	return []byte("audio:" + voiceID + ":" + text), nil
}

// Calls returns how often text was synthesized.
func (m *MockSynthesizer) Calls(text string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[text]
}

// TotalCalls returns the number of Synthesize calls.
func (m *MockSynthesizer) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// SetFail switches failure mode.
func (m *MockSynthesizer) SetFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fail = fail
}

var _ Synthesizer = (*MockSynthesizer)(nil)
