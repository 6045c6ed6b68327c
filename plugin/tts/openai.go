package tts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Config holds the speech provider configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Voice   string
	Format  string
	Timeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "https://api.openai.com/v1",
		Model:   string(openai.TTSModel1),
		Voice:   string(openai.VoiceAlloy),
		Format:  string(openai.SpeechResponseFormatMp3),
		Timeout: 30 * time.Second,
	}
}

// OpenAISynthesizer calls an OpenAI compatible /audio/speech endpoint.
// Failures are not retried; callers fall back to offline speech instead.
type OpenAISynthesizer struct {
	client *openai.Client
	config *Config
}

// NewOpenAISynthesizer creates a synthesizer. An empty API key is rejected.
func NewOpenAISynthesizer(cfg *Config) (*OpenAISynthesizer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("speech API key is required")
	}

	defaults := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Voice == "" {
		cfg.Voice = defaults.Voice
	}
	if cfg.Format == "" {
		cfg.Format = defaults.Format
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAISynthesizer{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}, nil
}

// DefaultVoice returns the configured voice.
func (s *OpenAISynthesizer) DefaultVoice() string {
	return s.config.Voice
}

// Synthesize returns the encoded clip for text. An empty voiceID uses the configured voice.
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if voiceID == "" {
		voiceID = s.config.Voice
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.config.Model),
		Input:          text,
		Voice:          openai.SpeechVoice(voiceID),
		ResponseFormat: openai.SpeechResponseFormat(s.config.Format),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	defer resp.Close()

	blob, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrSynthesisFailed, err)
	}
	if len(blob) == 0 {
		return nil, fmt.Errorf("%w: empty audio response", ErrSynthesisFailed)
	}

	slog.Debug("speech synthesized",
		"voice", voiceID,
		"chars", len([]rune(text)),
		"bytes", len(blob),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return blob, nil
}

var _ Synthesizer = (*OpenAISynthesizer)(nil)
