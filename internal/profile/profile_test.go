package profile

import (
	"os"
	"testing"
)

var envVars = []string{
	"FLASHDECK_CACHE_BACKEND",
	"FLASHDECK_CACHE_BUDGET_MB",
	"FLASHDECK_CACHE_KEY_HASH",
	"FLASHDECK_REDIS_ADDR",
	"FLASHDECK_REDIS_DB",
	"FLASHDECK_RATE_LIMIT",
	"FLASHDECK_TTS_API_KEY",
	"FLASHDECK_TTS_BASE_URL",
	"FLASHDECK_TTS_MODEL",
	"FLASHDECK_TTS_VOICE",
}

func clearEnvVars(t *testing.T) {
	for _, key := range envVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestProfileDefaults(t *testing.T) {
	clearEnvVars(t)

	profile := &Profile{}
	profile.FromEnv()

	tests := []struct {
		name     string
		expected string
		actual   string
	}{
		{"CacheBackend default", "db", profile.CacheBackend},
		{"RedisAddr default", "localhost:6379", profile.RedisAddr},
		{"TTSBaseURL default", "https://api.openai.com/v1", profile.TTSBaseURL},
		{"TTSModel default", "tts-1", profile.TTSModel},
		{"TTSVoice default", "alloy", profile.TTSVoice},
		{"OfflineCommand default", "espeak", profile.OfflineCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, tt.actual)
			}
		})
	}

	if profile.IsPremiumSpeechEnabled() {
		t.Error("premium speech should be disabled without an API key")
	}
}

func TestProfileFromEnv(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("FLASHDECK_TTS_API_KEY", "sk-test")
	t.Setenv("FLASHDECK_CACHE_BUDGET_MB", "75")
	t.Setenv("FLASHDECK_CACHE_KEY_HASH", "true")
	t.Setenv("FLASHDECK_REDIS_DB", "3")
	t.Setenv("FLASHDECK_RATE_LIMIT", "2.5")

	profile := &Profile{}
	profile.FromEnv()

	if !profile.IsPremiumSpeechEnabled() {
		t.Error("premium speech should be enabled with an API key")
	}
	if profile.CacheBudgetMB != 75 {
		t.Errorf("CacheBudgetMB = %v, want 75", profile.CacheBudgetMB)
	}
	if !profile.CacheKeyHash {
		t.Error("CacheKeyHash should be true")
	}
	if profile.RateLimit != 2.5 {
		t.Errorf("RateLimit = %v, want 2.5", profile.RateLimit)
	}
	if profile.RedisDB != 3 {
		t.Errorf("RedisDB = %d, want 3", profile.RedisDB)
	}
}

func TestProfileFromEnvKeepsExplicitValues(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("FLASHDECK_TTS_VOICE", "nova")

	profile := &Profile{TTSVoice: "echo"}
	profile.FromEnv()

	if profile.TTSVoice != "echo" {
		t.Errorf("TTSVoice = %q, want explicit value %q", profile.TTSVoice, "echo")
	}
}

func TestProfileValidate(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		profile := &Profile{Mode: "dev", Data: t.TempDir()}
		if err := profile.Validate(); err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if profile.Driver != "sqlite" {
			t.Errorf("Driver = %q, want sqlite", profile.Driver)
		}
		if profile.DSN == "" {
			t.Error("DSN should be derived for sqlite")
		}
		if profile.CacheBudgetMB != DefaultCacheBudgetMB {
			t.Errorf("CacheBudgetMB = %v, want %d", profile.CacheBudgetMB, DefaultCacheBudgetMB)
		}
		if profile.RateLimit != DefaultRateLimit {
			t.Errorf("RateLimit = %v, want %d", profile.RateLimit, DefaultRateLimit)
		}
	})

	t.Run("clamps budget", func(t *testing.T) {
		profile := &Profile{Mode: "dev", Data: t.TempDir(), CacheBudgetMB: 500}
		if err := profile.Validate(); err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if profile.CacheBudgetMB != MaxCacheBudgetMB {
			t.Errorf("CacheBudgetMB = %v, want %d", profile.CacheBudgetMB, MaxCacheBudgetMB)
		}
	})

	t.Run("unknown mode falls back to demo", func(t *testing.T) {
		profile := &Profile{Mode: "staging", Data: t.TempDir()}
		if err := profile.Validate(); err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if profile.Mode != "demo" {
			t.Errorf("Mode = %q, want demo", profile.Mode)
		}
	})

	t.Run("rejects unknown cache backend", func(t *testing.T) {
		profile := &Profile{Mode: "dev", Data: t.TempDir(), CacheBackend: "memcached"}
		if err := profile.Validate(); err == nil {
			t.Error("expected error for unknown cache backend")
		}
	})

	t.Run("missing data dir", func(t *testing.T) {
		profile := &Profile{Mode: "dev", Data: "/nonexistent/flashdeck/data"}
		if err := profile.Validate(); err == nil {
			t.Error("expected error for missing data dir")
		}
	})
}
