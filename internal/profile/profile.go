package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// DefaultCacheBudgetMB is the audio cache budget used when none is configured.
	DefaultCacheBudgetMB = 50
	// MaxCacheBudgetMB is the upper bound accepted for the audio cache budget.
	MaxCacheBudgetMB = 100
	// DefaultRateLimit is the per client request rate used when none is configured.
	DefaultRateLimit = 10
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where flashdeck stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// RateLimit is the number of API requests per second allowed per client IP (default: 10)
	RateLimit float64

	// Audio cache configuration
	CacheBackend  string  // FLASHDECK_CACHE_BACKEND: db, redis or memory (default: db)
	CacheBudgetMB float64 // FLASHDECK_CACHE_BUDGET_MB (default: 50, max: 100)
	CacheKeyHash  bool    // FLASHDECK_CACHE_KEY_HASH: hash the full text instead of truncating it
	RedisAddr     string  // FLASHDECK_REDIS_ADDR (default: localhost:6379)
	RedisPassword string  // FLASHDECK_REDIS_PASSWORD
	RedisDB       int     // FLASHDECK_REDIS_DB

	// Speech synthesis configuration
	TTSAPIKey  string // FLASHDECK_TTS_API_KEY; premium synthesis is disabled when empty
	TTSBaseURL string // FLASHDECK_TTS_BASE_URL (default: https://api.openai.com/v1)
	TTSModel   string // FLASHDECK_TTS_MODEL (default: tts-1)
	TTSVoice   string // FLASHDECK_TTS_VOICE (default: alloy)

	// Local playback configuration
	PlayerCommand  string // FLASHDECK_PLAYER_CMD (default: ffplay -nodisp -autoexit -loglevel quiet)
	OfflineCommand string // FLASHDECK_OFFLINE_CMD (default: espeak)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsPremiumSpeechEnabled returns true if a premium synthesis provider is configured.
func (p *Profile) IsPremiumSpeechEnabled() bool {
	return p.TTSAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv fills unset fields from FLASHDECK_* environment variables.
// Values already set (for example by command line flags) take precedence.
func (p *Profile) FromEnv() {
	setString := func(dst *string, key, defaultValue string) {
		if *dst == "" {
			*dst = getEnvOrDefault(key, defaultValue)
		}
	}

	setString(&p.CacheBackend, "FLASHDECK_CACHE_BACKEND", "db")
	setString(&p.RedisAddr, "FLASHDECK_REDIS_ADDR", "localhost:6379")
	setString(&p.RedisPassword, "FLASHDECK_REDIS_PASSWORD", "")
	setString(&p.TTSAPIKey, "FLASHDECK_TTS_API_KEY", "")
	setString(&p.TTSBaseURL, "FLASHDECK_TTS_BASE_URL", "https://api.openai.com/v1")
	setString(&p.TTSModel, "FLASHDECK_TTS_MODEL", "tts-1")
	setString(&p.TTSVoice, "FLASHDECK_TTS_VOICE", "alloy")
	setString(&p.PlayerCommand, "FLASHDECK_PLAYER_CMD", "ffplay -nodisp -autoexit -loglevel quiet")
	setString(&p.OfflineCommand, "FLASHDECK_OFFLINE_CMD", "espeak")

	if p.CacheBudgetMB == 0 {
		if v, err := strconv.ParseFloat(os.Getenv("FLASHDECK_CACHE_BUDGET_MB"), 64); err == nil {
			p.CacheBudgetMB = v
		}
	}
	if p.RateLimit == 0 {
		if v, err := strconv.ParseFloat(os.Getenv("FLASHDECK_RATE_LIMIT"), 64); err == nil {
			p.RateLimit = v
		}
	}
	if p.RedisDB == 0 {
		if v, err := strconv.Atoi(os.Getenv("FLASHDECK_REDIS_DB")); err == nil {
			p.RedisDB = v
		}
	}
	if !p.CacheKeyHash {
		p.CacheKeyHash = os.Getenv("FLASHDECK_CACHE_KEY_HASH") == "true"
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "flashdeck")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/flashdeck"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("flashdeck_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	switch p.CacheBackend {
	case "", "db":
		p.CacheBackend = "db"
	case "redis", "memory":
	default:
		return errors.Errorf("unknown cache backend %q (choose db, redis, or memory)", p.CacheBackend)
	}

	if p.RateLimit <= 0 {
		p.RateLimit = DefaultRateLimit
	}

	if p.CacheBudgetMB <= 0 {
		p.CacheBudgetMB = DefaultCacheBudgetMB
	}
	if p.CacheBudgetMB > MaxCacheBudgetMB {
		slog.Warn("cache budget above maximum, clamping",
			slog.Float64("requested_mb", p.CacheBudgetMB),
			slog.Int("max_mb", MaxCacheBudgetMB))
		p.CacheBudgetMB = MaxCacheBudgetMB
	}

	return nil
}
