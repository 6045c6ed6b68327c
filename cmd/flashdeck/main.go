package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/flashdeck/internal/profile"
	"github.com/hrygo/flashdeck/internal/version"
	"github.com/hrygo/flashdeck/plugin/playback"
	"github.com/hrygo/flashdeck/server"
	"github.com/hrygo/flashdeck/store"
	"github.com/hrygo/flashdeck/store/db"
)

var (
	rootCmd = &cobra.Command{
		Use:   "flashdeck",
		Short: "A flashcard server with spaced repetition and cached speech.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	speakCmd = &cobra.Command{
		Use:   "speak <text>",
		Short: "Speak a text through the cache, the premium voice or the offline engine",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return speak(cmd.Context(), strings.Join(args, " "))
		},
	}

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Manage the audio cache",
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached audio clip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return clearCache(cmd.Context())
		},
	}
)

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8081)

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	flags.String("addr", "", "address of server")
	flags.Int("port", 8081, "port of server")
	flags.String("data", "", "data directory")
	flags.String("driver", "sqlite", "database driver (sqlite or postgres)")
	flags.String("dsn", "", "database source name")
	flags.Float64("rate-limit", 0, "API requests per second allowed per client IP")
	flags.String("cache-backend", "", "audio cache backend (db, redis or memory)")
	flags.Float64("cache-budget-mb", 0, "audio cache budget in megabytes")
	flags.String("redis-addr", "", "redis address for the redis cache backend")
	flags.String("tts-api-key", "", "API key of the premium speech provider")
	flags.String("tts-base-url", "", "base URL of the premium speech provider")
	flags.String("tts-model", "", "speech model")
	flags.String("tts-voice", "", "default voice")
	flags.String("player-cmd", "", "command that plays an audio file, the file path is appended")
	flags.String("offline-cmd", "", "offline speech command, the text is appended")

	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("flashdeck")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(speakCmd, cacheCmd)
}

func main() {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:           viper.GetString("mode"),
		Addr:           viper.GetString("addr"),
		Port:           viper.GetInt("port"),
		Data:           viper.GetString("data"),
		Driver:         viper.GetString("driver"),
		DSN:            viper.GetString("dsn"),
		RateLimit:      viper.GetFloat64("rate-limit"),
		CacheBackend:   viper.GetString("cache-backend"),
		CacheBudgetMB:  viper.GetFloat64("cache-budget-mb"),
		RedisAddr:      viper.GetString("redis-addr"),
		TTSAPIKey:      viper.GetString("tts-api-key"),
		TTSBaseURL:     viper.GetString("tts-base-url"),
		TTSModel:       viper.GetString("tts-model"),
		TTSVoice:       viper.GetString("tts-voice"),
		PlayerCommand:  viper.GetString("player-cmd"),
		OfflineCommand: viper.GetString("offline-cmd"),
		Version:        version.GetCurrentVersion(viper.GetString("mode")),
	}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	setupLogger(p)
	return p, nil
}

func setupLogger(p *profile.Profile) {
	var handler slog.Handler
	if p.IsDev() {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

func openStore(ctx context.Context, p *profile.Profile) (*store.Store, error) {
	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, fmt.Errorf("failed to create db driver: %w", err)
	}
	storeInstance := store.New(dbDriver, p)
	if err := storeInstance.Migrate(ctx); err != nil {
		_ = storeInstance.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return storeInstance, nil
}

func serve(ctx context.Context) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	storeInstance, err := openStore(ctx, p)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		return err
	}
	fetcher, release, err := server.NewFetcher(ctx, p, storeInstance)
	if err != nil {
		slog.Error("failed to create audio fetcher", "error", err)
		_ = storeInstance.Close()
		return err
	}
	defer release()

	s, err := server.NewServer(ctx, p, storeInstance, fetcher)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		return err
	}
	if err := s.Start(ctx); err != nil {
		slog.Error("failed to start server", "error", err)
		return err
	}
	printGreetings(p, fetcher)

	<-ctx.Done()
	s.Shutdown(context.Background())
	return nil
}

func speak(ctx context.Context, text string) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	storeInstance, err := openStore(ctx, p)
	if err != nil {
		return err
	}
	defer storeInstance.Close()

	fetcher, release, err := server.NewFetcher(ctx, p, storeInstance)
	if err != nil {
		return err
	}
	defer release()

	player := playback.NewPlayer(fetcher,
		&playback.CommandOutput{Command: playback.ParseCommand(p.PlayerCommand)},
		&playback.CommandOffline{Command: playback.ParseCommand(p.OfflineCommand)},
	)
	source, err := player.Speak(ctx, text, "")
	if err != nil {
		return err
	}
	slog.Debug("speaking", "source", source)
	if err := player.Wait(ctx); err != nil {
		player.Stop()
		return err
	}
	return nil
}

func clearCache(ctx context.Context) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	storeInstance, err := openStore(ctx, p)
	if err != nil {
		return err
	}
	defer storeInstance.Close()

	fetcher, release, err := server.NewFetcher(ctx, p, storeInstance)
	if err != nil {
		return err
	}
	defer release()

	before := fetcher.Cache().Stats(ctx)
	fetcher.Cache().Clear(ctx)
	fmt.Printf("Removed %d clips (%.2f MB)\n", before.Entries, float64(before.Bytes)/(1<<20))
	return nil
}

func printGreetings(p *profile.Profile, fetcher *playback.Fetcher) {
	fmt.Printf("flashdeck %s started successfully!\n", p.Version)
	fmt.Printf("Data directory: %s\n", p.Data)
	fmt.Printf("Database driver: %s\n", p.Driver)
	fmt.Printf("Audio cache: %s (%.0f MB)\n", p.CacheBackend, fetcher.Budget())
	if fetcher.Premium() {
		fmt.Printf("Premium speech: %s / %s\n", p.TTSModel, p.TTSVoice)
	} else {
		fmt.Println("Premium speech: disabled, clients fall back to offline speech")
	}
	if len(p.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", p.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", p.Addr, p.Port)
	}
}
