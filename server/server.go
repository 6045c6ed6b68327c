package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/hrygo/flashdeck/internal/profile"
	"github.com/hrygo/flashdeck/plugin/playback"
	"github.com/hrygo/flashdeck/plugin/precache"
	"github.com/hrygo/flashdeck/server/internal/observability"
	"github.com/hrygo/flashdeck/server/middleware"
	apiv1 "github.com/hrygo/flashdeck/server/router/api/v1"
	"github.com/hrygo/flashdeck/store"
)

// Server serves the flashdeck API.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	precache   *precache.Coordinator
	listener   net.Listener
}

// NewServer creates a server around store. fetcher resolves speech clips for the audio
// routes and the pre-cache coordinator.
func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store, fetcher *playback.Fetcher) (*Server, error) {
	s := &Server{
		Profile:  profile,
		Store:    store,
		precache: precache.NewCoordinator(fetcher),
	}

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.HTTPErrorHandler = middleware.ErrorHandler
	echoServer.Use(echomiddleware.Recover())
	s.echoServer = echoServer

	metrics := observability.NewMetrics(1000)
	echoServer.Use(middleware.RequestLogger(slog.Default(), metrics))

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	apiV1Service := apiv1.NewAPIV1Service(profile, store, fetcher, s.precache, metrics)
	apiV1Service.RegisterRoutes(echoServer,
		echomiddleware.CORS(),
		newRateLimiter(profile).Middleware(),
	)

	return s, nil
}

func newRateLimiter(profile *profile.Profile) *middleware.RateLimiter {
	if profile.RateLimit <= 0 {
		return middleware.NewRateLimiter()
	}
	return middleware.NewRateLimiterWithLimit(rate.Limit(profile.RateLimit), max(1, int(2*profile.RateLimit)))
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.listener = listener
	s.echoServer.Server.Handler = s.echoServer

	go func() {
		if err := s.echoServer.Server.Serve(listener); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	slog.Info("flashdeck server started", "addr", listener.Addr().String(), "mode", s.Profile.Mode)
	return nil
}

// Shutdown stops accepting requests, cancels pre-caching and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	s.precache.Close()
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
	slog.Info("flashdeck stopped properly")
}
