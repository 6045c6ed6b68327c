package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/flashdeck/plugin/audiocache"
	"github.com/hrygo/flashdeck/plugin/playback"
	"github.com/hrygo/flashdeck/plugin/precache"
	"github.com/hrygo/flashdeck/plugin/tts"
	apperrors "github.com/hrygo/flashdeck/server/internal/errors"
	"github.com/hrygo/flashdeck/server/internal/observability"
)

const (
	// HeaderSpeechSource tells whether a clip came from the cache or the premium synthesizer.
	HeaderSpeechSource = "X-Speech-Source"
	// HeaderSpeechFallback asks the client to speak the text with its offline engine.
	HeaderSpeechFallback = "X-Speech-Fallback"

	audioContentType = "audio/mpeg"
)

// GetAudio returns the speech clip for a text, from the cache or freshly synthesized.
// When no clip can be produced it answers 204 with X-Speech-Fallback: offline.
// GET /api/v1/audio?text=...&voice=...
func (s *APIV1Service) GetAudio(c echo.Context) error {
	text := c.QueryParam("text")
	if strings.TrimSpace(text) == "" {
		return apperrors.InvalidArgument("text is required")
	}
	ctx := c.Request().Context()

	blob, source, err := s.Fetcher.Fetch(ctx, text, c.QueryParam("voice"))
	switch {
	case err == nil:
		c.Response().Header().Set(HeaderSpeechSource, string(source))
		return c.Blob(http.StatusOK, audioContentType, blob)
	case errors.Is(err, playback.ErrNothingToSpeak):
		return apperrors.InvalidArgument("text has nothing to speak")
	case errors.Is(err, playback.ErrPremiumDisabled), errors.Is(err, tts.ErrSynthesisFailed):
		observability.LoggerFromContext(ctx).Info("speech falls back to offline", "error", err)
		c.Response().Header().Set(HeaderSpeechFallback, string(playback.SourceOffline))
		return c.NoContent(http.StatusNoContent)
	default:
		return convertError(err)
	}
}

// ClearAudio drops every cached clip.
// DELETE /api/v1/audio
func (s *APIV1Service) ClearAudio(c echo.Context) error {
	s.Fetcher.Cache().Clear(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

type AudioStatsResponse struct {
	Cache    audiocache.Stats `json:"cache"`
	BudgetMB float64          `json:"budget_mb"`
	Premium  bool             `json:"premium"`
	Precache precache.Stats   `json:"precache"`
}

// GetAudioStats reports the audio cache usage.
// GET /api/v1/audio/stats
func (s *APIV1Service) GetAudioStats(c echo.Context) error {
	resp := &AudioStatsResponse{
		Cache:    s.Fetcher.Cache().Stats(c.Request().Context()),
		BudgetMB: s.Fetcher.Budget(),
		Premium:  s.Fetcher.Premium(),
	}
	if s.Precache != nil {
		resp.Precache = s.Precache.Stats()
	}
	return c.JSON(http.StatusOK, resp)
}

type PrecacheSetRequest struct {
	// Upcoming lists the card ids expected next, most imminent first.
	Upcoming []string `json:"upcoming"`
}

// PrecacheSet queues speech for the upcoming and starred cards of a set.
// POST /api/v1/audio/precache/:set
func (s *APIV1Service) PrecacheSet(c echo.Context) error {
	set, err := s.getUserSet(c, c.Param("set"))
	if err != nil {
		return err
	}
	var req PrecacheSetRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return apperrors.InvalidArgument("invalid request body")
		}
	}

	queued := 0
	if s.Precache != nil && s.Fetcher.Premium() {
		cards, err := s.Store.ListSetCards(c.Request().Context(), set.ID)
		if err != nil {
			return convertError(err)
		}
		queued = s.Precache.Enqueue(precache.SelectCandidates(cards, req.Upcoming, precache.DefaultWindow))
	}
	return c.JSON(http.StatusAccepted, map[string]any{
		"queued":  queued,
		"premium": s.Fetcher.Premium(),
	})
}
