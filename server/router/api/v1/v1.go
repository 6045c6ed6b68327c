package v1

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hrygo/flashdeck/internal/profile"
	"github.com/hrygo/flashdeck/plugin/playback"
	"github.com/hrygo/flashdeck/plugin/precache"
	"github.com/hrygo/flashdeck/plugin/review"
	"github.com/hrygo/flashdeck/plugin/study"
	apperrors "github.com/hrygo/flashdeck/server/internal/errors"
	"github.com/hrygo/flashdeck/server/internal/observability"
	"github.com/hrygo/flashdeck/server/middleware"
	"github.com/hrygo/flashdeck/store"
)

// APIV1Service serves the JSON API under /api/v1.
type APIV1Service struct {
	Profile  *profile.Profile
	Store    *store.Store
	Reviews  *review.Service
	Sessions *study.Manager
	Fetcher  *playback.Fetcher
	Precache *precache.Coordinator
	Metrics  *observability.Metrics

	sanitizer *bluemonday.Policy
	now       func() time.Time
}

// NewAPIV1Service creates the API service. Sessions are persisted in store.
func NewAPIV1Service(profile *profile.Profile, store *store.Store, fetcher *playback.Fetcher, coordinator *precache.Coordinator, metrics *observability.Metrics) *APIV1Service {
	return &APIV1Service{
		Profile:   profile,
		Store:     store,
		Reviews:   review.NewService(store),
		Sessions:  study.NewManager(store, store),
		Fetcher:   fetcher,
		Precache:  coordinator,
		Metrics:   metrics,
		sanitizer: bluemonday.UGCPolicy(),
		now:       time.Now,
	}
}

// RegisterRoutes registers the API routes on echoServer.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo, middlewares ...echo.MiddlewareFunc) {
	g := echoServer.Group("/api/v1", middlewares...)

	g.GET("/sets", s.ListStudySets)
	g.POST("/sets", s.CreateStudySet)
	g.GET("/sets/:set/cards", s.ListCards)
	g.POST("/sets/:set/cards", s.CreateCard)
	g.PATCH("/sets/:set/cards/:card", s.UpdateCard)
	g.DELETE("/sets/:set/cards/:card", s.DeleteCard)
	g.GET("/sets/:set/due", s.ListDueCards)
	g.POST("/sets/:set/reviews", s.RecordReview)

	g.POST("/session", s.StartSession)
	g.GET("/session", s.GetSession)
	g.POST("/session/answer", s.AnswerSession)
	g.POST("/session/continue", s.ContinueSession)
	g.DELETE("/session", s.ExitSession)

	g.GET("/audio", s.GetAudio)
	g.DELETE("/audio", s.ClearAudio)
	g.GET("/audio/stats", s.GetAudioStats)
	g.POST("/audio/precache/:set", s.PrecacheSet)

	g.GET("/system/metrics", s.GetMetricsOverview)
}

// convertError maps domain errors to API errors.
func convertError(err error) error {
	var appErr *apperrors.AppError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, review.ErrInvalidGrade), errors.Is(err, study.ErrInvalidMode):
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidArgument, err.Error())
	case errors.Is(err, study.ErrInsufficientCards),
		errors.Is(err, store.ErrSetFull),
		errors.Is(err, study.ErrSummaryPending),
		errors.Is(err, study.ErrSessionComplete):
		return apperrors.Wrap(err, apperrors.ErrCodeFailedPrecondition, err.Error())
	case errors.Is(err, study.ErrNoSession), errors.Is(err, review.ErrCardNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, err.Error())
	case errors.Is(err, store.ErrStoreOffline):
		return apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "storage unavailable")
	case errors.Is(err, context.Canceled):
		return apperrors.ContextCanceled(err)
	default:
		return apperrors.Internal("internal error", err)
	}
}

// getUserSet returns the set when it exists and belongs to the requesting user.
func (s *APIV1Service) getUserSet(c echo.Context, setID string) (*store.StudySet, error) {
	set, err := s.Store.GetStudySet(c.Request().Context(), setID)
	if err != nil {
		return nil, convertError(err)
	}
	if set == nil || set.UserID != middleware.UserID(c) {
		return nil, apperrors.NotFound("study set not found").WithContext("set_id", setID)
	}
	return set, nil
}
