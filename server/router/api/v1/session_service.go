package v1

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/flashdeck/plugin/filter"
	"github.com/hrygo/flashdeck/plugin/precache"
	"github.com/hrygo/flashdeck/plugin/review"
	"github.com/hrygo/flashdeck/plugin/study"
	apperrors "github.com/hrygo/flashdeck/server/internal/errors"
	"github.com/hrygo/flashdeck/server/middleware"
)

type SessionResponse struct {
	SetID             string        `json:"set_id"`
	Mode              study.Mode    `json:"mode"`
	Grading           study.Grading `json:"grading"`
	Phase             study.Phase   `json:"phase"`
	Queue             []string      `json:"queue"`
	MasteredIDs       []string      `json:"mastered_ids"`
	CurrentCardID     string        `json:"current_card_id,omitempty"`
	QuestionsAnswered int           `json:"questions_answered"`
	CorrectCount      int           `json:"correct_count"`
	StartedTs         int64         `json:"started_ts"`
	SavedTs           int64         `json:"saved_ts"`
	Card              *CardResponse `json:"card,omitempty"`
}

func (s *APIV1Service) convertQuestion(q *study.Question) *SessionResponse {
	session := q.Session
	resp := &SessionResponse{
		SetID:             session.SetID,
		Mode:              session.Mode,
		Grading:           session.Grading,
		Phase:             session.Phase(),
		Queue:             session.Queue,
		MasteredIDs:       session.MasteredIDs,
		CurrentCardID:     session.CurrentCardID,
		QuestionsAnswered: session.QuestionsAnswered,
		CorrectCount:      session.CorrectCount,
		StartedTs:         session.StartedAt.UnixMilli(),
		SavedTs:           session.SavedAt.UnixMilli(),
	}
	if q.Card != nil {
		resp.Card = convertCard(q.Card, s.now())
	}
	return resp
}

type StartSessionRequest struct {
	SetID   string `json:"set_id"`
	Mode    string `json:"mode"`
	Grading string `json:"grading"`
	// Filter is an optional CEL expression over the card fields.
	Filter string `json:"filter"`
}

// StartSession starts a study pass over a set, replacing the user's previous session.
// POST /api/v1/session
func (s *APIV1Service) StartSession(c echo.Context) error {
	var req StartSessionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.InvalidArgument("invalid request body")
	}
	set, err := s.getUserSet(c, req.SetID)
	if err != nil {
		return err
	}
	mode, err := study.ParseMode(req.Mode)
	if err != nil {
		return convertError(err)
	}
	grading, err := study.ParseGrading(req.Grading)
	if err != nil {
		return convertError(err)
	}
	var cardFilter study.CardFilter
	if req.Filter != "" {
		f, err := filter.Compile(req.Filter)
		if err != nil {
			return apperrors.InvalidArgument(err.Error())
		}
		cardFilter = f.Predicate(s.now())
	}

	ctx := c.Request().Context()
	userID := middleware.UserID(c)
	if _, err := s.Sessions.Start(ctx, userID, set.ID, mode, grading, cardFilter); err != nil {
		return convertError(err)
	}
	q, err := s.Sessions.Current(ctx, userID)
	if err != nil {
		return convertError(err)
	}
	s.warmUpcoming(ctx, q.Session)
	return c.JSON(http.StatusCreated, s.convertQuestion(q))
}

// GetSession returns the user's session and the card awaiting an answer.
// GET /api/v1/session
func (s *APIV1Service) GetSession(c echo.Context) error {
	q, err := s.Sessions.Current(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return convertError(err)
	}
	return c.JSON(http.StatusOK, s.convertQuestion(q))
}

type AnswerSessionRequest struct {
	// Grade is read by sm2 sessions.
	Grade GradeParam `json:"grade"`
	// Correct is read by multiple choice sessions.
	Correct bool `json:"correct"`
}

type AnswerSessionResponse struct {
	Delta   study.Delta      `json:"delta"`
	Session *SessionResponse `json:"session,omitempty"`
}

// AnswerSession records the answer to the current card.
// POST /api/v1/session/answer
func (s *APIV1Service) AnswerSession(c echo.Context) error {
	var req AnswerSessionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.InvalidArgument("invalid request body")
	}

	ctx := c.Request().Context()
	userID := middleware.UserID(c)
	delta, err := s.Sessions.Answer(ctx, userID, study.Outcome{
		Grade:   review.Grade(req.Grade),
		Correct: req.Correct,
	})
	if err != nil {
		return convertError(err)
	}

	resp := &AnswerSessionResponse{Delta: delta}
	if delta.Phase != study.PhaseComplete {
		q, err := s.Sessions.Current(ctx, userID)
		if err != nil && !errors.Is(err, study.ErrNoSession) {
			return convertError(err)
		}
		if q != nil {
			resp.Session = s.convertQuestion(q)
			s.warmUpcoming(ctx, q.Session)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// ContinueSession leaves the batch summary.
// POST /api/v1/session/continue
func (s *APIV1Service) ContinueSession(c echo.Context) error {
	ctx := c.Request().Context()
	userID := middleware.UserID(c)
	if _, err := s.Sessions.Continue(ctx, userID); err != nil {
		return convertError(err)
	}
	q, err := s.Sessions.Current(ctx, userID)
	if err != nil {
		return convertError(err)
	}
	return c.JSON(http.StatusOK, s.convertQuestion(q))
}

// ExitSession leaves the session. With discard=true it is dropped, otherwise it stays
// resumable.
// DELETE /api/v1/session?discard=true
func (s *APIV1Service) ExitSession(c echo.Context) error {
	discard := false
	if raw := c.QueryParam("discard"); raw != "" {
		var err error
		discard, err = strconv.ParseBool(raw)
		if err != nil {
			return apperrors.InvalidArgument("discard must be a boolean")
		}
	}

	ctx := c.Request().Context()
	userID := middleware.UserID(c)
	var err error
	if discard {
		err = s.Sessions.Discard(ctx, userID)
	} else {
		err = s.Sessions.Exit(ctx, userID)
	}
	if err != nil {
		return convertError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// warmUpcoming queues speech for the next cards of session and the starred cards of its set.
func (s *APIV1Service) warmUpcoming(ctx context.Context, session *study.Session) {
	if s.Precache == nil || s.Fetcher == nil || !s.Fetcher.Premium() {
		return
	}
	cards, err := s.Store.ListSetCards(ctx, session.SetID)
	if err != nil {
		slog.Warn("failed to list cards for pre-cache", "set_id", session.SetID, "error", err)
		return
	}
	s.Precache.Enqueue(precache.SelectCandidates(cards, session.Queue, precache.DefaultWindow))
}
