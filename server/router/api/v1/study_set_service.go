package v1

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/flashdeck/plugin/review"
	apperrors "github.com/hrygo/flashdeck/server/internal/errors"
	"github.com/hrygo/flashdeck/server/middleware"
	"github.com/hrygo/flashdeck/store"
)

// MaxCardTextLength bounds the term and definition of a card, in characters.
const MaxCardTextLength = 2000

type StudySetResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedTs int64  `json:"created_ts"`
}

type ReviewStatsResponse struct {
	Ease           float64 `json:"ease"`
	IntervalDays   int     `json:"interval_days"`
	DueTs          int64   `json:"due_ts"`
	Repetitions    int     `json:"repetitions"`
	LastReviewedTs *int64  `json:"last_reviewed_ts,omitempty"`
}

type CardResponse struct {
	ID           string               `json:"id"`
	SetID        string               `json:"set_id"`
	Position     int                  `json:"position"`
	Term         string               `json:"term"`
	Definition   string               `json:"definition"`
	Starred      bool                 `json:"starred"`
	ReviewStats  *ReviewStatsResponse `json:"review_stats,omitempty"`
	Due          bool                 `json:"due"`
	MasteryLevel int                  `json:"mastery_level"`
	MasteryCount int                  `json:"mastery_count"`
	CreatedTs    int64                `json:"created_ts"`
	UpdatedTs    int64                `json:"updated_ts"`
}

func convertStudySet(set *store.StudySet) *StudySetResponse {
	return &StudySetResponse{ID: set.ID, Name: set.Name, CreatedTs: set.CreatedTs}
}

func convertCard(card *store.Card, now time.Time) *CardResponse {
	resp := &CardResponse{
		ID:           card.ID,
		SetID:        card.SetID,
		Position:     card.Position,
		Term:         card.Term,
		Definition:   card.Definition,
		Starred:      card.Starred,
		MasteryCount: card.MasteryCount,
		CreatedTs:    card.CreatedTs,
		UpdatedTs:    card.UpdatedTs,
	}
	stats := review.FromStore(card.Stats)
	resp.Due = review.IsDue(stats, now)
	if stats != nil {
		resp.MasteryLevel = review.MasteryLevel(*stats)
		resp.ReviewStats = &ReviewStatsResponse{
			Ease:           card.Stats.Ease,
			IntervalDays:   card.Stats.IntervalDays,
			DueTs:          card.Stats.DueTs,
			Repetitions:    card.Stats.Repetitions,
			LastReviewedTs: card.Stats.LastReviewedTs,
		}
	}
	return resp
}

func convertCards(cards []*store.Card, now time.Time) []*CardResponse {
	list := make([]*CardResponse, 0, len(cards))
	for _, card := range cards {
		list = append(list, convertCard(card, now))
	}
	return list
}

// sanitizeCardText strips unsafe markup and validates the result.
func (s *APIV1Service) sanitizeCardText(field, input string) (string, error) {
	sanitized := strings.TrimSpace(s.sanitizer.Sanitize(input))
	if sanitized == "" {
		return "", apperrors.InvalidArgument(field + " is empty or unsafe")
	}
	if len([]rune(sanitized)) > MaxCardTextLength {
		return "", apperrors.InvalidArgument(field + " is too long").WithContext("max", MaxCardTextLength)
	}
	return sanitized, nil
}

// ListStudySets returns the sets of the requesting user.
// GET /api/v1/sets
func (s *APIV1Service) ListStudySets(c echo.Context) error {
	userID := middleware.UserID(c)
	sets, err := s.Store.ListStudySets(c.Request().Context(), &store.FindStudySet{UserID: &userID})
	if err != nil {
		return convertError(err)
	}
	list := make([]*StudySetResponse, 0, len(sets))
	for _, set := range sets {
		list = append(list, convertStudySet(set))
	}
	return c.JSON(http.StatusOK, map[string]any{"sets": list})
}

type CreateStudySetRequest struct {
	Name string `json:"name"`
}

// CreateStudySet creates an empty set.
// POST /api/v1/sets
func (s *APIV1Service) CreateStudySet(c echo.Context) error {
	var req CreateStudySetRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.InvalidArgument("invalid request body")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return apperrors.InvalidArgument("name is required")
	}

	set, err := s.Store.CreateStudySet(c.Request().Context(), &store.StudySet{
		UserID: middleware.UserID(c),
		Name:   name,
	})
	if err != nil {
		return convertError(err)
	}
	return c.JSON(http.StatusCreated, convertStudySet(set))
}

// ListCards returns the cards of a set in collection order.
// GET /api/v1/sets/:set/cards
func (s *APIV1Service) ListCards(c echo.Context) error {
	set, err := s.getUserSet(c, c.Param("set"))
	if err != nil {
		return err
	}
	cards, err := s.Store.ListSetCards(c.Request().Context(), set.ID)
	if err != nil {
		return convertError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"cards": convertCards(cards, s.now())})
}

type CreateCardRequest struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
	Starred    bool   `json:"starred"`
}

// CreateCard appends a card to a set.
// POST /api/v1/sets/:set/cards
func (s *APIV1Service) CreateCard(c echo.Context) error {
	set, err := s.getUserSet(c, c.Param("set"))
	if err != nil {
		return err
	}
	var req CreateCardRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.InvalidArgument("invalid request body")
	}
	term, err := s.sanitizeCardText("term", req.Term)
	if err != nil {
		return err
	}
	definition, err := s.sanitizeCardText("definition", req.Definition)
	if err != nil {
		return err
	}

	card, err := s.Store.CreateCard(c.Request().Context(), &store.Card{
		SetID:      set.ID,
		Term:       term,
		Definition: definition,
		Starred:    req.Starred,
	})
	if err != nil {
		return convertError(err)
	}
	return c.JSON(http.StatusCreated, convertCard(card, s.now()))
}

type UpdateCardRequest struct {
	Term       *string `json:"term"`
	Definition *string `json:"definition"`
	Starred    *bool   `json:"starred"`
}

// UpdateCard edits the text or star of a card. Review state is left untouched.
// PATCH /api/v1/sets/:set/cards/:card
func (s *APIV1Service) UpdateCard(c echo.Context) error {
	set, err := s.getUserSet(c, c.Param("set"))
	if err != nil {
		return err
	}
	var req UpdateCardRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.InvalidArgument("invalid request body")
	}

	if req.Term == nil && req.Definition == nil && req.Starred == nil {
		return apperrors.InvalidArgument("nothing to update")
	}
	update := &store.UpdateCard{ID: c.Param("card"), SetID: set.ID, Starred: req.Starred}
	if req.Term != nil {
		term, err := s.sanitizeCardText("term", *req.Term)
		if err != nil {
			return err
		}
		update.Term = &term
	}
	if req.Definition != nil {
		definition, err := s.sanitizeCardText("definition", *req.Definition)
		if err != nil {
			return err
		}
		update.Definition = &definition
	}

	card, err := s.Store.UpdateCard(c.Request().Context(), update)
	if err != nil {
		return convertError(err)
	}
	if card == nil {
		return apperrors.NotFound("card not found").WithContext("card_id", update.ID)
	}
	return c.JSON(http.StatusOK, convertCard(card, s.now()))
}

// DeleteCard removes a card from a set. Sessions skip it from then on.
// DELETE /api/v1/sets/:set/cards/:card
func (s *APIV1Service) DeleteCard(c echo.Context) error {
	set, err := s.getUserSet(c, c.Param("set"))
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	cardID := c.Param("card")
	card, err := s.Store.GetCard(ctx, set.ID, cardID)
	if err != nil {
		return convertError(err)
	}
	if card == nil {
		return apperrors.NotFound("card not found").WithContext("card_id", cardID)
	}
	if err := s.Store.DeleteCard(ctx, &store.DeleteCard{ID: cardID, SetID: set.ID}); err != nil {
		return convertError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListDueCards returns the cards due for review, most overdue first.
// GET /api/v1/sets/:set/due?limit=20
func (s *APIV1Service) ListDueCards(c echo.Context) error {
	set, err := s.getUserSet(c, c.Param("set"))
	if err != nil {
		return err
	}
	limit := review.DefaultDueLimit
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return apperrors.InvalidArgument("limit must be a positive integer")
		}
	}

	cards, totalDue, err := s.Reviews.ListDueCards(c.Request().Context(), set.ID, limit)
	if err != nil {
		return convertError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"cards":     convertCards(cards, s.now()),
		"total_due": totalDue,
	})
}

type RecordReviewRequest struct {
	CardID string     `json:"card_id"`
	Grade  GradeParam `json:"grade"`
}

// RecordReview applies a graded review to a card outside of a session.
// POST /api/v1/sets/:set/reviews
func (s *APIV1Service) RecordReview(c echo.Context) error {
	set, err := s.getUserSet(c, c.Param("set"))
	if err != nil {
		return err
	}
	var req RecordReviewRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.InvalidArgument("invalid request body: " + err.Error())
	}
	if req.CardID == "" {
		return apperrors.InvalidArgument("card_id is required")
	}

	card, err := s.Reviews.RecordReview(c.Request().Context(), set.ID, req.CardID, review.Grade(req.Grade))
	if err != nil {
		return convertError(err)
	}
	return c.JSON(http.StatusOK, convertCard(card, s.now()))
}
