package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/flashdeck/internal/profile"
	"github.com/hrygo/flashdeck/plugin/audiocache"
	"github.com/hrygo/flashdeck/plugin/playback"
	"github.com/hrygo/flashdeck/plugin/tts"
	"github.com/hrygo/flashdeck/server/middleware"
	apiv1 "github.com/hrygo/flashdeck/server/router/api/v1"
	"github.com/hrygo/flashdeck/store/test"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	synth   *tts.MockSynthesizer
}

func newTestServer(t *testing.T, premium bool) *testServer {
	t.Helper()
	ctx := context.Background()
	ts := test.NewTestingStore(ctx, t)

	var synth tts.Synthesizer
	mock := tts.NewMockSynthesizer()
	if premium {
		synth = mock
	}
	fetcher := playback.NewFetcher(audiocache.New(audiocache.NewMemoryStore()), synth, playback.WithVoice("v"))

	s, err := NewServer(ctx, &profile.Profile{Mode: "dev", RateLimit: 1000}, ts, fetcher)
	require.NoError(t, err)
	t.Cleanup(s.precache.Close)

	return &testServer{t: t, handler: s.Handler(), synth: mock}
}

func (s *testServer) do(method, path string, body any, userID int32) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set(middleware.HeaderUserID, fmt.Sprint(userID))
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// createSet creates a set holding one card per term and returns the set and card ids.
func (s *testServer) createSet(name string, terms ...string) (string, []string) {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/sets", map[string]any{"name": name}, 0)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	set := decode[apiv1.StudySetResponse](s.t, rec)

	var ids []string
	for _, term := range terms {
		rec := s.do(http.MethodPost, "/api/v1/sets/"+set.ID+"/cards",
			map[string]any{"term": term, "definition": "def of " + term}, 0)
		require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
		ids = append(ids, decode[apiv1.CardResponse](s.t, rec).ID)
	}
	return set.ID, ids
}

func TestServer_Healthz(t *testing.T) {
	s := newTestServer(t, false)
	rec := s.do(http.MethodGet, "/healthz", nil, 0)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Cards(t *testing.T) {
	s := newTestServer(t, false)
	setID, ids := s.createSet("French", "le chat", "le chien")

	rec := s.do(http.MethodGet, "/api/v1/sets/"+setID+"/cards", nil, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Cards []*apiv1.CardResponse `json:"cards"`
	}](t, rec)
	require.Len(t, list.Cards, 2)
	assert.Equal(t, "le chat", list.Cards[0].Term)
	assert.Equal(t, 0, list.Cards[0].Position)
	assert.Equal(t, 1, list.Cards[1].Position)
	require.NotNil(t, list.Cards[0].ReviewStats)
	assert.Equal(t, 2.5, list.Cards[0].ReviewStats.Ease)

	t.Run("markup is sanitized", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/v1/sets/"+setID+"/cards",
			map[string]any{"term": "<b>la</b> maison<script>x()</script>", "definition": "the house"}, 0)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "<b>la</b> maison", decode[apiv1.CardResponse](t, rec).Term)
	})

	t.Run("empty term rejected", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/v1/sets/"+setID+"/cards",
			map[string]any{"term": "<script>x()</script>", "definition": "d"}, 0)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("star a card", func(t *testing.T) {
		rec := s.do(http.MethodPatch, "/api/v1/sets/"+setID+"/cards/"+ids[1], map[string]any{"starred": true}, 0)
		require.Equal(t, http.StatusOK, rec.Code)
		card := decode[apiv1.CardResponse](t, rec)
		assert.True(t, card.Starred)
		assert.Equal(t, "le chien", card.Term)
	})

	t.Run("delete a card", func(t *testing.T) {
		rec := s.do(http.MethodDelete, "/api/v1/sets/"+setID+"/cards/"+ids[0], nil, 0)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = s.do(http.MethodDelete, "/api/v1/sets/"+setID+"/cards/"+ids[0], nil, 0)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("sets are private", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/v1/sets/"+setID+"/cards", nil, 2)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_Reviews(t *testing.T) {
	s := newTestServer(t, false)
	setID, ids := s.createSet("Spanish", "hola", "adios", "gracias")

	rec := s.do(http.MethodGet, "/api/v1/sets/"+setID+"/due", nil, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	due := decode[struct {
		TotalDue int `json:"total_due"`
	}](t, rec)
	assert.Equal(t, 3, due.TotalDue)

	rec = s.do(http.MethodPost, "/api/v1/sets/"+setID+"/reviews", map[string]any{"card_id": ids[0], "grade": 3}, 0)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	card := decode[apiv1.CardResponse](t, rec)
	require.NotNil(t, card.ReviewStats)
	assert.Equal(t, 1, card.ReviewStats.Repetitions)
	assert.Equal(t, 1, card.ReviewStats.IntervalDays)
	assert.False(t, card.Due)

	rec = s.do(http.MethodGet, "/api/v1/sets/"+setID+"/due?limit=1", nil, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[struct {
		Cards    []*apiv1.CardResponse `json:"cards"`
		TotalDue int                   `json:"total_due"`
	}](t, rec)
	assert.Len(t, page.Cards, 1)
	assert.Equal(t, 2, page.TotalDue)

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"grade by name", map[string]any{"card_id": ids[1], "grade": "easy"}, http.StatusOK},
		{"grade out of range", map[string]any{"card_id": ids[1], "grade": 5}, http.StatusBadRequest},
		{"missing grade", map[string]any{"card_id": ids[1]}, http.StatusBadRequest},
		{"unknown card", map[string]any{"card_id": "nope", "grade": 3}, http.StatusNotFound},
		{"missing card id", map[string]any{"grade": 3}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/v1/sets/"+setID+"/reviews", tt.body, 0)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestServer_SessionFlow(t *testing.T) {
	s := newTestServer(t, false)
	setID, ids := s.createSet("German", "eins", "zwei", "drei", "vier", "fünf")

	rec := s.do(http.MethodPost, "/api/v1/session", map[string]any{"set_id": setID, "mode": "all"}, 0)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	session := decode[apiv1.SessionResponse](t, rec)
	assert.Len(t, session.Queue, 5)
	assert.ElementsMatch(t, ids, session.Queue)
	require.NotNil(t, session.Card)
	assert.Equal(t, session.Queue[0], session.Card.ID)

	rec = s.do(http.MethodGet, "/api/v1/session", nil, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.Queue, decode[apiv1.SessionResponse](t, rec).Queue)

	var last map[string]any
	for i := 0; i < 5; i++ {
		rec := s.do(http.MethodPost, "/api/v1/session/answer", map[string]any{"grade": "good"}, 0)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		last = decode[map[string]any](t, rec)
		delta := last["delta"].(map[string]any)
		assert.Equal(t, float64(i+1), delta["questions_answered"])
	}
	assert.Equal(t, "complete", last["delta"].(map[string]any)["phase"])
	assert.Nil(t, last["session"])

	rec = s.do(http.MethodGet, "/api/v1/session", nil, 0)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_SessionErrors(t *testing.T) {
	s := newTestServer(t, false)
	oneCard, _ := s.createSet("Tiny", "solo")
	setID, ids := s.createSet("Italian", "uno", "due", "tre")

	rec := s.do(http.MethodPatch, "/api/v1/sets/"+setID+"/cards/"+ids[0], map[string]any{"starred": true}, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodPatch, "/api/v1/sets/"+setID+"/cards/"+ids[2], map[string]any{"starred": true}, 0)
	require.Equal(t, http.StatusOK, rec.Code)

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"insufficient cards", map[string]any{"set_id": oneCard}, http.StatusConflict},
		{"unknown mode", map[string]any{"set_id": setID, "mode": "random"}, http.StatusBadRequest},
		{"unknown grading", map[string]any{"set_id": setID, "grading": "vibes"}, http.StatusBadRequest},
		{"invalid filter", map[string]any{"set_id": setID, "filter": "starred &&"}, http.StatusBadRequest},
		{"unknown set", map[string]any{"set_id": "missing"}, http.StatusNotFound},
		{"starred mode", map[string]any{"set_id": setID, "mode": "starred"}, http.StatusCreated},
		{"filter", map[string]any{"set_id": setID, "filter": `term != "due"`}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/v1/session", tt.body, 0)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	t.Run("starred queue", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/v1/session", map[string]any{"set_id": setID, "mode": "starred"}, 0)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.ElementsMatch(t, []string{ids[0], ids[2]}, decode[apiv1.SessionResponse](t, rec).Queue)
	})

	t.Run("invalid grade", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/v1/session/answer", map[string]any{"grade": 9}, 0)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("exit keeps the session", func(t *testing.T) {
		rec := s.do(http.MethodDelete, "/api/v1/session", nil, 0)
		require.Equal(t, http.StatusNoContent, rec.Code)
		rec = s.do(http.MethodGet, "/api/v1/session", nil, 0)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("discard drops the session", func(t *testing.T) {
		rec := s.do(http.MethodDelete, "/api/v1/session?discard=true", nil, 0)
		require.Equal(t, http.StatusNoContent, rec.Code)
		rec = s.do(http.MethodGet, "/api/v1/session", nil, 0)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = s.do(http.MethodPost, "/api/v1/session/answer", map[string]any{"grade": 3}, 0)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_Audio(t *testing.T) {
	s := newTestServer(t, true)

	rec := s.do(http.MethodGet, "/api/v1/audio?text=hola", nil, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "premium", rec.Header().Get(apiv1.HeaderSpeechSource))
	assert.Equal(t, "audio:v:hola", rec.Body.String())

	rec = s.do(http.MethodGet, "/api/v1/audio?text=hola", nil, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cache", rec.Header().Get(apiv1.HeaderSpeechSource))
	assert.Equal(t, 1, s.synth.TotalCalls())

	rec = s.do(http.MethodGet, "/api/v1/audio/stats", nil, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[apiv1.AudioStatsResponse](t, rec)
	assert.Equal(t, 1, stats.Cache.Entries)
	assert.True(t, stats.Premium)
	assert.Equal(t, float64(audiocache.DefaultBudgetMB), stats.BudgetMB)

	rec = s.do(http.MethodDelete, "/api/v1/audio", nil, 0)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/api/v1/audio/stats", nil, 0)
	assert.Equal(t, 0, decode[apiv1.AudioStatsResponse](t, rec).Cache.Entries)

	rec = s.do(http.MethodGet, "/api/v1/audio", nil, 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.synth.SetFail(true)
	rec = s.do(http.MethodGet, "/api/v1/audio?text=adios", nil, 0)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "offline", rec.Header().Get(apiv1.HeaderSpeechFallback))
}

func TestServer_AudioWithoutPremium(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(http.MethodGet, "/api/v1/audio?text=hola", nil, 0)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "offline", rec.Header().Get(apiv1.HeaderSpeechFallback))

	setID, _ := s.createSet("Spanish", "hola", "adios")
	rec = s.do(http.MethodPost, "/api/v1/audio/precache/"+setID, nil, 0)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"queued":0,"premium":false}`, rec.Body.String())
}

func TestServer_Precache(t *testing.T) {
	srv := newTestServer(t, true)
	setID, ids := srv.createSet("Spanish", "hola", "adios", "gracias")

	rec := srv.do(http.MethodPost, "/api/v1/audio/precache/"+setID, map[string]any{"upcoming": ids[:2]}, 0)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"queued":2,"premium":true}`, rec.Body.String())

	require.Eventually(t, func() bool {
		return srv.synth.Calls("hola") == 1 && srv.synth.Calls("adios") == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, srv.synth.Calls("gracias"))
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t, false)
	s.do(http.MethodGet, "/api/v1/sets", nil, 0)
	s.do(http.MethodGet, "/api/v1/session", nil, 0)

	rec := s.do(http.MethodGet, "/api/v1/system/metrics", nil, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	overview := decode[apiv1.MetricsOverviewResponse](t, rec)
	assert.Equal(t, int64(2), overview.TotalRequests)
	assert.Equal(t, int64(0), overview.ErrorCount)
}

func TestServer_RateLimit(t *testing.T) {
	ctx := context.Background()
	fetcher := playback.NewFetcher(audiocache.New(audiocache.NewMemoryStore()), nil)
	s, err := NewServer(ctx, &profile.Profile{Mode: "dev", RateLimit: 0.5}, test.NewTestingStore(ctx, t), fetcher)
	require.NoError(t, err)
	t.Cleanup(s.precache.Close)

	srv := &testServer{t: t, handler: s.Handler()}
	assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/v1/sets", nil, 0).Code)
	assert.Equal(t, http.StatusTooManyRequests, srv.do(http.MethodGet, "/api/v1/sets", nil, 0).Code)
	assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/healthz", nil, 0).Code)
}

func TestNewByteStore(t *testing.T) {
	ctx := context.Background()
	ts := test.NewTestingStore(ctx, t)

	t.Run("memory", func(t *testing.T) {
		bs, release, err := NewByteStore(ctx, &profile.Profile{CacheBackend: "memory"}, ts)
		require.NoError(t, err)
		defer release()
		assert.IsType(t, &audiocache.MemoryStore{}, bs)
	})

	t.Run("db", func(t *testing.T) {
		bs, release, err := NewByteStore(ctx, &profile.Profile{CacheBackend: "db"}, ts)
		require.NoError(t, err)
		defer release()

		c := audiocache.New(bs)
		require.True(t, c.Put(ctx, "k", []byte("clip"), 1))
		blob, ok := c.Get(ctx, "k")
		require.True(t, ok)
		assert.Equal(t, []byte("clip"), blob)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		bs, release, err := NewByteStore(ctx, &profile.Profile{CacheBackend: "redis", RedisAddr: mr.Addr()}, ts)
		require.NoError(t, err)
		defer release()

		c := audiocache.New(bs)
		require.True(t, c.Put(ctx, "k", []byte("clip"), 1))
		assert.True(t, c.Contains(ctx, "k"))
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, err := NewByteStore(ctx, &profile.Profile{CacheBackend: "memcached"}, ts)
		assert.Error(t, err)
	})
}
