package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics(10)
	m.RecordRequest("GET /api/v1/session", 10*time.Millisecond, false)
	m.RecordRequest("GET /api/v1/session", 30*time.Millisecond, true)
	m.RecordRequest("POST /api/v1/session/answer", 20*time.Millisecond, false)

	s := m.Snapshot()
	assert.Equal(t, int64(3), s.RequestTotal)
	assert.Equal(t, int64(1), s.RequestFailed)
	assert.InDelta(t, 66.67, s.SuccessRate(), 0.01)
	assert.Equal(t, 20*time.Millisecond, s.P50)
	assert.Equal(t, 20*time.Millisecond, s.P95)

	route := s.Routes["GET /api/v1/session"]
	if assert.NotNil(t, route) {
		assert.Equal(t, int64(2), route.RequestCount)
		assert.Equal(t, int64(1), route.ErrorCount)
		assert.Equal(t, int64(20), route.AverageDuration)
	}
}

func TestMetrics_DurationWindow(t *testing.T) {
	m := NewMetrics(2)
	for i := 1; i <= 5; i++ {
		m.RecordRequest("r", time.Duration(i)*time.Millisecond, false)
	}
	s := m.Snapshot()
	assert.Equal(t, 2, s.DurationCount)
	assert.Equal(t, 4*time.Millisecond, s.P50)

	m.Reset()
	s = m.Snapshot()
	assert.Equal(t, int64(0), s.RequestTotal)
	assert.Equal(t, 100.0, s.SuccessRate())
}
