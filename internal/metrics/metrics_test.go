package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTurn(t *testing.T) {
	m := New()

	m.RecordTurn(PathFastPath, true, 120*time.Millisecond)
	m.RecordTurn(PathFastPath, false, 80*time.Millisecond)
	m.RecordTurn(PathResolver, true, 2*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TurnsTotal.WithLabelValues(PathFastPath, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TurnsTotal.WithLabelValues(PathFastPath, "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TurnsTotal.WithLabelValues(PathResolver, "success")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.TurnDuration))
}

func TestConnectionsGauge(t *testing.T) {
	m := New()

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectionsActive))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordTurn(PathVision, true, time.Second)
		m.RecordSynthesis(SynthesisTimeout)
		m.RecordAlert("cpu")
		m.ConnectionOpened()
		m.ConnectionClosed()
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordSynthesis(SynthesisOK)
	m.RecordAlert("battery")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `voiceast_synthesis_total{outcome="ok"} 1`)
	assert.Contains(t, string(body), `voiceast_alerts_total{category="battery"} 1`)
}
