package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersEveryCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := New(registry)
	require.NoError(t, err)

	m.RecordPoll(OutcomeMerged)
	m.RecordPoll(OutcomeMerged)
	m.RecordPoll(OutcomeStale)
	m.SetSeriesPoints(map[string]int{"WORKLOAD1": 10, "WORKLOAD2": 3})
	m.SetCursor(5000)
	m.SetWindowDuration(180_000)
	m.RecordInvocation(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.pollTotal.WithLabelValues(OutcomeMerged)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pollTotal.WithLabelValues(OutcomeStale)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.pollTotal.WithLabelValues(OutcomeTimeout)))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.seriesPoints.WithLabelValues("WORKLOAD1")))
	assert.Equal(t, 5000.0, testutil.ToFloat64(m.cursor))

	expected := `
# HELP loadscope_window_duration_ms Width of the displayed window in milliseconds
# TYPE loadscope_window_duration_ms gauge
loadscope_window_duration_ms 180000
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "loadscope_window_duration_ms"))

	count, err := testutil.GatherAndCount(registry, "loadscope_poll_total")
	require.NoError(t, err)
	assert.Equal(t, len(pollOutcomes), count)
}

func TestNew_DuplicateRegistrationFails(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := New(registry)
	require.NoError(t, err)

	m, err := New(registry)
	assert.Error(t, err)
	assert.NotNil(t, m)
}

func TestNew_WithoutRegisterer(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	m.RecordPoll(OutcomeNotReady)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pollTotal.WithLabelValues(OutcomeNotReady)))
}

func TestInstrumentHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := New(registry)
	require.NoError(t, err)

	handler := m.InstrumentHandler("window", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/window", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/window", nil))

	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "loadscope_http_request_duration_seconds" {
			continue
		}
		require.Len(t, family.GetMetric(), 1)
		assert.Equal(t, uint64(2), family.GetMetric()[0].GetHistogram().GetSampleCount())
		return
	}
	t.Fatal("request duration histogram was not gathered")
}
