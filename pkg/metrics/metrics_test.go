package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.ObserveSignature("vault", time.Now(), nil)
	m.ObserveSignature("vault", time.Now(), errors.New("boom"))
	m.ObserveSubmission(KindPublic, nil)
	m.IncGasFallback()
	m.IncGasFallback()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.signatures.WithLabelValues("vault", OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.signatures.WithLabelValues("vault", OutcomeFailure)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.submissions.WithLabelValues(KindPublic, OutcomeSuccess)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.gasFallbacks))
	assert.Equal(t, 1, testutil.CollectAndCount(m.signingDurations))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSignature("node", time.Now(), nil)
		m.ObserveSubmission(KindPrivate, nil)
		m.IncGasFallback()
		assert.NoError(t, m.Push(context.Background(), "http://unused"))
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Push(t *testing.T) {
	var path string
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMetrics()
	m.IncGasFallback()

	require.NoError(t, m.Push(context.Background(), srv.URL))
	assert.Equal(t, "/metrics/job/"+JobName, path)
	assert.NotEmpty(t, body)

	// no gateway configured
	require.NoError(t, m.Push(context.Background(), ""))
}
