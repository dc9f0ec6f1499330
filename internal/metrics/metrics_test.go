package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecordsOutcomes(t *testing.T) {
	c := NewCollector("genart")
	c.ScanFinished(12, 1, 3*time.Millisecond, nil)
	c.ScanFinished(0, 0, time.Millisecond, errors.New("permission denied"))
	c.PollFinished(20*time.Millisecond, nil)
	c.PollFinished(20*time.Millisecond, errors.New("timeout"))
	c.PollFinished(20*time.Millisecond, errors.New("timeout"))
	c.RecordHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.scansTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.scansTotal.WithLabelValues("error")))
	assert.Equal(t, 12.0, testutil.ToFloat64(c.artworks))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.skippedSidecars))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.pollsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("GET", "/", "200")))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector("genart")
	b := NewCollector("genart")
	a.PollFinished(time.Millisecond, nil)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.pollsTotal.WithLabelValues("ok")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector("genart")
	c.ScanFinished(3, 0, time.Millisecond, nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "genart_gallery_artworks 3"))
}
