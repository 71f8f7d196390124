package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCounters(t *testing.T) {
	r := NewRegistry()

	r.ObserveQuery("ranking", 10*time.Millisecond, nil)
	r.ObserveQuery("ranking", 10*time.Millisecond, errors.New("db down"))
	r.ObserveCache(true)
	r.ObserveCache(false)
	r.ObserveCache(false)
	r.ObserveCommand("submit_guess", time.Millisecond, nil)
	r.ObservePublish("dataset.changed")
	r.ObserveHandler("dataset.changed", time.Millisecond, errors.New("boom"))
	r.ObserveJob("rebuild_ranking", time.Second, nil)
	r.ObserveHTTP(http.MethodGet, "/api/v1/ranking", http.StatusOK, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.queries.WithLabelValues("ranking", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.queries.WithLabelValues("ranking", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cache.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.commands.WithLabelValues("submit_guess", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.published.WithLabelValues("dataset.changed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.handled.WithLabelValues("dataset.changed", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.jobs.WithLabelValues("rebuild_ranking", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.requests.WithLabelValues("GET", "/api/v1/ranking", "200")))
}

func TestRegistryHandlerExposesMetrics(t *testing.T) {
	r := NewRegistry()
	r.ObserveCache(true)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `bolao_standings_cache_lookups_total{result="hit"} 1`))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}
