package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSubmission(t *testing.T) {
	m := New()
	m.ObserveSubmission("created")
	m.ObserveSubmission("created")
	m.ObserveSubmission("cooldown")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submissions.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("cooldown")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/tutors/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tutors/7", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("GET", "/tutors/{id}", "418")))
}

func TestHandlerExposesPoolStats(t *testing.T) {
	m := New()
	m.RegisterPoolStats(func() *pgxpool.Stat { return nil })
	m.ObserveSubmission("updated")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `rating_submissions_total{outcome="updated"} 1`))
	assert.True(t, strings.Contains(body, "db_pool_total_conns 0"))
}

func TestMiddlewareCollapsesUnmatchedPaths(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/tutors", func(w http.ResponseWriter, r *http.Request) {})

	for _, path := range []string{"/x1", "/random/a/b", "/x3?q=1"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.requestTotal))
}
