package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-identity"
	"github.com/goliatone/go-identity/metrics"
)

func TestPrometheusCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "test")

	m.ValidationOutcome(identity.OutcomeAccepted)
	m.ValidationOutcome(identity.OutcomeAccepted)
	m.ValidationOutcome(identity.OutcomeSessionInvalid)
	m.ResolutionOutcome(identity.OutcomeCreated)
	m.SessionRefreshed(nil)
	m.SessionRefreshed(errors.New("db down"))
	m.SessionRefreshed(errors.New("db down"))

	expected := `
# HELP test_validations_total Bearer token validations by outcome.
# TYPE test_validations_total counter
test_validations_total{outcome="accepted"} 2
test_validations_total{outcome="session_invalid"} 1
# HELP test_resolutions_total Provider identity resolutions by outcome.
# TYPE test_resolutions_total counter
test_resolutions_total{outcome="created"} 1
# HELP test_session_refreshes_total Detached session refreshes by result.
# TYPE test_session_refreshes_total counter
test_session_refreshes_total{result="failure"} 2
test_session_refreshes_total{result="success"} 1
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"test_validations_total", "test_resolutions_total", "test_session_refreshes_total")
	require.NoError(t, err)
}

func TestPrometheusDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg, "dup")
	assert.Panics(t, func() { metrics.New(reg, "dup") })
}

func TestHandlerServesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "")
	m.ResolutionOutcome(identity.OutcomeLinked)

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `identity_resolutions_total{outcome="linked"} 1`)
}
