package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordMasteryUpdate(t *testing.T) {
	correct := MasteryUpdatesTotal.WithLabelValues("correct")
	incorrect := MasteryUpdatesTotal.WithLabelValues("incorrect")
	beforeC, beforeI := testutil.ToFloat64(correct), testutil.ToFloat64(incorrect)

	RecordMasteryUpdate(true)
	RecordMasteryUpdate(true)
	RecordMasteryUpdate(false)

	assert.Equal(t, beforeC+2, testutil.ToFloat64(correct))
	assert.Equal(t, beforeI+1, testutil.ToFloat64(incorrect))
}

func TestRecordNoise(t *testing.T) {
	before := testutil.ToFloat64(EpsilonSpentTotal)
	releases := NoiseReleasesTotal.WithLabelValues("recommendation")
	beforeReleases := testutil.ToFloat64(releases)

	RecordNoise("recommendation", 1.5)

	assert.InDelta(t, before+1.5, testutil.ToFloat64(EpsilonSpentTotal), 1e-9)
	assert.Equal(t, beforeReleases+1, testutil.ToFloat64(releases))
}

func TestRoundStarted(t *testing.T) {
	inFlight := testutil.ToFloat64(FLRoundsInFlight)
	completed := testutil.ToFloat64(FLRoundsTotal.WithLabelValues("completed"))

	done := RoundStarted()
	assert.Equal(t, inFlight+1, testutil.ToFloat64(FLRoundsInFlight))

	done("completed")
	assert.Equal(t, inFlight, testutil.ToFloat64(FLRoundsInFlight))
	assert.Equal(t, completed+1, testutil.ToFloat64(FLRoundsTotal.WithLabelValues("completed")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordQuiz(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "adaptlearn_quizzes_generated_total"))
}
