// Package metrics exposes Prometheus instrumentation for the learning engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MasteryUpdatesTotal counts BKT updates by observed outcome.
	MasteryUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adaptlearn_mastery_updates_total",
		Help: "Total number of BKT mastery updates",
	}, []string{"outcome"})

	// QuizzesGeneratedTotal counts adaptive quizzes served.
	QuizzesGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adaptlearn_quizzes_generated_total",
		Help: "Total number of adaptive quizzes generated",
	})

	// QuizQuestionsSelected observes how many questions each quiz selection returned.
	QuizQuestionsSelected = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "adaptlearn_quiz_questions_selected",
		Help:    "Number of questions selected per adaptive quiz",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	})

	// RecommendationsTotal counts persisted recommendation rows.
	RecommendationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adaptlearn_recommendations_total",
		Help: "Total number of recommendations persisted",
	})

	// NoiseReleasesTotal counts differentially private releases by operation.
	NoiseReleasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adaptlearn_privacy_noise_releases_total",
		Help: "Total number of Laplace noise releases",
	}, []string{"operation"})

	// EpsilonSpentTotal sums the epsilon consumed across all releases.
	EpsilonSpentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adaptlearn_privacy_epsilon_spent_total",
		Help: "Total privacy budget (epsilon) consumed",
	})

	// FLRoundsTotal counts federated rounds by terminal status.
	FLRoundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adaptlearn_fl_rounds_total",
		Help: "Total number of federated rounds by final status",
	}, []string{"status"})

	// FLRoundsInFlight is the number of rounds currently orchestrating.
	FLRoundsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "adaptlearn_fl_rounds_in_flight",
		Help: "Number of federated rounds currently running",
	})

	// FLRoundDuration measures orchestration time from start to a terminal state.
	FLRoundDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "adaptlearn_fl_round_duration_seconds",
		Help:    "Federated round orchestration duration in seconds",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
)

// RecordMasteryUpdate increments the update counter for one observation.
func RecordMasteryUpdate(correct bool) {
	outcome := "incorrect"
	if correct {
		outcome = "correct"
	}
	MasteryUpdatesTotal.WithLabelValues(outcome).Inc()
}

// RecordQuiz records one generated quiz and its selection size.
func RecordQuiz(selected int) {
	QuizzesGeneratedTotal.Inc()
	QuizQuestionsSelected.Observe(float64(selected))
}

// RecordNoise records a Laplace release for operation.
func RecordNoise(operation string, epsilon float64) {
	NoiseReleasesTotal.WithLabelValues(operation).Inc()
	EpsilonSpentTotal.Add(epsilon)
}

// RoundStarted marks a round as in flight and returns a function that
// records its terminal status and duration.
func RoundStarted() func(status string) {
	start := time.Now()
	FLRoundsInFlight.Inc()
	return func(status string) {
		FLRoundsInFlight.Dec()
		FLRoundsTotal.WithLabelValues(status).Inc()
		FLRoundDuration.Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
