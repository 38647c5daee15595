// Package federated simulates federated-learning training rounds and keeps
// their lifecycle and aggregate metrics.
package federated

import "time"

// Config tunes round simulation.
type Config struct {
	TrainingDelay    time.Duration
	AggregationDelay time.Duration
	RoundTimeout     time.Duration

	// ParticipationRate applies to rounds started without an explicit rate.
	// Zero means DefaultParticipationRate.
	ParticipationRate float64
}

// DefaultParticipationRate is the share of clients taking part in a round
// when neither the caller nor the config sets one.
const DefaultParticipationRate = 0.8

// DefaultConfig returns production simulation timings.
func DefaultConfig() Config {
	return Config{
		TrainingDelay:     3 * time.Second,
		AggregationDelay:  2 * time.Second,
		RoundTimeout:      30 * time.Second,
		ParticipationRate: DefaultParticipationRate,
	}
}
