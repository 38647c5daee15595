// Package notify publishes engine lifecycle events to subscribers.
package notify

import (
	"context"
	"time"

	"github.com/abhisek/adaptlearn/internal/store"
)

// Event types.
const (
	RoundStarted   = "fl.round.started"
	RoundRunning   = "fl.round.running"
	RoundCompleted = "fl.round.completed"
	RoundFailed    = "fl.round.failed"
)

// Event describes a federated round state change.
type Event struct {
	Type     string               `json:"type"`
	RoundID  string               `json:"round_id"`
	RoundNum int                  `json:"round_num"`
	Status   string               `json:"status"`
	Metrics  *store.GlobalMetrics `json:"metrics,omitempty"`
	Error    string               `json:"error,omitempty"`
	At       time.Time            `json:"at"`
}

// Notifier delivers events. Implementations must be safe for concurrent use.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
