package privacy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/abhisek/adaptlearn/internal/metrics"
	"github.com/abhisek/adaptlearn/internal/store"
)

// DefaultTotalBudget is the per-user epsilon budget when none is configured.
const DefaultTotalBudget = 10.0

// ErrBudgetExhausted is returned by Release when enforcement is on and the
// release would exceed the user's total budget.
var ErrBudgetExhausted = errors.New("privacy budget exhausted")

// Budget is a user's privacy budget position.
type Budget struct {
	Total     float64 `json:"total"`
	Used      float64 `json:"used"`
	Remaining float64 `json:"remaining"`
}

// Request describes one noisy release.
type Request struct {
	UserID       string
	Operation    string
	Purpose      string
	Epsilon      float64
	DataSubjects int
}

// Ledger adds noise to released values and records each release.
type Ledger struct {
	logs    store.PrivacyLogRepo
	gen     *Generator
	total   float64
	enforce bool
	log     zerolog.Logger

	// mu keeps the budget check and the ledger append atomic.
	mu sync.Mutex
}

// NewLedger creates a ledger over logs. total <= 0 uses DefaultTotalBudget.
func NewLedger(logs store.PrivacyLogRepo, gen *Generator, total float64, enforce bool, log zerolog.Logger) *Ledger {
	if total <= 0 {
		total = DefaultTotalBudget
	}
	return &Ledger{
		logs:    logs,
		gen:     gen,
		total:   total,
		enforce: enforce,
		log:     log.With().Str("component", "privacy").Logger(),
	}
}

// Generator returns the noise source used by the ledger.
func (l *Ledger) Generator() *Generator { return l.gen }

// Budget reports how much of userID's budget has been consumed.
func (l *Ledger) Budget(ctx context.Context, userID string) (Budget, error) {
	used, err := l.logs.EpsilonUsed(ctx, userID)
	if err != nil {
		return Budget{}, fmt.Errorf("load privacy budget for %s: %w", userID, err)
	}
	return Budget{
		Total:     l.total,
		Used:      used,
		Remaining: max(l.total-used, 0),
	}, nil
}

// Release returns value with Laplace noise for req.Epsilon added and logs
// the spend. With enforcement on, a release past the budget fails with
// ErrBudgetExhausted before any noise is drawn.
func (l *Ledger) Release(ctx context.Context, req Request, value float64) (float64, error) {
	if err := validEpsilon(req.Epsilon); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.enforce {
		b, err := l.Budget(ctx, req.UserID)
		if err != nil {
			return 0, err
		}
		if b.Used+req.Epsilon > b.Total {
			l.log.Warn().
				Str("user_id", req.UserID).
				Str("operation", req.Operation).
				Float64("used", b.Used).
				Float64("epsilon", req.Epsilon).
				Msg("release rejected, budget exhausted")
			return 0, fmt.Errorf("%s for %s: %w", req.Operation, req.UserID, ErrBudgetExhausted)
		}
	}

	noise, err := l.gen.Laplace(req.Epsilon)
	if err != nil {
		return 0, err
	}
	scale, _ := l.gen.Scale(req.Epsilon)

	if err := l.logs.Append(ctx, &store.PrivacyLog{
		UserID:       req.UserID,
		Operation:    req.Operation,
		EpsilonUsed:  req.Epsilon,
		NoiseLevel:   scale,
		DataSubjects: req.DataSubjects,
		Purpose:      req.Purpose,
	}); err != nil {
		return 0, fmt.Errorf("record privacy release: %w", err)
	}

	metrics.RecordNoise(req.Operation, req.Epsilon)
	return value + noise, nil
}
