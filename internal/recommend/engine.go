package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/adaptlearn/internal/metrics"
	"github.com/abhisek/adaptlearn/internal/privacy"
	"github.com/abhisek/adaptlearn/internal/store"
)

// ModelVersion tags every persisted recommendation.
const ModelVersion = "contextual_bandit_v1.0"

// weakMastery marks a knowledge component as a weak area.
const weakMastery = 0.4

// ErrInvalidInput is returned for a missing user or a non-positive privacy level.
var ErrInvalidInput = errors.New("invalid recommendation input")

// Engine scores the module catalog for a learner and persists the results.
type Engine struct {
	states   store.MasteryRepo
	attempts store.AttemptRepo
	modules  store.ModuleRepo
	recs     store.RecommendationRepo
	ledger   *privacy.Ledger
	log      zerolog.Logger
	now      func() time.Time
}

// NewEngine wires an engine to its repositories and privacy ledger.
func NewEngine(b store.Backend, ledger *privacy.Ledger, log zerolog.Logger) *Engine {
	return &Engine{
		states:   b.MasteryRepo(),
		attempts: b.AttemptRepo(),
		modules:  b.ModuleRepo(),
		recs:     b.RecommendationRepo(),
		ledger:   ledger,
		log:      log.With().Str("component", "recommend").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Generate scores every catalog module for userID, persists one row per
// module and returns them ranked by confidence. A privacyLevel below the
// noise threshold perturbs the learner context with Laplace noise at
// epsilon = privacyLevel.
func (e *Engine) Generate(ctx context.Context, userID string, privacyLevel float64) ([]store.Recommendation, error) {
	if userID == "" || math.IsNaN(privacyLevel) || math.IsInf(privacyLevel, 0) || privacyLevel <= 0 {
		return nil, fmt.Errorf("%w: user %q privacy level %v", ErrInvalidInput, userID, privacyLevel)
	}

	modules, err := e.modules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load modules: %w", err)
	}
	if len(modules) == 0 {
		return []store.Recommendation{}, nil
	}

	states, err := e.states.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load mastery for %s: %w", userID, err)
	}
	attempts, err := e.attempts.RecentByUser(ctx, userID, velocityWindow)
	if err != nil {
		return nil, fmt.Errorf("load attempts for %s: %w", userID, err)
	}

	c := BuildContext(states, attempts, privacyLevel)
	if e.ledger.Generator().ShouldApply(privacyLevel) {
		if c, err = e.perturb(ctx, userID, c); err != nil {
			return nil, err
		}
	}

	recs := e.score(userID, c, modules, weakAreas(states))
	if err := e.persist(ctx, recs); err != nil {
		return nil, err
	}

	e.log.Info().
		Str("user_id", userID).
		Int("modules", len(recs)).
		Float64("privacy_level", privacyLevel).
		Float64("average_mastery", c.AverageMastery).
		Msg("recommendations generated")
	return recs, nil
}

// NextBest returns the top-ranked recommendation, or nil for an empty catalog.
func (e *Engine) NextBest(ctx context.Context, userID string, privacyLevel float64) (*store.Recommendation, error) {
	recs, err := e.Generate(ctx, userID, privacyLevel)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// Risk loads userID's history and assesses it at the current time.
func (e *Engine) Risk(ctx context.Context, userID string) (Risk, error) {
	states, err := e.states.ListByUser(ctx, userID)
	if err != nil {
		return Risk{}, fmt.Errorf("load mastery for %s: %w", userID, err)
	}
	attempts, err := e.attempts.RecentByUser(ctx, userID, 0)
	if err != nil {
		return Risk{}, fmt.Errorf("load attempts for %s: %w", userID, err)
	}
	return AssessRisk(attempts, states, e.now()), nil
}

func (e *Engine) perturb(ctx context.Context, userID string, c Context) (Context, error) {
	release := func(purpose string, v float64) (float64, error) {
		return e.ledger.Release(ctx, privacy.Request{
			UserID:    userID,
			Operation: "recommendation",
			Purpose:   purpose,
			Epsilon:   c.PrivacyBudget,
		}, v)
	}

	// Released values are clamped back into [0,1].
	avg, err := release("average_mastery", c.AverageMastery)
	if err != nil {
		return c, fmt.Errorf("perturb average mastery: %w", err)
	}
	recent, err := release("recent_performance", c.RecentPerformance)
	if err != nil {
		return c, fmt.Errorf("perturb recent performance: %w", err)
	}
	c.AverageMastery = clamp(avg, 0, 1)
	c.RecentPerformance = clamp(recent, 0, 1)
	return c, nil
}

func (e *Engine) score(userID string, c Context, modules []store.Module, weak map[string]bool) []store.Recommendation {
	type ranked struct {
		rec  store.Recommendation
		weak bool
	}
	createdAt := e.now()
	reason := Reason(c.AverageMastery)

	rs := make([]ranked, len(modules))
	for i, m := range modules {
		d := m.Difficulty
		if d == 0 {
			d = defaultDifficulty
		}
		minutes := m.EstimatedTime
		if minutes == 0 {
			minutes = defaultEstimatedTime
		}
		rs[i] = ranked{
			rec: store.Recommendation{
				UserID:        userID,
				ModuleID:      m.ID,
				Title:         m.Title,
				Reason:        reason,
				Confidence:    Confidence(c, d),
				MasteryGain:   MasteryGain(c, d),
				Difficulty:    d,
				EstimatedTime: minutes,
				ModelVersion:  ModelVersion,
				CreatedAt:     createdAt,
			},
			weak: coversWeakArea(m, weak),
		}
	}

	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].rec.Confidence != rs[j].rec.Confidence {
			return rs[i].rec.Confidence > rs[j].rec.Confidence
		}
		return rs[i].weak && !rs[j].weak
	})

	out := make([]store.Recommendation, len(rs))
	for i := range rs {
		out[i] = rs[i].rec
	}
	return out
}

func (e *Engine) persist(ctx context.Context, recs []store.Recommendation) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range recs {
		rec := &recs[i]
		g.Go(func() error {
			if err := e.recs.Create(gctx, rec); err != nil {
				return fmt.Errorf("save recommendation for module %s: %w", rec.ModuleID, err)
			}
			metrics.RecommendationsTotal.Inc()
			return nil
		})
	}
	return g.Wait()
}

func weakAreas(states []store.MasteryState) map[string]bool {
	weak := make(map[string]bool)
	for _, st := range states {
		if st.Mastery < weakMastery {
			weak[st.KnowledgeComponent] = true
		}
	}
	return weak
}

func coversWeakArea(m store.Module, weak map[string]bool) bool {
	for _, kc := range m.KnowledgeComponents {
		if weak[kc] {
			return true
		}
	}
	return false
}
