// Package engine wires the learning services together behind a single
// entry point that checks who is calling before acting.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/adaptlearn/internal/attemptio"
	"github.com/abhisek/adaptlearn/internal/auth"
	"github.com/abhisek/adaptlearn/internal/config"
	"github.com/abhisek/adaptlearn/internal/federated"
	"github.com/abhisek/adaptlearn/internal/logging"
	"github.com/abhisek/adaptlearn/internal/mastery"
	"github.com/abhisek/adaptlearn/internal/notify"
	"github.com/abhisek/adaptlearn/internal/privacy"
	"github.com/abhisek/adaptlearn/internal/quiz"
	"github.com/abhisek/adaptlearn/internal/recommend"
	"github.com/abhisek/adaptlearn/internal/store"
	"github.com/abhisek/adaptlearn/internal/streak"
)

// ErrForbidden is returned when the caller may not act on the target user
// or operation.
var ErrForbidden = errors.New("forbidden")

// Options overrides collaborators New would otherwise build from config.
// Collaborators passed in are not closed by Engine.Close.
type Options struct {
	Backend  store.Backend
	Notifier notify.Notifier

	// Seed, when non-zero, makes noise and round simulation reproducible.
	Seed uint64
}

// Engine is the application facade.
type Engine struct {
	backend  store.Backend
	notifier notify.Notifier
	verifier *auth.Verifier
	log      zerolog.Logger

	mastery   *mastery.Service
	quizzes   *quiz.Service
	ledger    *privacy.Ledger
	recommend *recommend.Engine
	federated *federated.Service

	closers []func() error
}

// New builds an Engine from cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Engine, error) {
	e := &Engine{log: logging.With("engine")}

	e.backend = opts.Backend
	if e.backend == nil {
		dsn := cfg.Store.DSN
		if store.Driver(cfg.Store.Driver) == store.DriverSQLite && dsn == "" {
			p, err := store.DefaultDBPath()
			if err != nil {
				return nil, fmt.Errorf("resolve DB path: %w", err)
			}
			dsn = p
		}
		b, err := store.New(ctx, store.Driver(cfg.Store.Driver), dsn)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		e.backend = b
		e.closers = append(e.closers, b.Close)
	}

	e.notifier = opts.Notifier
	if e.notifier == nil {
		e.notifier = notify.Noop{}
		if cfg.Notify.RedisAddr != "" {
			r, err := notify.NewRedis(ctx, cfg.Notify.RedisAddr, cfg.Notify.Channel, logging.Logger())
			if err != nil {
				e.Close()
				return nil, fmt.Errorf("connect notifier: %w", err)
			}
			e.notifier = r
			e.closers = append(e.closers, r.Close)
		}
	}

	if cfg.Auth.Secret != "" {
		v, err := auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.verifier = v
	}

	var noiseRand, roundRand *rand.Rand
	if opts.Seed != 0 {
		noiseRand = rand.New(rand.NewPCG(opts.Seed, 1))
		roundRand = rand.New(rand.NewPCG(opts.Seed, 2))
	}

	gen := privacy.NewGenerator(noiseRand, cfg.Privacy.Sensitivity, cfg.Privacy.NoiseThreshold)
	e.ledger = privacy.NewLedger(e.backend.PrivacyLogRepo(), gen, cfg.Privacy.TotalBudget,
		cfg.Privacy.EnforceBudget, logging.Logger())

	e.mastery = mastery.NewService(e.backend.MasteryRepo(), e.backend.QuizRepo(),
		mastery.DefaultParams(), logging.Logger())
	e.quizzes = quiz.NewService(e.backend.QuizRepo(), e.backend.MasteryRepo(),
		cfg.Quiz.MaxQuestions, logging.Logger())
	e.recommend = recommend.NewEngine(e.backend, e.ledger, logging.Logger())
	e.federated = federated.NewService(e.backend.RoundRepo(), e.notifier, federated.Config{
		TrainingDelay:     cfg.Federated.TrainingDelay,
		AggregationDelay:  cfg.Federated.AggregationDelay,
		RoundTimeout:      cfg.Federated.RoundTimeout,
		ParticipationRate: cfg.Federated.ParticipationRate,
	}, roundRand, logging.Logger())

	e.log.Debug().
		Str("store", cfg.Store.Driver).
		Bool("auth", e.verifier != nil).
		Bool("redis", cfg.Notify.RedisAddr != "").
		Msg("engine ready")
	return e, nil
}

// Close aborts in-flight rounds and releases owned collaborators.
func (e *Engine) Close() error {
	if e.federated != nil {
		e.federated.Close()
	}
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	if err := errors.Join(errs...); err != nil {
		e.log.Warn().Err(err).Msg("engine close")
		return err
	}
	return nil
}

// Authenticate verifies a bearer token.
func (e *Engine) Authenticate(token string) (auth.Identity, error) {
	if e.verifier == nil {
		return auth.Identity{}, fmt.Errorf("%w: no auth secret configured", auth.ErrUnauthenticated)
	}
	return e.verifier.Verify(token)
}

// IssueToken mints a token for userID. It is meant for operators holding
// the shared secret.
func (e *Engine) IssueToken(userID, role string) (string, error) {
	if e.verifier == nil {
		return "", errors.New("issue token: no auth secret configured")
	}
	return e.verifier.Issue(userID, role)
}

// GenerateAdaptiveQuiz builds an adaptive instance of quizID for the caller.
func (e *Engine) GenerateAdaptiveQuiz(ctx context.Context, id auth.Identity, quizID string, difficulty *int) (*quiz.AdaptiveQuiz, error) {
	if err := authenticated(id); err != nil {
		return nil, err
	}
	return e.quizzes.GenerateAdaptiveQuiz(ctx, quizID, id.UserID, difficulty)
}

// UpdateMasteryFromAttempt applies a graded attempt to the attempt owner's
// mastery states.
func (e *Engine) UpdateMasteryFromAttempt(ctx context.Context, id auth.Identity, attempt *store.Attempt) ([]store.MasteryState, error) {
	if attempt == nil {
		return nil, mastery.ErrInvalidAttempt
	}
	if err := authorize(id, attempt.UserID); err != nil {
		return nil, err
	}
	return e.mastery.UpdateFromAttempt(ctx, attempt)
}

// SubmitAttempt records the attempt and then applies it to mastery. Nothing
// is stored for an attempt against an unknown quiz.
func (e *Engine) SubmitAttempt(ctx context.Context, id auth.Identity, attempt *store.Attempt) ([]store.MasteryState, error) {
	if attempt == nil {
		return nil, mastery.ErrInvalidAttempt
	}
	if err := authorize(id, attempt.UserID); err != nil {
		return nil, err
	}
	if attempt.QuizID == "" {
		return nil, mastery.ErrInvalidAttempt
	}
	if _, err := e.backend.QuizRepo().Get(ctx, attempt.QuizID); err != nil {
		return nil, fmt.Errorf("submit attempt: %w", err)
	}
	if attempt.CompletedAt == nil {
		now := time.Now().UTC()
		attempt.CompletedAt = &now
	}
	if err := e.backend.AttemptRepo().Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("save attempt: %w", err)
	}
	return e.mastery.UpdateFromAttempt(ctx, attempt)
}

// MasteryReport is a user's mastery states with their summary.
type MasteryReport struct {
	States  []store.MasteryState `json:"states"`
	Summary mastery.Summary      `json:"summary"`
	Risk    recommend.Risk       `json:"risk"`
	Streak  streak.Streak        `json:"streak"`
}

// Mastery returns userID's mastery states, breakdown, risk assessment and
// activity streak.
func (e *Engine) Mastery(ctx context.Context, id auth.Identity, userID string) (*MasteryReport, error) {
	if err := authorize(id, userID); err != nil {
		return nil, err
	}
	states, err := e.mastery.States(ctx, userID)
	if err != nil {
		return nil, err
	}
	risk, err := e.recommend.Risk(ctx, userID)
	if err != nil {
		return nil, err
	}
	attempts, err := e.backend.AttemptRepo().RecentByUser(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("load attempts for %s: %w", userID, err)
	}
	return &MasteryReport{
		States:  states,
		Summary: mastery.Breakdown(states),
		Risk:    risk,
		Streak:  streak.Compute(attempts, time.Now(), time.Local),
	}, nil
}

// GenerateRecommendations scores every module for userID.
func (e *Engine) GenerateRecommendations(ctx context.Context, id auth.Identity, userID string, privacyLevel float64) ([]store.Recommendation, error) {
	if err := authorize(id, userID); err != nil {
		return nil, err
	}
	return e.recommend.Generate(ctx, userID, privacyLevel)
}

// NextBestModule returns the top recommendation for userID, or nil when the
// catalog is empty.
func (e *Engine) NextBestModule(ctx context.Context, id auth.Identity, userID string, privacyLevel float64) (*store.Recommendation, error) {
	if err := authorize(id, userID); err != nil {
		return nil, err
	}
	return e.recommend.NextBest(ctx, userID, privacyLevel)
}

// RecommendationHistory lists stored recommendations for userID, newest first.
func (e *Engine) RecommendationHistory(ctx context.Context, id auth.Identity, userID string, limit int) ([]store.Recommendation, error) {
	if err := authorize(id, userID); err != nil {
		return nil, err
	}
	recs, err := e.backend.RecommendationRepo().ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	return recs, nil
}

// PrivacyBudget reports userID's spent and remaining epsilon.
func (e *Engine) PrivacyBudget(ctx context.Context, id auth.Identity, userID string) (privacy.Budget, error) {
	if err := authorize(id, userID); err != nil {
		return privacy.Budget{}, err
	}
	return e.ledger.Budget(ctx, userID)
}

// ImportCatalog seeds modules, quizzes and questions. Staff only.
func (e *Engine) ImportCatalog(ctx context.Context, id auth.Identity, cat *attemptio.Catalog) (attemptio.ImportStats, error) {
	if err := authenticated(id); err != nil {
		return attemptio.ImportStats{}, err
	}
	if !id.IsStaff() {
		return attemptio.ImportStats{}, fmt.Errorf("import catalog: %w", ErrForbidden)
	}
	return cat.Import(ctx, e.backend.ModuleRepo(), e.backend.QuizRepo())
}

// StartTrainingRound launches a federated round. A nil participationRate
// uses the configured rate. Admin only.
func (e *Engine) StartTrainingRound(ctx context.Context, id auth.Identity, clientCount int, dpEpsilon, participationRate *float64) (*store.Round, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	return e.federated.StartTrainingRound(ctx, clientCount, dpEpsilon, participationRate)
}

// GetFLMetrics summarizes the most recent rounds. Admin only.
func (e *Engine) GetFLMetrics(ctx context.Context, id auth.Identity, limit int) ([]federated.RoundSummary, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	return e.federated.Metrics(ctx, limit)
}

// Clients returns the simulated client regions. Admin only.
func (e *Engine) Clients(id auth.Identity) ([]federated.ClientProfile, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	return e.federated.Clients(), nil
}

// InjectDropout marks region as dropped out. Admin only.
func (e *Engine) InjectDropout(id auth.Identity, region string) error {
	if err := requireAdmin(id); err != nil {
		return err
	}
	return e.federated.InjectDropout(region)
}

// InjectLatency slows region down. Admin only.
func (e *Engine) InjectLatency(id auth.Identity, region string, latency time.Duration) error {
	if err := requireAdmin(id); err != nil {
		return err
	}
	return e.federated.InjectLatency(region, latency)
}

// WaitRounds blocks until every in-flight round has finished.
func (e *Engine) WaitRounds() {
	e.federated.Wait()
}

func authenticated(id auth.Identity) error {
	if id.UserID == "" {
		return auth.ErrUnauthenticated
	}
	return nil
}

func authorize(id auth.Identity, userID string) error {
	if err := authenticated(id); err != nil {
		return err
	}
	if userID != id.UserID && !id.IsStaff() {
		return fmt.Errorf("%s acting on %s: %w", id.UserID, userID, ErrForbidden)
	}
	return nil
}

func requireAdmin(id auth.Identity) error {
	if err := authenticated(id); err != nil {
		return err
	}
	if id.Role != auth.RoleAdmin {
		return fmt.Errorf("role %q: %w", id.Role, ErrForbidden)
	}
	return nil
}
