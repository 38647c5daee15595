package federated

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/adaptlearn/internal/metrics"
	"github.com/abhisek/adaptlearn/internal/notify"
	"github.com/abhisek/adaptlearn/internal/store"
)

// DefaultMetricsLimit is the number of rounds Metrics reports by default.
const DefaultMetricsLimit = 10

// ErrInvalidInput is returned for out-of-range round parameters.
var ErrInvalidInput = errors.New("invalid training round input")

// RoundSummary is the dashboard view of one round.
type RoundSummary struct {
	RoundNum            int       `json:"round_num"`
	Accuracy            float64   `json:"accuracy"`
	PrivacyBudgetUsed   float64   `json:"privacy_budget_used"`
	ClientsParticipated int       `json:"clients_participated"`
	Status              string    `json:"status"`
	Timestamp           time.Time `json:"timestamp"`
}

// Aggregation describes the simulated FedAvg step of a round.
type Aggregation struct {
	Algorithm      string `json:"algorithm"`
	WeightAveraged bool   `json:"weight_averaged"`
	NoiseAdded     bool   `json:"noise_added"`
}

// Service starts rounds and drives each one to a terminal state in the
// background.
type Service struct {
	rounds   store.RoundRepo
	notifier notify.Notifier
	cfg      Config
	clients  *clientPool
	log      zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	// base is cancelled by Close to abort in-flight rounds.
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates an orchestrator. A nil rng is seeded from runtime
// entropy and a nil notifier discards events.
func NewService(rounds store.RoundRepo, notifier notify.Notifier, cfg Config, rng *rand.Rand, log zerolog.Logger) *Service {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if cfg.RoundTimeout <= 0 {
		cfg.RoundTimeout = DefaultConfig().RoundTimeout
	}
	if cfg.ParticipationRate <= 0 {
		cfg.ParticipationRate = DefaultParticipationRate
	}
	base, cancel := context.WithCancel(context.Background())
	return &Service{
		rounds:   rounds,
		notifier: notifier,
		cfg:      cfg,
		clients:  newClientPool(),
		log:      log.With().Str("component", "federated").Logger(),
		rng:      rng,
		base:     base,
		cancel:   cancel,
	}
}

// StartTrainingRound validates the request, stores a pending round and
// starts its simulation. A nil participationRate uses the configured rate.
// The returned round is the pending record; callers observe progress
// through Metrics or the rounds repository.
func (s *Service) StartTrainingRound(ctx context.Context, clientCount int, dpEpsilon *float64, participationRate *float64) (*store.Round, error) {
	rate := s.cfg.ParticipationRate
	if participationRate != nil {
		rate = *participationRate
	}
	if clientCount < 0 {
		return nil, fmt.Errorf("%w: client count %d", ErrInvalidInput, clientCount)
	}
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return nil, fmt.Errorf("%w: participation rate %v", ErrInvalidInput, rate)
	}
	if dpEpsilon != nil && (math.IsNaN(*dpEpsilon) || math.IsInf(*dpEpsilon, 0) || *dpEpsilon <= 0) {
		return nil, fmt.Errorf("%w: dp epsilon %v", ErrInvalidInput, *dpEpsilon)
	}
	if s.base.Err() != nil {
		return nil, fmt.Errorf("start round: orchestrator closed")
	}

	rd := &store.Round{
		ClientCount:          clientCount,
		ParticipatingClients: int(math.Floor(float64(clientCount) * rate)),
		DPEpsilon:            dpEpsilon,
		Status:               store.RoundPending,
	}
	if err := s.rounds.Create(ctx, rd); err != nil {
		return nil, fmt.Errorf("create round: %w", err)
	}

	s.log.Info().
		Str("round_id", rd.ID).
		Int("round_num", rd.RoundNum).
		Int("clients", rd.ClientCount).
		Int("participating", rd.ParticipatingClients).
		Msg("training round started")
	s.publish(rd, notify.RoundStarted, nil, nil)

	// The goroutine works on its own copy; the caller keeps the pending view.
	pending := *rd
	s.wg.Add(1)
	go s.run(pending)

	return rd, nil
}

// Metrics summarizes the most recent rounds, newest first. limit <= 0
// uses DefaultMetricsLimit.
func (s *Service) Metrics(ctx context.Context, limit int) ([]RoundSummary, error) {
	if limit <= 0 {
		limit = DefaultMetricsLimit
	}
	rounds, err := s.rounds.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}

	out := make([]RoundSummary, len(rounds))
	for i, rd := range rounds {
		sum := RoundSummary{
			RoundNum:            rd.RoundNum,
			ClientsParticipated: rd.ParticipatingClients,
			Status:              rd.Status,
			Timestamp:           rd.StartedAt,
		}
		if rd.GlobalMetrics != nil {
			sum.Accuracy = rd.GlobalMetrics.Accuracy
			sum.PrivacyBudgetUsed = rd.GlobalMetrics.PrivacyBudgetUsed
		}
		if rd.CompletedAt != nil {
			sum.Timestamp = *rd.CompletedAt
		}
		out[i] = sum
	}
	return out, nil
}

// Clients returns the current regional client profiles.
func (s *Service) Clients() []ClientProfile {
	return s.clients.snapshot()
}

// InjectDropout marks region as dropped for subsequent rounds.
func (s *Service) InjectDropout(region string) error {
	err := s.clients.update(region, func(c *ClientProfile) {
		c.Status = ClientDropout
		c.Latency = 0
	})
	if err == nil {
		s.log.Warn().Str("region", region).Msg("client dropout injected")
	}
	return err
}

// InjectLatency sets region's latency for subsequent rounds. A latency
// above 100ms marks the region slow.
func (s *Service) InjectLatency(region string, latency time.Duration) error {
	if latency < 0 {
		return fmt.Errorf("%w: negative latency", ErrInvalidInput)
	}
	err := s.clients.update(region, func(c *ClientProfile) {
		c.Latency = latency
		c.Status = ClientActive
		if latency > 100*time.Millisecond {
			c.Status = ClientSlow
		}
	})
	if err == nil {
		s.log.Warn().Str("region", region).Dur("latency", latency).Msg("client latency injected")
	}
	return err
}

// Wait blocks until every in-flight round has reached a terminal state.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close aborts in-flight rounds, which are marked failed, and waits for
// them to finish.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Service) run(rd store.Round) {
	defer s.wg.Done()
	done := metrics.RoundStarted()

	ctx, cancel := context.WithTimeout(s.base, s.cfg.RoundTimeout)
	defer cancel()

	if err := s.orchestrate(ctx, &rd); err != nil {
		s.fail(&rd, err)
		done(store.RoundFailed)
		return
	}
	done(store.RoundCompleted)
}

func (s *Service) orchestrate(ctx context.Context, rd *store.Round) error {
	if err := s.rounds.Update(ctx, rd.ID, store.RoundUpdate{Status: store.RoundRunning}); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	rd.Status = store.RoundRunning
	s.publish(rd, notify.RoundRunning, nil, nil)

	profiles, err := s.trainClients(ctx)
	if err != nil {
		return fmt.Errorf("client training: %w", err)
	}
	active, slow, dropped := summarize(profiles)
	s.log.Debug().
		Str("round_id", rd.ID).
		Int("active", active).
		Int("slow", slow).
		Int("dropped", dropped).
		Msg("client training finished")

	agg, err := s.aggregate(ctx, rd)
	if err != nil {
		return fmt.Errorf("aggregation: %w", err)
	}
	s.log.Debug().
		Str("round_id", rd.ID).
		Str("algorithm", agg.Algorithm).
		Bool("noise_added", agg.NoiseAdded).
		Msg("aggregation finished")

	gm := s.globalMetrics(rd, profiles)
	completedAt := time.Now().UTC()
	if err := s.rounds.Update(ctx, rd.ID, store.RoundUpdate{
		Status:        store.RoundCompleted,
		GlobalMetrics: &gm,
		CompletedAt:   &completedAt,
	}); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	rd.Status = store.RoundCompleted
	rd.GlobalMetrics = &gm
	rd.CompletedAt = &completedAt

	s.log.Info().
		Str("round_id", rd.ID).
		Int("round_num", rd.RoundNum).
		Float64("accuracy", gm.Accuracy).
		Bool("convergence", gm.Convergence).
		Msg("training round completed")
	s.publish(rd, notify.RoundCompleted, &gm, nil)
	return nil
}

// fail records a terminal failure. The round context may already be done,
// so the write gets its own deadline.
func (s *Service) fail(rd *store.Round, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.log.Error().
		Err(cause).
		Str("round_id", rd.ID).
		Int("round_num", rd.RoundNum).
		Msg("training round failed")

	if err := s.rounds.Update(ctx, rd.ID, store.RoundUpdate{Status: store.RoundFailed}); err != nil {
		s.log.Error().Err(err).Str("round_id", rd.ID).Msg("mark round failed")
	}
	rd.Status = store.RoundFailed
	s.publish(rd, notify.RoundFailed, nil, cause)
}

func (s *Service) trainClients(ctx context.Context) ([]ClientProfile, error) {
	profiles := s.clients.snapshot()
	if err := sleep(ctx, s.cfg.TrainingDelay); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (s *Service) aggregate(ctx context.Context, rd *store.Round) (Aggregation, error) {
	agg := Aggregation{
		Algorithm:      "FedAvg",
		WeightAveraged: true,
		NoiseAdded:     rd.DPEpsilon != nil,
	}
	if err := sleep(ctx, s.cfg.AggregationDelay); err != nil {
		return Aggregation{}, err
	}
	return agg, nil
}

// globalMetrics perturbs the baseline results. Regions dropped or slowed
// beyond their default profile cost completed clients and add latency.
func (s *Service) globalMetrics(rd *store.Round, profiles []ClientProfile) store.GlobalMetrics {
	extraDropped, extraLatency := degradation(profiles)

	s.rngMu.Lock()
	defer s.rngMu.Unlock()

	gm := store.GlobalMetrics{
		Accuracy:         0.873 + (s.rng.Float64()-0.5)*0.02,
		Loss:             0.245 + (s.rng.Float64()-0.5)*0.05,
		Convergence:      s.rng.Float64() > 0.1,
		ClientsCompleted: rd.ParticipatingClients,
	}
	if rd.DPEpsilon != nil {
		gm.PrivacyBudgetUsed = s.rng.Float64()*0.1 + 0.35
	}
	if gm.ClientsCompleted == 0 {
		gm.ClientsCompleted = rd.ClientCount
	}
	if extraDropped > 0 && len(profiles) > 0 {
		lost := gm.ClientsCompleted * extraDropped / len(profiles)
		gm.ClientsCompleted -= lost
	}
	gm.AvgLatency = 120 + s.rng.Float64()*50 + float64(extraLatency.Milliseconds())
	gm.BytesTransferred = int64(math.Floor(s.rng.Float64()*1e6 + 5e5))
	return gm
}

// publish is best effort; delivery failures are logged.
func (s *Service) publish(rd *store.Round, typ string, gm *store.GlobalMetrics, cause error) {
	ev := notify.Event{
		Type:     typ,
		RoundID:  rd.ID,
		RoundNum: rd.RoundNum,
		Status:   rd.Status,
		Metrics:  gm,
		At:       time.Now().UTC(),
	}
	if cause != nil {
		ev.Error = cause.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.notifier.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("round_id", rd.ID).Str("event", typ).Msg("publish round event")
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
