package mastery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/adaptlearn/internal/metrics"
	"github.com/abhisek/adaptlearn/internal/store"
)

// ErrInvalidAttempt is returned for attempts missing a user or quiz.
var ErrInvalidAttempt = errors.New("invalid attempt")

// Service owns all writes to mastery state.
type Service struct {
	states  store.MasteryRepo
	quizzes store.QuizRepo
	params  Params
	locks   *keyedMutex
	log     zerolog.Logger
	now     func() time.Time
}

// NewService creates a mastery service using params for every update.
func NewService(states store.MasteryRepo, quizzes store.QuizRepo, params Params, log zerolog.Logger) *Service {
	return &Service{
		states:  states,
		quizzes: quizzes,
		params:  params,
		locks:   newKeyedMutex(),
		log:     log.With().Str("component", "mastery").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// UpdateMastery applies one observation for (userID, kc) and persists the
// result. Concurrent calls for the same pair are serialized.
func (s *Service) UpdateMastery(ctx context.Context, userID, kc string, correct bool) (*store.MasteryState, error) {
	unlock := s.locks.Lock(userID + "\x00" + kc)
	defer unlock()

	existing, err := s.states.Get(ctx, userID, kc)
	if err != nil {
		return nil, fmt.Errorf("load mastery %s/%s: %w", userID, kc, err)
	}

	prior := s.params.PInit
	attempts := 0
	if existing != nil {
		prior = existing.Mastery
		attempts = existing.Attempts
	}

	st := &store.MasteryState{
		UserID:             userID,
		KnowledgeComponent: kc,
		Mastery:            Update(prior, correct, s.params),
		Attempts:           attempts + 1,
		LastCorrect:        correct,
		UpdatedAt:          s.now(),
	}
	if err := s.states.Upsert(ctx, st); err != nil {
		return nil, fmt.Errorf("save mastery %s/%s: %w", userID, kc, err)
	}

	metrics.RecordMasteryUpdate(correct)
	s.log.Debug().
		Str("user_id", userID).
		Str("kc", kc).
		Bool("correct", correct).
		Float64("prior", prior).
		Float64("mastery", st.Mastery).
		Msg("mastery updated")
	return st, nil
}

// UpdateFromAttempt updates every knowledge component tagged on the
// attempt's quiz questions. A question without an item stat counts as
// incorrect. An unknown quiz fails with store.ErrNotFound. Returns the
// resulting states in update order.
func (s *Service) UpdateFromAttempt(ctx context.Context, attempt *store.Attempt) ([]store.MasteryState, error) {
	if attempt == nil || attempt.UserID == "" || attempt.QuizID == "" {
		return nil, ErrInvalidAttempt
	}
	if _, err := s.quizzes.Get(ctx, attempt.QuizID); err != nil {
		return nil, fmt.Errorf("load quiz for attempt: %w", err)
	}

	questions, err := s.quizzes.Questions(ctx, attempt.QuizID)
	if err != nil {
		return nil, fmt.Errorf("load questions for quiz %s: %w", attempt.QuizID, err)
	}

	var updated []store.MasteryState
	for _, q := range questions {
		correct := attempt.ItemStats[q.ID].Correct
		for _, kc := range uniqueTags(q.Tags) {
			st, err := s.UpdateMastery(ctx, attempt.UserID, kc, correct)
			if err != nil {
				return updated, err
			}
			updated = append(updated, *st)
		}
	}

	s.log.Info().
		Str("user_id", attempt.UserID).
		Str("quiz_id", attempt.QuizID).
		Int("updates", len(updated)).
		Msg("attempt applied to mastery")
	return updated, nil
}

// States returns every mastery state recorded for userID.
func (s *Service) States(ctx context.Context, userID string) ([]store.MasteryState, error) {
	states, err := s.states.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list mastery for %s: %w", userID, err)
	}
	return states, nil
}

// uniqueTags drops empty and repeated tags, keeping first-seen order.
func uniqueTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
