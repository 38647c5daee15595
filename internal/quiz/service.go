package quiz

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/abhisek/adaptlearn/internal/metrics"
	"github.com/abhisek/adaptlearn/internal/store"
)

// AdaptationStrategy names the selection model recorded on each quiz.
const AdaptationStrategy = "IRT-based"

// AdaptiveData describes how a quiz was tailored.
type AdaptiveData struct {
	InitialDifficulty  int     `json:"initial_difficulty"`
	EstimatedAbility   float64 `json:"estimated_ability"`
	AdaptationStrategy string  `json:"adaptation_strategy"`
	MaxQuestions       int     `json:"max_questions"`
}

// AdaptiveQuiz is a quiz with its questions selected for one learner.
type AdaptiveQuiz struct {
	QuizID       string           `json:"quiz_id"`
	Title        string           `json:"title"`
	Questions    []store.Question `json:"questions"`
	AdaptiveData AdaptiveData     `json:"adaptive_data"`
}

// Service generates adaptive quizzes. It only reads state.
type Service struct {
	quizzes      store.QuizRepo
	states       store.MasteryRepo
	maxQuestions int
	log          zerolog.Logger
}

// NewService creates a quiz service. maxQuestions <= 0 uses DefaultMaxQuestions.
func NewService(quizzes store.QuizRepo, states store.MasteryRepo, maxQuestions int, log zerolog.Logger) *Service {
	if maxQuestions <= 0 {
		maxQuestions = DefaultMaxQuestions
	}
	return &Service{
		quizzes:      quizzes,
		states:       states,
		maxQuestions: maxQuestions,
		log:          log.With().Str("component", "quiz").Logger(),
	}
}

// GenerateAdaptiveQuiz selects the most informative questions of quizID for
// userID. A non-nil difficulty overrides the ability-derived target.
// Returns store.ErrNotFound when the quiz does not exist.
func (s *Service) GenerateAdaptiveQuiz(ctx context.Context, quizID, userID string, difficulty *int) (*AdaptiveQuiz, error) {
	q, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}

	states, err := s.states.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load mastery for %s: %w", userID, err)
	}
	theta := EstimateAbility(states)

	target := TargetDifficulty(theta)
	if difficulty != nil {
		target = *difficulty
	}

	pool, err := s.quizzes.Questions(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	limit := s.maxQuestions
	if q.MaxQuestions > 0 {
		limit = q.MaxQuestions
	}
	selected := Select(pool, float64(target), limit)

	metrics.RecordQuiz(len(selected))
	s.log.Info().
		Str("quiz_id", quizID).
		Str("user_id", userID).
		Float64("ability", theta).
		Int("difficulty", target).
		Int("selected", len(selected)).
		Int("pool", len(pool)).
		Msg("adaptive quiz generated")

	return &AdaptiveQuiz{
		QuizID:    q.ID,
		Title:     q.Title,
		Questions: selected,
		AdaptiveData: AdaptiveData{
			InitialDifficulty:  target,
			EstimatedAbility:   theta,
			AdaptationStrategy: AdaptationStrategy,
			MaxQuestions:       limit,
		},
	}, nil
}
