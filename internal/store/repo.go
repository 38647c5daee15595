package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a referenced quiz, question, round or user is absent.
var ErrNotFound = errors.New("not found")

// Round lifecycle states.
const (
	RoundPending   = "pending"
	RoundRunning   = "running"
	RoundCompleted = "completed"
	RoundFailed    = "failed"
)

// MasteryState is the BKT estimate for one (user, knowledge component) pair.
type MasteryState struct {
	UserID             string    `json:"user_id"`
	KnowledgeComponent string    `json:"knowledge_component"`
	Mastery            float64   `json:"mastery"`
	Attempts           int       `json:"attempts"`
	LastCorrect        bool      `json:"last_correct"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Quiz groups the questions a learner can be served.
type Quiz struct {
	ID           string `json:"id"`
	ModuleID     string `json:"module_id,omitempty"`
	Title        string `json:"title"`
	Difficulty   int    `json:"difficulty"`
	MaxQuestions int    `json:"max_questions"` // 0 = engine default
}

// Question is an immutable quiz item with its IRT parameters.
type Question struct {
	ID             string   `json:"id"`
	QuizID         string   `json:"quiz_id"`
	Stem           string   `json:"stem"`
	Options        []string `json:"options"`
	CorrectIndex   int      `json:"correct_index"`
	Explanation    string   `json:"explanation,omitempty"`
	Tags           []string `json:"tags"`
	Difficulty     float64  `json:"difficulty"`     // IRT b
	Discrimination float64  `json:"discrimination"` // IRT a
}

// ItemStat is the graded outcome of one question within an attempt.
type ItemStat struct {
	Correct     bool  `json:"correct"`
	AnswerIndex *int  `json:"answer_index,omitempty"`
	TimeMs      int64 `json:"time_ms,omitempty"`
}

// Attempt is a submitted quiz. Immutable once created.
type Attempt struct {
	ID             string              `json:"id"`
	QuizID         string              `json:"quiz_id"`
	UserID         string              `json:"user_id"`
	Score          float64             `json:"score"`
	TotalQuestions int                 `json:"total_questions"`
	CorrectAnswers int                 `json:"correct_answers"`
	StartedAt      time.Time           `json:"started_at"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
	ItemStats      map[string]ItemStat `json:"item_stats"`
	AdaptiveData   map[string]any      `json:"adaptive_data,omitempty"`
}

// Module is an entry of the learning-module catalog.
type Module struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	Difficulty          int      `json:"difficulty"`     // 1-5
	EstimatedTime       int      `json:"estimated_time"` // minutes
	KnowledgeComponents []string `json:"knowledge_components,omitempty"`
}

// Recommendation is one scored module for a user. Rows are append-only.
type Recommendation struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	ModuleID      string    `json:"module_id"`
	Title         string    `json:"title,omitempty"`
	Reason        string    `json:"reason"`
	Confidence    float64   `json:"confidence"`
	MasteryGain   float64   `json:"mastery_gain"`
	Difficulty    int       `json:"difficulty"`
	EstimatedTime int       `json:"estimated_time"`
	ModelVersion  string    `json:"model_version"`
	CreatedAt     time.Time `json:"created_at"`
}

// GlobalMetrics are the aggregate results of a completed federated round.
type GlobalMetrics struct {
	Accuracy          float64 `json:"accuracy"`
	Loss              float64 `json:"loss"`
	Convergence       bool    `json:"convergence"`
	PrivacyBudgetUsed float64 `json:"privacy_budget_used"`
	ClientsCompleted  int     `json:"clients_completed"`
	AvgLatency        float64 `json:"avg_latency"`
	BytesTransferred  int64   `json:"bytes_transferred"`
}

// Round is a federated-learning training round.
type Round struct {
	ID                   string         `json:"id"`
	RoundNum             int            `json:"round_num"`
	ClientCount          int            `json:"client_count"`
	ParticipatingClients int            `json:"participating_clients"`
	DPEpsilon            *float64       `json:"dp_epsilon,omitempty"`
	Status               string         `json:"status"`
	GlobalMetrics        *GlobalMetrics `json:"global_metrics,omitempty"`
	StartedAt            time.Time      `json:"started_at"`
	CompletedAt          *time.Time     `json:"completed_at,omitempty"`
}

// RoundUpdate carries the mutable fields of a round. Nil fields are left unchanged.
type RoundUpdate struct {
	Status        string
	GlobalMetrics *GlobalMetrics
	CompletedAt   *time.Time
}

// PrivacyLog records one differentially private release.
type PrivacyLog struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	Operation    string    `json:"operation"`
	EpsilonUsed  float64   `json:"epsilon_used"`
	NoiseLevel   float64   `json:"noise_level"`
	DataSubjects int       `json:"data_subjects"`
	Purpose      string    `json:"purpose,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// MasteryRepo persists BKT states.
type MasteryRepo interface {
	// Get returns the state for (userID, kc), or nil if none exists.
	Get(ctx context.Context, userID, kc string) (*MasteryState, error)

	// ListByUser returns every state for a user ordered by knowledge component.
	ListByUser(ctx context.Context, userID string) ([]MasteryState, error)

	// Upsert inserts or replaces the state keyed by (UserID, KnowledgeComponent).
	Upsert(ctx context.Context, st *MasteryState) error
}

// QuizRepo provides access to quizzes and their questions.
type QuizRepo interface {
	// Get returns ErrNotFound when the quiz does not exist.
	Get(ctx context.Context, id string) (*Quiz, error)
	Create(ctx context.Context, q *Quiz) error

	// Questions returns the quiz's question bank in authoring order.
	Questions(ctx context.Context, quizID string) ([]Question, error)
	AddQuestion(ctx context.Context, q *Question) error
}

// AttemptRepo stores submitted attempts.
type AttemptRepo interface {
	Create(ctx context.Context, a *Attempt) error

	// Get returns ErrNotFound when the attempt does not exist.
	Get(ctx context.Context, id string) (*Attempt, error)

	// RecentByUser returns the user's attempts, most recent first.
	// A limit of 0 returns all of them.
	RecentByUser(ctx context.Context, userID string, limit int) ([]Attempt, error)
}

// RecommendationRepo is the append-only recommendation log.
type RecommendationRepo interface {
	Create(ctx context.Context, r *Recommendation) error

	// ListByUser returns the newest rows first. A limit of 0 returns all of them.
	ListByUser(ctx context.Context, userID string, limit int) ([]Recommendation, error)
}

// RoundRepo persists federated rounds.
type RoundRepo interface {
	// Create assigns the next sequential RoundNum (and an ID when empty)
	// and stores the round.
	Create(ctx context.Context, r *Round) error

	// Get returns ErrNotFound when the round does not exist.
	Get(ctx context.Context, id string) (*Round, error)
	Update(ctx context.Context, id string, u RoundUpdate) error

	// List returns rounds ordered by RoundNum descending.
	List(ctx context.Context, limit int) ([]Round, error)
}

// ModuleRepo is the learning-module catalog.
type ModuleRepo interface {
	List(ctx context.Context) ([]Module, error)
	Create(ctx context.Context, m *Module) error
}

// PrivacyLogRepo is the append-only ledger of noisy releases.
type PrivacyLogRepo interface {
	Append(ctx context.Context, l *PrivacyLog) error

	// EpsilonUsed sums EpsilonUsed over every entry for userID.
	EpsilonUsed(ctx context.Context, userID string) (float64, error)
}

// Backend bundles the repositories of one storage implementation.
type Backend interface {
	MasteryRepo() MasteryRepo
	QuizRepo() QuizRepo
	AttemptRepo() AttemptRepo
	RecommendationRepo() RecommendationRepo
	RoundRepo() RoundRepo
	ModuleRepo() ModuleRepo
	PrivacyLogRepo() PrivacyLogRepo
	Close() error
}
