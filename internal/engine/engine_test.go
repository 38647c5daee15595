package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/adaptlearn/internal/attemptio"
	"github.com/abhisek/adaptlearn/internal/auth"
	"github.com/abhisek/adaptlearn/internal/config"
	"github.com/abhisek/adaptlearn/internal/store"
)

var (
	student    = auth.Identity{UserID: "stu-1", Role: auth.RoleStudent}
	other      = auth.Identity{UserID: "stu-2", Role: auth.RoleStudent}
	instructor = auth.Identity{UserID: "ins-1", Role: auth.RoleInstructor}
	operator   = auth.Identity{UserID: "adm-1", Role: auth.RoleAdmin}
)

const testCatalog = `{
	"modules": [
		{"id": "m-frac", "title": "Fractions", "difficulty": 2, "estimated_time": 20, "knowledge_components": ["fractions"]},
		{"id": "m-calc", "title": "Calculus", "difficulty": 5, "estimated_time": 60, "knowledge_components": ["limits"]}
	],
	"quizzes": [
		{"id": "qz", "module_id": "m-frac", "title": "Fractions check", "difficulty": 2, "questions": [
			{"id": "q1", "stem": "1/2+1/2", "options": ["1", "2"], "correct_index": 0, "tags": ["fractions"], "difficulty": 1},
			{"id": "q2", "stem": "1/4 of 8", "options": ["2", "4"], "correct_index": 0, "tags": ["fractions", "fractions"], "difficulty": 2},
			{"id": "q3", "stem": "3/4-1/4", "options": ["1/2", "1"], "correct_index": 0, "tags": ["fractions"], "difficulty": 4}
		]}
	]
}`

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Store.Driver = "memory"
	cfg.Auth.Secret = "engine-test-secret-engine-test-secret"
	cfg.Federated.TrainingDelay = time.Millisecond
	cfg.Federated.AggregationDelay = time.Millisecond
	cfg.Federated.RoundTimeout = 5 * time.Second
	return cfg
}

func newTestEngine(t *testing.T) (*Engine, *store.MemStore) {
	t.Helper()
	mem := store.NewMemory()
	e, err := New(context.Background(), testConfig(), Options{Backend: mem, Seed: 42})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	cat, err := attemptio.DecodeCatalog(strings.NewReader(testCatalog))
	require.NoError(t, err)
	_, err = e.ImportCatalog(context.Background(), instructor, cat)
	require.NoError(t, err)
	return e, mem
}

func allCorrect(userID string) *store.Attempt {
	return &store.Attempt{
		QuizID: "qz", UserID: userID, Score: 1, TotalQuestions: 3, CorrectAnswers: 3,
		ItemStats: map[string]store.ItemStat{
			"q1": {Correct: true}, "q2": {Correct: true}, "q3": {Correct: true},
		},
	}
}

func TestNew_MemoryDriverFromConfig(t *testing.T) {
	e, err := New(context.Background(), testConfig(), Options{})
	require.NoError(t, err)
	assert.NoError(t, e.Close())
}

func TestAuthenticate(t *testing.T) {
	e, _ := newTestEngine(t)

	tok, err := e.IssueToken("stu-1", auth.RoleStudent)
	require.NoError(t, err)
	id, err := e.Authenticate(tok)
	require.NoError(t, err)
	assert.Equal(t, student, id)

	_, err = e.Authenticate("bogus")
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestAuthenticate_NoSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Secret = ""
	e, err := New(context.Background(), cfg, Options{Backend: store.NewMemory()})
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Authenticate("anything")
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	_, err = e.IssueToken("u", auth.RoleStudent)
	assert.Error(t, err)
}

func TestSubmitAttempt_UpdatesMastery(t *testing.T) {
	e, mem := newTestEngine(t)
	ctx := context.Background()

	states, err := e.SubmitAttempt(ctx, student, allCorrect("stu-1"))
	require.NoError(t, err)
	// The repeated tag on q2 counts once.
	require.Len(t, states, 3)
	assert.InDelta(t, 0.5, states[0].Mastery, 0.001)
	assert.Greater(t, states[2].Mastery, states[1].Mastery)

	recent, err := mem.AttemptRepo().RecentByUser(ctx, "stu-1", 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.NotNil(t, recent[0].CompletedAt)

	report, err := e.Mastery(ctx, student, "stu-1")
	require.NoError(t, err)
	require.Len(t, report.States, 1)
	assert.Equal(t, "fractions", report.States[0].KnowledgeComponent)
	assert.Equal(t, 3, report.States[0].Attempts)
	assert.Equal(t, []string{"fractions"}, report.Summary.Strong)
	assert.Equal(t, 1, report.Streak.Current)
}

func TestUpdateMasteryFromAttempt_DoesNotStoreAttempt(t *testing.T) {
	e, mem := newTestEngine(t)
	ctx := context.Background()

	_, err := e.UpdateMasteryFromAttempt(ctx, instructor, allCorrect("stu-1"))
	require.NoError(t, err)

	recent, err := mem.AttemptRepo().RecentByUser(ctx, "stu-1", 5)
	require.NoError(t, err)
	assert.Empty(t, recent)

	_, err = e.UpdateMasteryFromAttempt(ctx, student, nil)
	assert.Error(t, err)
}

func TestSubmitAttempt_UnknownQuiz(t *testing.T) {
	e, mem := newTestEngine(t)
	ctx := context.Background()

	attempt := allCorrect("stu-1")
	attempt.QuizID = "does-not-exist"
	states, err := e.SubmitAttempt(ctx, student, attempt)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, states)

	recent, err := mem.AttemptRepo().RecentByUser(ctx, "stu-1", 5)
	require.NoError(t, err)
	assert.Empty(t, recent)

	attempt.QuizID = "nope"
	_, err = e.UpdateMasteryFromAttempt(ctx, student, attempt)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGenerateAdaptiveQuiz(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	q, err := e.GenerateAdaptiveQuiz(ctx, student, "qz", nil)
	require.NoError(t, err)
	assert.Equal(t, "Fractions check", q.Title)
	assert.Len(t, q.Questions, 3)

	_, err = e.GenerateAdaptiveQuiz(ctx, student, "missing", nil)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = e.GenerateAdaptiveQuiz(ctx, auth.Identity{}, "qz", nil)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestGenerateRecommendations(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.SubmitAttempt(ctx, student, allCorrect("stu-1"))
	require.NoError(t, err)

	recs, err := e.GenerateRecommendations(ctx, student, "stu-1", 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.GreaterOrEqual(t, recs[0].Confidence, recs[1].Confidence)

	next, err := e.NextBestModule(ctx, student, "stu-1", 10)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, recs[0].ModuleID, next.ModuleID)

	history, err := e.RecommendationHistory(ctx, instructor, "stu-1", 0)
	require.NoError(t, err)
	assert.Len(t, history, 4)

	budget, err := e.PrivacyBudget(ctx, student, "stu-1")
	require.NoError(t, err)
	assert.Zero(t, budget.Used, "privacy level above the threshold spends nothing")
}

func TestGenerateRecommendations_NoisySpendsBudget(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.GenerateRecommendations(ctx, student, "stu-1", 1)
	require.NoError(t, err)

	budget, err := e.PrivacyBudget(ctx, student, "stu-1")
	require.NoError(t, err)
	assert.Greater(t, budget.Used, 0.0)
	assert.Less(t, budget.Remaining, budget.Total)
}

func TestAuthorization(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.GenerateRecommendations(ctx, other, "stu-1", 10)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = e.SubmitAttempt(ctx, other, allCorrect("stu-1"))
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = e.Mastery(ctx, other, "stu-1")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.GenerateRecommendations(ctx, instructor, "stu-1", 10)
	assert.NoError(t, err)

	_, err = e.ImportCatalog(ctx, student, &attemptio.Catalog{})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.StartTrainingRound(ctx, instructor, 5, nil, nil)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = e.GetFLMetrics(ctx, student, 5)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = e.Clients(instructor)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, e.InjectDropout(student, "us-east-1"), ErrForbidden)
	assert.ErrorIs(t, e.InjectLatency(auth.Identity{}, "us-east-1", time.Second), auth.ErrUnauthenticated)
}

func TestTrainingRound(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	eps, rate := 1.0, 0.5

	rd, err := e.StartTrainingRound(ctx, operator, 10, &eps, &rate)
	require.NoError(t, err)
	assert.Equal(t, store.RoundPending, rd.Status)
	assert.Equal(t, 5, rd.ParticipatingClients)
	e.WaitRounds()

	summaries, err := e.GetFLMetrics(ctx, operator, 5)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, store.RoundCompleted, summaries[0].Status)
	assert.Equal(t, 5, summaries[0].ClientsParticipated)

	require.NoError(t, e.InjectDropout(operator, "us-east-1"))
	clients, err := e.Clients(operator)
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", clients[0].Region)
}
