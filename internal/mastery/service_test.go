package mastery

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/adaptlearn/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.MemStore) {
	t.Helper()
	mem := store.NewMemory()
	return NewService(mem.MasteryRepo(), mem.QuizRepo(), DefaultParams(), zerolog.Nop()), mem
}

func seedQuiz(t *testing.T, mem *store.MemStore, questions ...store.Question) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, mem.QuizRepo().Create(ctx, &store.Quiz{ID: "quiz-1", Title: "Fractions"}))
	for i := range questions {
		questions[i].QuizID = "quiz-1"
		require.NoError(t, mem.QuizRepo().AddQuestion(ctx, &questions[i]))
	}
}

func TestService_UpdateMastery_FirstObservation(t *testing.T) {
	svc, _ := newTestService(t)

	st, err := svc.UpdateMastery(context.Background(), "u1", "fractions", true)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, st.Mastery, 1e-9)
	assert.Equal(t, 1, st.Attempts)
	assert.True(t, st.LastCorrect)
	assert.False(t, st.UpdatedAt.IsZero())
}

func TestService_UpdateMastery_UsesStoredPrior(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpdateMastery(ctx, "u1", "fractions", true)
	require.NoError(t, err)
	st, err := svc.UpdateMastery(ctx, "u1", "fractions", false)
	require.NoError(t, err)

	assert.InDelta(t, Update(0.5, false, DefaultParams()), st.Mastery, 1e-9)
	assert.Equal(t, 2, st.Attempts)
	assert.False(t, st.LastCorrect)
}

func TestService_UpdateMastery_ConcurrentSameKey(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.UpdateMastery(ctx, "u1", "fractions", true)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	states, err := svc.States(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, n, states[0].Attempts, "lost update under concurrency")
	assert.Empty(t, svc.locks.locks, "keyed locks should be released")
}

func TestService_UpdateFromAttempt(t *testing.T) {
	svc, mem := newTestService(t)
	seedQuiz(t, mem,
		store.Question{ID: "q1", Tags: []string{"fractions", "fractions"}},
		store.Question{ID: "q2", Tags: []string{"fractions", "decimals"}},
		store.Question{ID: "q3"},
		store.Question{ID: "q4", Tags: []string{"algebra"}},
	)

	updated, err := svc.UpdateFromAttempt(context.Background(), &store.Attempt{
		QuizID: "quiz-1",
		UserID: "u1",
		ItemStats: map[string]store.ItemStat{
			"q1": {Correct: true},
			"q2": {Correct: true},
			// q4 missing: counts as incorrect
		},
	})
	require.NoError(t, err)

	// q1 dedups to one fractions update, q2 updates fractions again plus decimals.
	require.Len(t, updated, 4)
	assert.Equal(t, []string{"fractions", "fractions", "decimals", "algebra"}, []string{
		updated[0].KnowledgeComponent, updated[1].KnowledgeComponent,
		updated[2].KnowledgeComponent, updated[3].KnowledgeComponent,
	})

	states, err := svc.States(context.Background(), "u1")
	require.NoError(t, err)
	byKC := make(map[string]store.MasteryState)
	for _, st := range states {
		byKC[st.KnowledgeComponent] = st
	}
	assert.Equal(t, 2, byKC["fractions"].Attempts)
	assert.Equal(t, 1, byKC["decimals"].Attempts)
	assert.False(t, byKC["algebra"].LastCorrect)
	assert.Less(t, byKC["algebra"].Mastery, byKC["decimals"].Mastery)
}

func TestService_UpdateFromAttempt_Invalid(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UpdateFromAttempt(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidAttempt)

	_, err = svc.UpdateFromAttempt(context.Background(), &store.Attempt{QuizID: "quiz-1"})
	assert.ErrorIs(t, err, ErrInvalidAttempt)
}

func TestService_UpdateFromAttempt_UnknownQuiz(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	updated, err := svc.UpdateFromAttempt(ctx, &store.Attempt{QuizID: "missing", UserID: "u1"})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, updated)

	states, err := mem.MasteryRepo().ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, states)
}

type failingMasteryRepo struct {
	store.MasteryRepo
}

func (failingMasteryRepo) Upsert(context.Context, *store.MasteryState) error {
	return errors.New("disk full")
}

func TestService_PersistenceErrorPropagates(t *testing.T) {
	mem := store.NewMemory()
	svc := NewService(failingMasteryRepo{mem.MasteryRepo()}, mem.QuizRepo(), DefaultParams(), zerolog.Nop())

	_, err := svc.UpdateMastery(context.Background(), "u1", "fractions", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
