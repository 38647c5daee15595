package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-process Backend used by tests and the memory driver.
// Values are copied in and out so callers never share state with the store.
type MemStore struct {
	mu sync.RWMutex

	mastery         map[masteryKey]MasteryState
	quizzes         map[string]Quiz
	questions       map[string][]Question
	attempts        []Attempt
	recommendations []Recommendation
	rounds          []Round
	modules         []Module
	privacyLogs     []PrivacyLog
}

type masteryKey struct {
	user, kc string
}

// NewMemory returns an empty in-memory Backend.
func NewMemory() *MemStore {
	return &MemStore{
		mastery:   make(map[masteryKey]MasteryState),
		quizzes:   make(map[string]Quiz),
		questions: make(map[string][]Question),
	}
}

func (m *MemStore) Close() error { return nil }

func (m *MemStore) MasteryRepo() MasteryRepo               { return memMastery{m} }
func (m *MemStore) QuizRepo() QuizRepo                     { return memQuiz{m} }
func (m *MemStore) AttemptRepo() AttemptRepo               { return memAttempt{m} }
func (m *MemStore) RecommendationRepo() RecommendationRepo { return memRecommendation{m} }
func (m *MemStore) RoundRepo() RoundRepo                   { return memRound{m} }
func (m *MemStore) ModuleRepo() ModuleRepo                 { return memModule{m} }
func (m *MemStore) PrivacyLogRepo() PrivacyLogRepo         { return memPrivacyLog{m} }

type memMastery struct{ m *MemStore }

func (r memMastery) Get(_ context.Context, userID, kc string) (*MasteryState, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	st, ok := r.m.mastery[masteryKey{userID, kc}]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (r memMastery) ListByUser(_ context.Context, userID string) ([]MasteryState, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []MasteryState
	for k, st := range r.m.mastery {
		if k.user == userID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].KnowledgeComponent < out[j].KnowledgeComponent
	})
	return out, nil
}

func (r memMastery) Upsert(_ context.Context, st *MasteryState) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.mastery[masteryKey{st.UserID, st.KnowledgeComponent}] = *st
	return nil
}

type memQuiz struct{ m *MemStore }

func (r memQuiz) Get(_ context.Context, id string) (*Quiz, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	q, ok := r.m.quizzes[id]
	if !ok {
		return nil, fmt.Errorf("quiz %q: %w", id, ErrNotFound)
	}
	return &q, nil
}

func (r memQuiz) Create(_ context.Context, q *Quiz) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.quizzes[q.ID]; ok {
		return fmt.Errorf("save quiz: duplicate id %q", q.ID)
	}
	r.m.quizzes[q.ID] = *q
	return nil
}

func (r memQuiz) Questions(_ context.Context, quizID string) ([]Question, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	src := r.m.questions[quizID]
	out := make([]Question, len(src))
	for i, q := range src {
		out[i] = cloneQuestion(q)
	}
	return out, nil
}

func (r memQuiz) AddQuestion(_ context.Context, q *Question) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.questions[q.QuizID] = append(r.m.questions[q.QuizID], cloneQuestion(*q))
	return nil
}

func cloneQuestion(q Question) Question {
	q.Options = slices.Clone(q.Options)
	q.Tags = slices.Clone(q.Tags)
	return q
}

type memAttempt struct{ m *MemStore }

func (r memAttempt) Create(_ context.Context, a *Attempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.StartedAt.IsZero() {
		a.StartedAt = time.Now().UTC()
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.attempts = append(r.m.attempts, cloneAttempt(*a))
	return nil
}

func (r memAttempt) Get(_ context.Context, id string) (*Attempt, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, a := range r.m.attempts {
		if a.ID == id {
			out := cloneAttempt(a)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("attempt %q: %w", id, ErrNotFound)
}

func (r memAttempt) RecentByUser(_ context.Context, userID string, limit int) ([]Attempt, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []Attempt
	for _, a := range r.m.attempts {
		if a.UserID == userID {
			out = append(out, cloneAttempt(a))
		}
	}
	// Insertion order breaks ties, newest insert first.
	slices.Reverse(out)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneAttempt(a Attempt) Attempt {
	if a.ItemStats != nil {
		stats := make(map[string]ItemStat, len(a.ItemStats))
		for k, v := range a.ItemStats {
			stats[k] = v
		}
		a.ItemStats = stats
	}
	if a.AdaptiveData != nil {
		data := make(map[string]any, len(a.AdaptiveData))
		for k, v := range a.AdaptiveData {
			data[k] = v
		}
		a.AdaptiveData = data
	}
	return a
}

type memRecommendation struct{ m *MemStore }

func (r memRecommendation) Create(_ context.Context, rec *Recommendation) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.recommendations = append(r.m.recommendations, *rec)
	return nil
}

func (r memRecommendation) ListByUser(_ context.Context, userID string, limit int) ([]Recommendation, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []Recommendation
	for _, rec := range r.m.recommendations {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Confidence > out[j].Confidence
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memRound struct{ m *MemStore }

func (r memRound) Create(_ context.Context, rd *Round) error {
	if rd.ID == "" {
		rd.ID = uuid.NewString()
	}
	if rd.Status == "" {
		rd.Status = RoundPending
	}
	if rd.StartedAt.IsZero() {
		rd.StartedAt = time.Now().UTC()
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	last := 0
	for _, existing := range r.m.rounds {
		last = max(last, existing.RoundNum)
	}
	rd.RoundNum = last + 1
	r.m.rounds = append(r.m.rounds, cloneRound(*rd))
	return nil
}

func (r memRound) Get(_ context.Context, id string) (*Round, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, rd := range r.m.rounds {
		if rd.ID == id {
			out := cloneRound(rd)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("round %q: %w", id, ErrNotFound)
}

func (r memRound) Update(_ context.Context, id string, u RoundUpdate) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i := range r.m.rounds {
		rd := &r.m.rounds[i]
		if rd.ID != id {
			continue
		}
		if u.Status != "" {
			rd.Status = u.Status
		}
		if u.GlobalMetrics != nil {
			gm := *u.GlobalMetrics
			rd.GlobalMetrics = &gm
		}
		if u.CompletedAt != nil {
			t := *u.CompletedAt
			rd.CompletedAt = &t
		}
		return nil
	}
	return fmt.Errorf("round %q: %w", id, ErrNotFound)
}

func (r memRound) List(_ context.Context, limit int) ([]Round, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := make([]Round, 0, len(r.m.rounds))
	for _, rd := range r.m.rounds {
		out = append(out, cloneRound(rd))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundNum > out[j].RoundNum })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneRound(rd Round) Round {
	if rd.DPEpsilon != nil {
		e := *rd.DPEpsilon
		rd.DPEpsilon = &e
	}
	if rd.GlobalMetrics != nil {
		gm := *rd.GlobalMetrics
		rd.GlobalMetrics = &gm
	}
	if rd.CompletedAt != nil {
		t := *rd.CompletedAt
		rd.CompletedAt = &t
	}
	return rd
}

type memModule struct{ m *MemStore }

func (r memModule) List(_ context.Context) ([]Module, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := make([]Module, len(r.m.modules))
	for i, mod := range r.m.modules {
		mod.KnowledgeComponents = slices.Clone(mod.KnowledgeComponents)
		out[i] = mod
	}
	return out, nil
}

func (r memModule) Create(_ context.Context, mod *Module) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.modules {
		if existing.ID == mod.ID {
			return fmt.Errorf("save module %s: duplicate id", mod.ID)
		}
	}
	cp := *mod
	cp.KnowledgeComponents = slices.Clone(mod.KnowledgeComponents)
	r.m.modules = append(r.m.modules, cp)
	return nil
}

type memPrivacyLog struct{ m *MemStore }

func (r memPrivacyLog) Append(_ context.Context, l *PrivacyLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if l.DataSubjects == 0 {
		l.DataSubjects = 1
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.privacyLogs = append(r.m.privacyLogs, *l)
	return nil
}

func (r memPrivacyLog) EpsilonUsed(_ context.Context, userID string) (float64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var total float64
	for _, l := range r.m.privacyLogs {
		if l.UserID == userID {
			total += l.EpsilonUsed
		}
	}
	return total, nil
}
