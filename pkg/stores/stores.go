// Package stores defines the collaborator contracts the core consumes but
// does not own: rubric and candidate lookup by id. Relational
// persistence of interviews/candidates/rubrics is explicitly out of scope
// for this engine — these in-memory implementations exist so
// the engine is runnable and testable standalone; a real deployment swaps
// them for a database-backed implementation of the same interfaces.
package stores

import (
	"context"
	"fmt"
	"sync"

	"github.com/lattice-hire/interviewer/pkg/apperrors"
	"github.com/lattice-hire/interviewer/pkg/candidate"
	"github.com/lattice-hire/interviewer/pkg/rubric"
)

// RubricStore resolves an interview id to its scoring rubric.
type RubricStore interface {
	GetByInterview(ctx context.Context, interviewID string) (rubric.Rubric, string, string, error)
}

// CandidateStore resolves a candidate id to its profile.
type CandidateStore interface {
	Get(ctx context.Context, candidateID string) (candidate.Profile, error)
}

// interviewRecord bundles a rubric with the job-description summary the
// Competency Primer needs.
type interviewRecord struct {
	rubric     rubric.Rubric
	jdSummary  string
	resumeText string
}

// InMemoryRubricStore is a RubricStore backed by a plain map, filled through
// Seed.
type InMemoryRubricStore struct {
	mu      sync.RWMutex
	records map[string]interviewRecord
}

// NewInMemoryRubricStore builds an empty store.
func NewInMemoryRubricStore() *InMemoryRubricStore {
	return &InMemoryRubricStore{records: make(map[string]interviewRecord)}
}

// Seed registers an interview's rubric, JD summary, and resume text.
func (s *InMemoryRubricStore) Seed(interviewID string, r rubric.Rubric, jdSummary, resumeText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[interviewID] = interviewRecord{rubric: r, jdSummary: jdSummary, resumeText: resumeText}
}

// GetByInterview implements RubricStore.
func (s *InMemoryRubricStore) GetByInterview(_ context.Context, interviewID string) (rubric.Rubric, string, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[interviewID]
	if !ok {
		return rubric.Rubric{}, "", "", fmt.Errorf("interview %q: %w", interviewID, apperrors.ErrInterviewNotFound)
	}
	return rec.rubric, rec.jdSummary, rec.resumeText, nil
}

// InMemoryCandidateStore is a CandidateStore backed by a plain map.
type InMemoryCandidateStore struct {
	mu       sync.RWMutex
	profiles map[string]candidate.Profile
}

// NewInMemoryCandidateStore builds an empty store.
func NewInMemoryCandidateStore() *InMemoryCandidateStore {
	return &InMemoryCandidateStore{profiles: make(map[string]candidate.Profile)}
}

// Seed registers a candidate's profile.
func (s *InMemoryCandidateStore) Seed(candidateID string, p candidate.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[candidateID] = p
}

// Get implements CandidateStore.
func (s *InMemoryCandidateStore) Get(_ context.Context, candidateID string) (candidate.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[candidateID]
	if !ok {
		return candidate.Profile{}, fmt.Errorf("candidate %q: %w", candidateID, apperrors.ErrCandidateNotFound)
	}
	return p, nil
}
