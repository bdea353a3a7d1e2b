package enrollment

import (
	"context"
	"sync"
	"time"

	"classtrack/internal/apperr"
)

// MemRepository is an in-memory Repository for tests and single-process
// dev runs. The mutex plays the role of the store's unique constraint:
// check-and-insert happens under one critical section.
type MemRepository struct {
	mu          sync.Mutex
	enrollments map[string]Enrollment
}

// NewMemRepository creates an empty in-memory repo.
func NewMemRepository() *MemRepository {
	return &MemRepository{enrollments: make(map[string]Enrollment)}
}

func (r *MemRepository) Insert(_ context.Context, e Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.enrollments {
		if existing.StudentID == e.StudentID && existing.SubjectID == e.SubjectID && existing.Status == StatusActive {
			return apperr.Conflict("student %s is already enrolled in subject %s", e.StudentID, e.SubjectID)
		}
	}
	r.enrollments[e.ID] = e
	return nil
}

func (r *MemRepository) MarkWithdrawn(_ context.Context, id string, at time.Time, by *string) (*Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[id]
	if !ok || e.Status != StatusActive {
		return nil, nil
	}
	e.Status = StatusWithdrawn
	e.WithdrawnAt = &at
	e.WithdrawnBy = by
	r.enrollments[id] = e
	return &e, nil
}

func (r *MemRepository) FindActive(_ context.Context, studentID, subjectID string) (*Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.enrollments {
		if e.StudentID == studentID && e.SubjectID == subjectID && e.Status == StatusActive {
			e := e
			return &e, nil
		}
	}
	return nil, nil
}

func (r *MemRepository) ActiveBySubject(_ context.Context, subjectID string) ([]Enrollment, error) {
	return r.filter(func(e Enrollment) bool { return e.SubjectID == subjectID }), nil
}

func (r *MemRepository) ActiveByStudent(_ context.Context, studentID string) ([]Enrollment, error) {
	return r.filter(func(e Enrollment) bool { return e.StudentID == studentID }), nil
}

func (r *MemRepository) ListActive(_ context.Context) ([]Enrollment, error) {
	return r.filter(func(Enrollment) bool { return true }), nil
}

func (r *MemRepository) filter(keep func(Enrollment) bool) []Enrollment {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Enrollment
	for _, e := range r.enrollments {
		if e.Status == StatusActive && keep(e) {
			res = append(res, e)
		}
	}
	return res
}
