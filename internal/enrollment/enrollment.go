package enrollment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"classtrack/internal/apperr"
)

// Status is the lifecycle state of an enrollment.
type Status string

const (
	StatusActive    Status = "active"
	StatusWithdrawn Status = "withdrawn"
)

// Enrollment registers a student in a subject. At most one active
// enrollment exists per (student, subject); withdrawal is terminal.
type Enrollment struct {
	ID          string     `json:"id"`
	StudentID   string     `json:"student_id"`
	SubjectID   string     `json:"subject_id"`
	Status      Status     `json:"status"`
	EnrolledAt  time.Time  `json:"enrolled_at"`
	WithdrawnAt *time.Time `json:"withdrawn_at,omitempty"`
	WithdrawnBy *string    `json:"withdrawn_by,omitempty"`
}

// Repository persists enrollments. Insert must enforce the one-active-row
// invariant atomically (unique constraint or equivalent CAS) so concurrent
// enrolls for the same pair yield one success and the rest conflicts.
type Repository interface {
	Insert(ctx context.Context, e Enrollment) error
	// MarkWithdrawn flips an active enrollment to withdrawn and returns the
	// updated row, or nil when the id is unknown or not active.
	MarkWithdrawn(ctx context.Context, id string, at time.Time, by *string) (*Enrollment, error)
	FindActive(ctx context.Context, studentID, subjectID string) (*Enrollment, error)
	ActiveBySubject(ctx context.Context, subjectID string) ([]Enrollment, error)
	ActiveByStudent(ctx context.Context, studentID string) ([]Enrollment, error)
	ListActive(ctx context.Context) ([]Enrollment, error)
}

// Service is the enrollment ledger.
type Service struct {
	repo Repository
}

// NewService creates a ledger backed by a repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Enroll creates an active enrollment for the pair. A second active
// enrollment for the same pair is a conflict.
func (s *Service) Enroll(ctx context.Context, studentID, subjectID string) (Enrollment, error) {
	if studentID == "" || subjectID == "" {
		return Enrollment{}, apperr.Invalid("student id and subject id are required")
	}
	e := Enrollment{
		ID:         uuid.NewString(),
		StudentID:  studentID,
		SubjectID:  subjectID,
		Status:     StatusActive,
		EnrolledAt: time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		return Enrollment{}, err
	}
	return e, nil
}

// Withdraw marks an active enrollment as withdrawn, stamping when and by
// whom. Withdrawing a missing or already-withdrawn enrollment fails; it is
// deliberately not idempotent.
func (s *Service) Withdraw(ctx context.Context, enrollmentID string, actor *string) (Enrollment, error) {
	if enrollmentID == "" {
		return Enrollment{}, apperr.Invalid("enrollment id is required")
	}
	e, err := s.repo.MarkWithdrawn(ctx, enrollmentID, time.Now().UTC(), actor)
	if err != nil {
		return Enrollment{}, err
	}
	if e == nil {
		return Enrollment{}, apperr.NotFound("enrollment %s not found or not active", enrollmentID)
	}
	return *e, nil
}

// FindActive returns the student's active enrollment in the subject, nil
// when there is none.
func (s *Service) FindActive(ctx context.Context, studentID, subjectID string) (*Enrollment, error) {
	return s.repo.FindActive(ctx, studentID, subjectID)
}

// ActiveRoster returns the student ids actively enrolled in a subject.
// Uniqueness follows from the enrollment invariant; order is not defined.
func (s *Service) ActiveRoster(ctx context.Context, subjectID string) ([]string, error) {
	enrollments, err := s.repo.ActiveBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	roster := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		roster = append(roster, e.StudentID)
	}
	return roster, nil
}

// ForStudent returns a student's active enrollments.
func (s *Service) ForStudent(ctx context.Context, studentID string) ([]Enrollment, error) {
	return s.repo.ActiveByStudent(ctx, studentID)
}

// ListActive returns every active enrollment.
func (s *Service) ListActive(ctx context.Context) ([]Enrollment, error) {
	return s.repo.ListActive(ctx)
}
