package subjects

import (
	"context"

	"github.com/google/uuid"

	"classtrack/internal/apperr"
	"classtrack/internal/courses"
	"classtrack/internal/users"
)

// Subject is one taught subject inside a course.
type Subject struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	CourseID  string  `json:"course_id"`
	TeacherID *string `json:"teacher_id,omitempty"`
}

// Repository persists subjects.
type Repository interface {
	Insert(ctx context.Context, s Subject) error
	Get(ctx context.Context, id string) (*Subject, error)
	Update(ctx context.Context, s Subject) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Subject, error)
	Search(ctx context.Context, term string, limit int) ([]Subject, error)
	ByTeacher(ctx context.Context, teacherID string) ([]Subject, error)
}

// CourseDirectory is the course lookup the service needs.
type CourseDirectory interface {
	Get(ctx context.Context, id string) (*courses.Course, error)
}

// TeacherDirectory is the teacher lookup the service needs.
type TeacherDirectory interface {
	GetTeacher(ctx context.Context, id string) (*users.Teacher, error)
}

// Service implements subject administration.
type Service struct {
	repo     Repository
	courses  CourseDirectory
	teachers TeacherDirectory
}

// NewService creates a subject service.
func NewService(repo Repository, courses CourseDirectory, teachers TeacherDirectory) *Service {
	return &Service{repo: repo, courses: courses, teachers: teachers}
}

// Create adds a subject after validating its course and teacher references.
func (s *Service) Create(ctx context.Context, name, courseID string, teacherID *string) (Subject, error) {
	if name == "" || courseID == "" {
		return Subject{}, apperr.Invalid("name and course id are required")
	}
	course, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return Subject{}, err
	}
	if course == nil {
		return Subject{}, apperr.NotFound("course %s not found", courseID)
	}
	if teacherID != nil {
		t, err := s.teachers.GetTeacher(ctx, *teacherID)
		if err != nil {
			return Subject{}, err
		}
		if t == nil {
			return Subject{}, apperr.NotFound("teacher %s not found", *teacherID)
		}
	}

	sub := Subject{ID: uuid.NewString(), Name: name, CourseID: courseID, TeacherID: teacherID}
	if err := s.repo.Insert(ctx, sub); err != nil {
		return Subject{}, err
	}
	return sub, nil
}

// Update changes name and/or teacher assignment.
func (s *Service) Update(ctx context.Context, id, name string, teacherID *string) (Subject, error) {
	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	if sub == nil {
		return Subject{}, apperr.NotFound("subject %s not found", id)
	}
	if name != "" {
		sub.Name = name
	}
	if teacherID != nil {
		t, err := s.teachers.GetTeacher(ctx, *teacherID)
		if err != nil {
			return Subject{}, err
		}
		if t == nil {
			return Subject{}, apperr.NotFound("teacher %s not found", *teacherID)
		}
		sub.TeacherID = teacherID
	}
	if err := s.repo.Update(ctx, *sub); err != nil {
		return Subject{}, err
	}
	return *sub, nil
}

// Delete removes a subject.
func (s *Service) Delete(ctx context.Context, id string) error {
	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if sub == nil {
		return apperr.NotFound("subject %s not found", id)
	}
	return s.repo.Delete(ctx, id)
}

// Get returns one subject, nil when missing.
func (s *Service) Get(ctx context.Context, id string) (*Subject, error) {
	return s.repo.Get(ctx, id)
}

// List returns all subjects.
func (s *Service) List(ctx context.Context) ([]Subject, error) {
	return s.repo.List(ctx)
}

// Search returns up to 10 subjects whose name contains term.
func (s *Service) Search(ctx context.Context, term string) ([]Subject, error) {
	if term == "" {
		return nil, nil
	}
	return s.repo.Search(ctx, term, 10)
}

// ByTeacher returns the subjects assigned to a teacher.
func (s *Service) ByTeacher(ctx context.Context, teacherID string) ([]Subject, error) {
	return s.repo.ByTeacher(ctx, teacherID)
}
