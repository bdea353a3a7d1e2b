package courses

import (
	"context"

	"github.com/google/uuid"

	"classtrack/internal/apperr"
)

// Course groups students and subjects by study level.
type Course struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level string `json:"level"`
}

// Repository persists courses.
type Repository interface {
	Insert(ctx context.Context, c Course) error
	Get(ctx context.Context, id string) (*Course, error)
	Update(ctx context.Context, c Course) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Course, error)
}

// Service implements course administration.
type Service struct {
	repo Repository
}

// NewService creates a course service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create adds a course.
func (s *Service) Create(ctx context.Context, name, level string) (Course, error) {
	if name == "" || level == "" {
		return Course{}, apperr.Invalid("name and level are required")
	}
	c := Course{ID: uuid.NewString(), Name: name, Level: level}
	if err := s.repo.Insert(ctx, c); err != nil {
		return Course{}, err
	}
	return c, nil
}

// Update changes name and/or level; empty fields keep their value.
func (s *Service) Update(ctx context.Context, id, name, level string) (Course, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if c == nil {
		return Course{}, apperr.NotFound("course %s not found", id)
	}
	if name != "" {
		c.Name = name
	}
	if level != "" {
		c.Level = level
	}
	if err := s.repo.Update(ctx, *c); err != nil {
		return Course{}, err
	}
	return *c, nil
}

// Delete removes a course.
func (s *Service) Delete(ctx context.Context, id string) error {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return apperr.NotFound("course %s not found", id)
	}
	return s.repo.Delete(ctx, id)
}

// Get returns one course.
func (s *Service) Get(ctx context.Context, id string) (*Course, error) {
	return s.repo.Get(ctx, id)
}

// List returns all courses.
func (s *Service) List(ctx context.Context) ([]Course, error) {
	return s.repo.List(ctx)
}
