package users

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"classtrack/internal/apperr"
	"classtrack/internal/mailer"
)

// Role is the caller's role as carried in its identity.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleTeacher       Role = "teacher"
	RoleStudent       Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdministrator || r == RoleTeacher || r == RoleStudent
}

// User is an account in the identity provider.
type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// FullName joins first and last name for display.
func (u User) FullName() string { return u.FirstName + " " + u.LastName }

// Teacher links a user to its teacher identity.
type Teacher struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}

// Student links a user to its student identity, optionally within a course.
type Student struct {
	ID       string  `json:"id"`
	UserID   string  `json:"user_id"`
	CourseID *string `json:"course_id,omitempty"`
}

// Repository persists users and their teacher/student rows.
type Repository interface {
	InsertUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, role Role) ([]User, error)
	InsertTeacher(ctx context.Context, t Teacher) error
	InsertStudent(ctx context.Context, s Student) error
	GetTeacher(ctx context.Context, id string) (*Teacher, error)
	TeacherByUserID(ctx context.Context, userID string) (*Teacher, error)
	StudentByUserID(ctx context.Context, userID string) (*Student, error)
}

// Notifier queues credential emails; delivery is fire-and-forget.
type Notifier interface {
	EnqueueMail(ctx context.Context, msg mailer.Message) error
}

// Service implements registration, login and profile lookups.
type Service struct {
	repo     Repository
	notifier Notifier
}

// NewService creates a user service. notifier may be nil.
func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// RegisterInput is the payload for Register.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      Role
	CourseID  *string
}

// Register creates a user plus its teacher/student row and queues a
// credential email. A duplicate email is a conflict.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.FirstName == "" || in.LastName == "" || in.Email == "" || in.Password == "" {
		return User{}, apperr.Invalid("first name, last name, email and password are required")
	}
	if !in.Role.Valid() {
		return User{}, apperr.Invalid("unknown role %q", in.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:           uuid.NewString(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		CreatedAt:    time.Now().UTC(),
	}
	u, err = s.repo.InsertUser(ctx, u)
	if err != nil {
		return User{}, err
	}

	switch in.Role {
	case RoleTeacher:
		if err := s.repo.InsertTeacher(ctx, Teacher{ID: uuid.NewString(), UserID: u.ID}); err != nil {
			return User{}, err
		}
	case RoleStudent:
		if err := s.repo.InsertStudent(ctx, Student{ID: uuid.NewString(), UserID: u.ID, CourseID: in.CourseID}); err != nil {
			return User{}, err
		}
	}

	if s.notifier != nil {
		msg := mailer.Message{
			ToEmail: u.Email,
			ToName:  u.FullName(),
			Subject: "Your attendance account",
			Body:    fmt.Sprintf("Hi %s,\n\nAn account was created for you with role %s. Sign in with this email address.\n", u.FirstName, u.Role),
		}
		if err := s.notifier.EnqueueMail(ctx, msg); err != nil {
			log.Printf("queue credential mail for %s failed: %v", u.Email, err)
		}
	}
	return u, nil
}

// Authenticate checks credentials and returns the user on success.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.repo.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return User{}, err
	}
	if u == nil {
		return User{}, apperr.Unauthorized("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, apperr.Unauthorized("invalid credentials")
	}
	return *u, nil
}

// Profile returns the user with the given id.
func (s *Service) Profile(ctx context.Context, id string) (User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if u == nil {
		return User{}, apperr.NotFound("user %s not found", id)
	}
	return *u, nil
}

// List returns users, optionally filtered by role ("" for all).
func (s *Service) List(ctx context.Context, role Role) ([]User, error) {
	if role != "" && !role.Valid() {
		return nil, apperr.Invalid("unknown role %q", role)
	}
	return s.repo.ListUsers(ctx, role)
}

// GetTeacher returns the teacher row with the given id, nil when missing.
func (s *Service) GetTeacher(ctx context.Context, id string) (*Teacher, error) {
	return s.repo.GetTeacher(ctx, id)
}

// TeacherFor resolves the teacher row for a user, if any.
func (s *Service) TeacherFor(ctx context.Context, userID string) (*Teacher, error) {
	return s.repo.TeacherByUserID(ctx, userID)
}

// StudentFor resolves the student row for a user.
func (s *Service) StudentFor(ctx context.Context, userID string) (Student, error) {
	st, err := s.repo.StudentByUserID(ctx, userID)
	if err != nil {
		return Student{}, err
	}
	if st == nil {
		return Student{}, apperr.NotFound("student for user %s not found", userID)
	}
	return *st, nil
}
