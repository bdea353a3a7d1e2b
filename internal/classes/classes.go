package classes

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"

	"classtrack/internal/apperr"
	"classtrack/internal/subjects"
)

// ClassSession is one scheduled, dated occurrence of a subject. Its id is
// immutable once attendance references it; schedule fields stay editable
// by the owning teacher.
type ClassSession struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id"`
	TeacherID string    `json:"teacher_id"`
	Date      time.Time `json:"date"`      // midnight UTC
	StartMin  int       `json:"start_min"` // minutes since midnight
	EndMin    int       `json:"end_min"`
}

// StartsAt is the session start as a point in time.
func (c ClassSession) StartsAt() time.Time {
	return c.Date.Add(time.Duration(c.StartMin) * time.Minute)
}

// Filter narrows List results; zero values mean "any".
type Filter struct {
	SubjectID string
	TeacherID string
	Date      *time.Time
}

// Repository persists class sessions.
type Repository interface {
	Insert(ctx context.Context, c ClassSession) error
	Get(ctx context.Context, id string) (*ClassSession, error)
	Update(ctx context.Context, c ClassSession) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f Filter) ([]ClassSession, error)
}

// SubjectDirectory is the subject lookup the service needs.
type SubjectDirectory interface {
	Get(ctx context.Context, id string) (*subjects.Subject, error)
}

// TokenIssuer signs attendance tokens for a class session.
type TokenIssuer interface {
	Issue(classSessionID string) string
}

// Service implements class session scheduling and token issuance.
type Service struct {
	repo        Repository
	subjects    SubjectDirectory
	tokens      TokenIssuer
	checkinBase string
}

// NewService creates a class session service. checkinBase is where issued
// tokens point students at.
func NewService(repo Repository, subjects SubjectDirectory, tokens TokenIssuer, checkinBase string) *Service {
	return &Service{repo: repo, subjects: subjects, tokens: tokens, checkinBase: checkinBase}
}

// Schedule is the parsed-input form of a session's calendar fields.
type Schedule struct {
	Date  string // 2006-01-02
	Start string // 15:04
	End   string // 15:04
}

// Create schedules a session. Only the teacher assigned to the subject may
// create sessions for it.
func (s *Service) Create(ctx context.Context, teacherID, subjectID string, sched Schedule) (ClassSession, error) {
	date, startMin, endMin, err := parseSchedule(sched.Date, sched.Start, sched.End)
	if err != nil {
		return ClassSession{}, err
	}

	sub, err := s.subjects.Get(ctx, subjectID)
	if err != nil {
		return ClassSession{}, err
	}
	if sub == nil {
		return ClassSession{}, apperr.NotFound("subject %s not found", subjectID)
	}
	if sub.TeacherID == nil || *sub.TeacherID != teacherID {
		return ClassSession{}, apperr.Forbidden("subject %s is not taught by this teacher", subjectID)
	}

	c := ClassSession{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		TeacherID: teacherID,
		Date:      date,
		StartMin:  startMin,
		EndMin:    endMin,
	}
	if err := s.repo.Insert(ctx, c); err != nil {
		return ClassSession{}, err
	}
	return c, nil
}

// Update edits schedule fields; empty strings keep the current value.
// actorTeacherID nil means an administrator, who may edit any session.
func (s *Service) Update(ctx context.Context, id string, actorTeacherID *string, sched Schedule) (ClassSession, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return ClassSession{}, err
	}
	if c == nil {
		return ClassSession{}, apperr.NotFound("class session %s not found", id)
	}
	if actorTeacherID != nil && *actorTeacherID != c.TeacherID {
		return ClassSession{}, apperr.Forbidden("class session %s belongs to another teacher", id)
	}

	if sched.Date != "" {
		date, err := parseDate(sched.Date)
		if err != nil {
			return ClassSession{}, err
		}
		c.Date = date
	}
	if sched.Start != "" {
		min, err := parseClock(sched.Start)
		if err != nil {
			return ClassSession{}, err
		}
		c.StartMin = min
	}
	if sched.End != "" {
		min, err := parseClock(sched.End)
		if err != nil {
			return ClassSession{}, err
		}
		c.EndMin = min
	}
	if err := s.repo.Update(ctx, *c); err != nil {
		return ClassSession{}, err
	}
	return *c, nil
}

// Delete removes a session under the same ownership rule as Update.
func (s *Service) Delete(ctx context.Context, id string, actorTeacherID *string) error {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return apperr.NotFound("class session %s not found", id)
	}
	if actorTeacherID != nil && *actorTeacherID != c.TeacherID {
		return apperr.Forbidden("class session %s belongs to another teacher", id)
	}
	return s.repo.Delete(ctx, id)
}

// Get returns one session, nil when missing.
func (s *Service) Get(ctx context.Context, id string) (*ClassSession, error) {
	return s.repo.Get(ctx, id)
}

// List returns sessions matching the filter. dateStr is optional.
func (s *Service) List(ctx context.Context, subjectID, teacherID, dateStr string) ([]ClassSession, error) {
	f := Filter{SubjectID: subjectID, TeacherID: teacherID}
	if dateStr != "" {
		date, err := parseDate(dateStr)
		if err != nil {
			return nil, err
		}
		f.Date = &date
	}
	return s.repo.List(ctx, f)
}

// IssueToken hands the owning teacher a signed check-in token and the scan
// URL to embed in a QR code. actorTeacherID nil means an administrator.
func (s *Service) IssueToken(ctx context.Context, id string, actorTeacherID *string) (tok, scanURL string, err error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", "", err
	}
	if c == nil {
		return "", "", apperr.NotFound("class session %s not found", id)
	}
	if actorTeacherID != nil && *actorTeacherID != c.TeacherID {
		return "", "", apperr.Forbidden("class session %s belongs to another teacher", id)
	}
	tok = s.tokens.Issue(c.ID)
	return tok, s.checkinBase + "?token=" + url.QueryEscape(tok), nil
}

func parseSchedule(dateStr, startStr, endStr string) (time.Time, int, int, error) {
	date, err := parseDate(dateStr)
	if err != nil {
		return time.Time{}, 0, 0, err
	}
	startMin, err := parseClock(startStr)
	if err != nil {
		return time.Time{}, 0, 0, err
	}
	endMin, err := parseClock(endStr)
	if err != nil {
		return time.Time{}, 0, 0, err
	}
	if endMin <= startMin {
		return time.Time{}, 0, 0, apperr.Invalid("end time must be after start time")
	}
	return date, startMin, endMin, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, apperr.Invalid("invalid date %q, want YYYY-MM-DD", s)
	}
	return d, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, apperr.Invalid("invalid time %q, want HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
