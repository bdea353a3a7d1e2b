package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"classtrack/internal/apperr"
	"classtrack/internal/classes"
	"classtrack/internal/enrollment"
)

// MethodQR is the method stamped on token-based check-ins.
const MethodQR = "QR"

// swappable in tests
var nowFunc = time.Now

// Record is the durable fact that a student checked in to a class session.
// At most one record exists per (student, class session); repeat check-ins
// return the existing record instead of erroring.
type Record struct {
	ID             string    `json:"id"`
	StudentID      string    `json:"student_id"`
	ClassSessionID string    `json:"class_session_id"`
	SubjectID      string    `json:"subject_id"`
	Method         string    `json:"method"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// Filter narrows Report results; zero values mean "any".
type Filter struct {
	StudentID string
	SubjectID string
	From      *time.Time
	To        *time.Time
}

// Repository persists attendance records. Upsert must enforce the
// per-(student, session) uniqueness atomically so a race yields one row.
type Repository interface {
	// Upsert inserts rec unless a record for its (student, session) pair
	// exists, in which case the existing record comes back with false.
	Upsert(ctx context.Context, rec Record) (Record, bool, error)
	BySession(ctx context.Context, classSessionID string) ([]Record, error)
	List(ctx context.Context, f Filter) ([]Record, error)
}

// Sessions is the class session lookup the service needs.
type Sessions interface {
	Get(ctx context.Context, id string) (*classes.ClassSession, error)
}

// Ledger is the slice of the enrollment ledger the service needs.
type Ledger interface {
	FindActive(ctx context.Context, studentID, subjectID string) (*enrollment.Enrollment, error)
	ActiveRoster(ctx context.Context, subjectID string) ([]string, error)
}

// TokenVerifier checks a signed check-in token and yields the session id.
type TokenVerifier interface {
	Verify(tok string, maxAge time.Duration) (string, error)
}

// Options carries the classification thresholds and the token window.
// These are configuration, not business law.
type Options struct {
	OnTimeGrace time.Duration // checked in within this of start: present
	LateCutoff  time.Duration // within this of start: late; beyond: absent
	TokenMaxAge time.Duration
}

// DefaultOptions matches the documented defaults: 5 minute grace,
// 30 minute late cutoff, 5 minute token window.
func DefaultOptions() Options {
	return Options{OnTimeGrace: 5 * time.Minute, LateCutoff: 30 * time.Minute, TokenMaxAge: 5 * time.Minute}
}

// Service records and summarizes attendance.
type Service struct {
	repo     Repository
	sessions Sessions
	ledger   Ledger
	verifier TokenVerifier
	opts     Options
}

// NewService creates the recorder/summarizer.
func NewService(repo Repository, sessions Sessions, ledger Ledger, verifier TokenVerifier, opts Options) *Service {
	if opts.OnTimeGrace <= 0 {
		opts.OnTimeGrace = 5 * time.Minute
	}
	if opts.LateCutoff <= 0 {
		opts.LateCutoff = 30 * time.Minute
	}
	if opts.TokenMaxAge <= 0 {
		opts.TokenMaxAge = 5 * time.Minute
	}
	return &Service{repo: repo, sessions: sessions, ledger: ledger, verifier: verifier, opts: opts}
}

// Record validates eligibility and writes at most one attendance record for
// the (student, session) pair. The second call for the same pair is a
// successful no-op returning the existing record with created=false.
// Checks precede writes: nothing is stored on a failed validation.
func (s *Service) Record(ctx context.Context, studentID, classSessionID, method string) (Record, bool, error) {
	if studentID == "" || classSessionID == "" {
		return Record{}, false, apperr.Invalid("student id and class session id are required")
	}
	if method == "" {
		method = MethodQR
	}

	session, err := s.sessions.Get(ctx, classSessionID)
	if err != nil {
		return Record{}, false, err
	}
	if session == nil {
		return Record{}, false, apperr.NotFound("class session %s not found", classSessionID)
	}

	enr, err := s.ledger.FindActive(ctx, studentID, session.SubjectID)
	if err != nil {
		return Record{}, false, err
	}
	if enr == nil {
		return Record{}, false, apperr.Forbidden("student is not enrolled in this subject")
	}

	rec := Record{
		ID:             uuid.NewString(),
		StudentID:      studentID,
		ClassSessionID: session.ID,
		SubjectID:      session.SubjectID,
		Method:         method,
		RecordedAt:     nowFunc().UTC(),
	}
	return s.repo.Upsert(ctx, rec)
}

// RecordViaToken verifies a check-in token and records attendance for the
// session it binds. An invalid or expired token is unauthorized.
func (s *Service) RecordViaToken(ctx context.Context, studentID, tok string) (Record, bool, error) {
	classSessionID, err := s.verifier.Verify(tok, s.opts.TokenMaxAge)
	if err != nil {
		return Record{}, false, err
	}
	return s.Record(ctx, studentID, classSessionID, MethodQR)
}

// Summary buckets a class roster into present, late and absent.
type Summary struct {
	Present []string `json:"present"`
	Late    []string `json:"late"`
	Absent  []string `json:"absent"`
}

// Summarize classifies every actively enrolled student of the session's
// subject. No record means absent; a record within the grace of class
// start (or before it) is present; within the late cutoff, late; beyond
// the cutoff the check-in is discarded as too late and counts absent.
func (s *Service) Summarize(ctx context.Context, classSessionID string) (Summary, error) {
	session, err := s.sessions.Get(ctx, classSessionID)
	if err != nil {
		return Summary{}, err
	}
	if session == nil {
		return Summary{}, apperr.NotFound("class session %s not found", classSessionID)
	}

	roster, err := s.ledger.ActiveRoster(ctx, session.SubjectID)
	if err != nil {
		return Summary{}, err
	}
	records, err := s.repo.BySession(ctx, session.ID)
	if err != nil {
		return Summary{}, err
	}
	recorded := make(map[string]Record, len(records))
	for _, r := range records {
		recorded[r.StudentID] = r
	}

	start := session.StartsAt()
	sum := Summary{Present: []string{}, Late: []string{}, Absent: []string{}}
	for _, studentID := range roster {
		rec, ok := recorded[studentID]
		if !ok {
			sum.Absent = append(sum.Absent, studentID)
			continue
		}
		switch delta := rec.RecordedAt.Sub(start); {
		case delta <= s.opts.OnTimeGrace:
			sum.Present = append(sum.Present, studentID)
		case delta <= s.opts.LateCutoff:
			sum.Late = append(sum.Late, studentID)
		default:
			sum.Absent = append(sum.Absent, studentID)
		}
	}
	return sum, nil
}

// Report lists records matching the filter, for administrative review.
func (s *Service) Report(ctx context.Context, f Filter) ([]Record, error) {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, apperr.Invalid("report range end precedes start")
	}
	return s.repo.List(ctx, f)
}
