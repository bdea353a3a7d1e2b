package classes

import (
	"context"
	"strings"
	"testing"

	"classtrack/internal/apperr"
	"classtrack/internal/subjects"
	"classtrack/internal/token"
)

type subjectDir map[string]subjects.Subject

func (d subjectDir) Get(_ context.Context, id string) (*subjects.Subject, error) {
	if s, ok := d[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func newTestService() (*Service, *MemRepository) {
	teacher := "teacher-1"
	dir := subjectDir{
		"math":      {ID: "math", Name: "Mathematics", CourseID: "c1", TeacherID: &teacher},
		"unstaffed": {ID: "unstaffed", Name: "Unstaffed", CourseID: "c1"},
	}
	repo := NewMemRepository()
	return NewService(repo, dir, token.NewCodec("test-secret"), "https://school.example/scan"), repo
}

func TestCreate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	session, err := svc.Create(ctx, "teacher-1", "math", Schedule{Date: "2024-03-11", Start: "09:00", End: "10:30"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if session.StartMin != 9*60 || session.EndMin != 10*60+30 {
		t.Errorf("session minutes = %d..%d, want 540..630", session.StartMin, session.EndMin)
	}
	if got := session.StartsAt().Format("2006-01-02 15:04"); got != "2024-03-11 09:00" {
		t.Errorf("StartsAt() = %s, want 2024-03-11 09:00", got)
	}
}

func TestCreateErrors(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name      string
		teacherID string
		subjectID string
		sched     Schedule
		want      apperr.Kind
	}{
		{
			name:      "not the subject's teacher",
			teacherID: "teacher-2",
			subjectID: "math",
			sched:     Schedule{Date: "2024-03-11", Start: "09:00", End: "10:00"},
			want:      apperr.KindForbidden,
		},
		{
			name:      "subject without teacher",
			teacherID: "teacher-1",
			subjectID: "unstaffed",
			sched:     Schedule{Date: "2024-03-11", Start: "09:00", End: "10:00"},
			want:      apperr.KindForbidden,
		},
		{
			name:      "unknown subject",
			teacherID: "teacher-1",
			subjectID: "nope",
			sched:     Schedule{Date: "2024-03-11", Start: "09:00", End: "10:00"},
			want:      apperr.KindNotFound,
		},
		{
			name:      "bad date",
			teacherID: "teacher-1",
			subjectID: "math",
			sched:     Schedule{Date: "11/03/2024", Start: "09:00", End: "10:00"},
			want:      apperr.KindInvalid,
		},
		{
			name:      "bad time",
			teacherID: "teacher-1",
			subjectID: "math",
			sched:     Schedule{Date: "2024-03-11", Start: "9am", End: "10:00"},
			want:      apperr.KindInvalid,
		},
		{
			name:      "end before start",
			teacherID: "teacher-1",
			subjectID: "math",
			sched:     Schedule{Date: "2024-03-11", Start: "10:00", End: "09:00"},
			want:      apperr.KindInvalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.teacherID, tt.subjectID, tt.sched)
			if !apperr.IsKind(err, tt.want) {
				t.Errorf("Create() error = %v, want kind %s", err, tt.want)
			}
		})
	}
}

func TestUpdateOwnership(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	session, err := svc.Create(ctx, "teacher-1", "math", Schedule{Date: "2024-03-11", Start: "09:00", End: "10:00"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	other := "teacher-2"
	if _, err := svc.Update(ctx, session.ID, &other, Schedule{Start: "09:30"}); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Errorf("Update() by other teacher error = %v, want forbidden", err)
	}

	owner := "teacher-1"
	updated, err := svc.Update(ctx, session.ID, &owner, Schedule{Start: "09:30"})
	if err != nil {
		t.Fatalf("Update() by owner error = %v", err)
	}
	if updated.StartMin != 9*60+30 {
		t.Errorf("StartMin = %d, want 570", updated.StartMin)
	}

	// nil actor is an administrator
	if _, err := svc.Update(ctx, session.ID, nil, Schedule{End: "11:00"}); err != nil {
		t.Errorf("Update() by admin error = %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	session, _ := svc.Create(ctx, "teacher-1", "math", Schedule{Date: "2024-03-11", Start: "09:00", End: "10:00"})
	owner := "teacher-1"
	if err := svc.Delete(ctx, session.ID, &owner); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, session.ID, &owner); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("second Delete() error = %v, want not found", err)
	}
}

func TestIssueToken(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	codec := token.NewCodec("test-secret")

	session, _ := svc.Create(ctx, "teacher-1", "math", Schedule{Date: "2024-03-11", Start: "09:00", End: "10:00"})

	owner := "teacher-1"
	tok, scanURL, err := svc.IssueToken(ctx, session.ID, &owner)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if !strings.HasPrefix(scanURL, "https://school.example/scan?token=") {
		t.Errorf("scan url = %q, want token query on the check-in base", scanURL)
	}
	got, err := codec.Verify(tok, token.DefaultMaxAge)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if got != session.ID {
		t.Errorf("token binds %q, want %q", got, session.ID)
	}

	other := "teacher-2"
	if _, _, err := svc.IssueToken(ctx, session.ID, &other); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Errorf("IssueToken() by other teacher error = %v, want forbidden", err)
	}
	if _, _, err := svc.IssueToken(ctx, "nope", &owner); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("IssueToken() unknown session error = %v, want not found", err)
	}
}

func TestListFilters(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, "teacher-1", "math", Schedule{Date: "2024-03-11", Start: "09:00", End: "10:00"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Create(ctx, "teacher-1", "math", Schedule{Date: "2024-03-12", Start: "09:00", End: "10:00"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	list, err := svc.List(ctx, "", "", "2024-03-11")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 {
		t.Errorf("List(date) = %d sessions, want 1", len(list))
	}

	if _, err := svc.List(ctx, "", "", "bogus"); !apperr.IsKind(err, apperr.KindInvalid) {
		t.Errorf("List() with bad date error = %v, want invalid", err)
	}
}
