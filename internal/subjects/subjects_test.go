package subjects

import (
	"context"
	"testing"

	"classtrack/internal/apperr"
	"classtrack/internal/courses"
	"classtrack/internal/users"
)

type courseDir map[string]courses.Course

func (d courseDir) Get(_ context.Context, id string) (*courses.Course, error) {
	if c, ok := d[id]; ok {
		return &c, nil
	}
	return nil, nil
}

type teacherDir map[string]users.Teacher

func (d teacherDir) GetTeacher(_ context.Context, id string) (*users.Teacher, error) {
	if t, ok := d[id]; ok {
		return &t, nil
	}
	return nil, nil
}

func strptr(s string) *string { return &s }

func newTestService() *Service {
	return NewService(
		NewMemRepository(),
		courseDir{"course-1": {ID: "course-1", Name: "1st year", Level: "secondary"}},
		teacherDir{"teacher-1": {ID: "teacher-1", UserID: "user-1"}},
	)
}

func TestCreate(t *testing.T) {
	svc := newTestService()
	sub, err := svc.Create(context.Background(), "Mathematics", "course-1", strptr("teacher-1"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sub.ID == "" || sub.CourseID != "course-1" {
		t.Errorf("Create() = %+v", sub)
	}

	// unstaffed subjects are allowed
	if _, err := svc.Create(context.Background(), "History", "course-1", nil); err != nil {
		t.Errorf("Create() without teacher error = %v", err)
	}
}

func TestCreateErrors(t *testing.T) {
	svc := newTestService()
	tests := []struct {
		name      string
		subject   string
		courseID  string
		teacherID *string
		wantKind  apperr.Kind
	}{
		{name: "missing name", subject: "", courseID: "course-1", wantKind: apperr.KindInvalid},
		{name: "unknown course", subject: "Maths", courseID: "course-9", wantKind: apperr.KindNotFound},
		{name: "unknown teacher", subject: "Maths", courseID: "course-1", teacherID: strptr("teacher-9"), wantKind: apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.subject, tt.courseID, tt.teacherID)
			if !apperr.IsKind(err, tt.wantKind) {
				t.Errorf("Create() error = %v, want %s", err, tt.wantKind)
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	svc := newTestService()
	sub, err := svc.Create(context.Background(), "Mathematics", "course-1", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := svc.Update(context.Background(), sub.ID, "", strptr("teacher-1"))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Name != "Mathematics" {
		t.Errorf("Update() with empty name changed it to %q", got.Name)
	}
	if got.TeacherID == nil || *got.TeacherID != "teacher-1" {
		t.Errorf("Update() teacher = %v, want teacher-1", got.TeacherID)
	}

	if _, err := svc.Update(context.Background(), sub.ID, "", strptr("teacher-9")); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("Update() unknown teacher error = %v, want not found", err)
	}
	if _, err := svc.Update(context.Background(), "subject-9", "Physics", nil); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("Update() unknown subject error = %v, want not found", err)
	}
}

func TestSearch(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	for _, name := range []string{"Mathematics I", "Mathematics II", "History"} {
		if _, err := svc.Create(ctx, name, "course-1", nil); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}

	got, err := svc.Search(ctx, "math")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Search(math) = %d subjects, want 2", len(got))
	}

	got, err = svc.Search(ctx, "")
	if err != nil || got != nil {
		t.Errorf("Search(empty) = %v, %v, want nil, nil", got, err)
	}
}

func TestByTeacher(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if _, err := svc.Create(ctx, "Mathematics", "course-1", strptr("teacher-1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Create(ctx, "History", "course-1", nil); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := svc.ByTeacher(ctx, "teacher-1")
	if err != nil {
		t.Fatalf("ByTeacher() error = %v", err)
	}
	if len(got) != 1 || got[0].Name != "Mathematics" {
		t.Errorf("ByTeacher() = %+v, want the one assigned subject", got)
	}
}
