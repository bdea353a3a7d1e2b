package users

import (
	"context"
	"testing"

	"classtrack/internal/apperr"
	"classtrack/internal/mailer"
)

type captureNotifier struct {
	sent []mailer.Message
}

func (n *captureNotifier) EnqueueMail(_ context.Context, msg mailer.Message) error {
	n.sent = append(n.sent, msg)
	return nil
}

func register(t *testing.T, svc *Service, email string, role Role) User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Ana",
		LastName:  "Lopez",
		Email:     email,
		Password:  "s3cret-pwd",
		Role:      role,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return u
}

func TestRegister(t *testing.T) {
	notifier := &captureNotifier{}
	svc := NewService(NewMemRepository(), notifier)
	ctx := context.Background()

	u := register(t, svc, "ana@test.test", RoleStudent)
	if u.PasswordHash == "s3cret-pwd" {
		t.Error("password stored in clear")
	}

	st, err := svc.StudentFor(ctx, u.ID)
	if err != nil {
		t.Fatalf("StudentFor() error = %v", err)
	}
	if st.UserID != u.ID {
		t.Errorf("student row user id = %s, want %s", st.UserID, u.ID)
	}

	if len(notifier.sent) != 1 || notifier.sent[0].ToEmail != "ana@test.test" {
		t.Errorf("credential mail = %+v, want one to ana@test.test", notifier.sent)
	}
}

func TestRegisterTeacherRow(t *testing.T) {
	svc := NewService(NewMemRepository(), nil)
	u := register(t, svc, "t@test.test", RoleTeacher)

	teach, err := svc.TeacherFor(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("TeacherFor() error = %v", err)
	}
	if teach == nil {
		t.Fatal("no teacher row created")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewService(NewMemRepository(), nil)
	register(t, svc, "ana@test.test", RoleStudent)

	_, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Other",
		LastName:  "Person",
		Email:     "Ana@Test.Test", // same email, different case
		Password:  "pw",
		Role:      RoleStudent,
	})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("Register() duplicate error = %v, want conflict", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(NewMemRepository(), nil)
	tests := []struct {
		name string
		in   RegisterInput
	}{
		{name: "missing fields", in: RegisterInput{Email: "a@b.c", Role: RoleStudent}},
		{name: "bad role", in: RegisterInput{FirstName: "A", LastName: "B", Email: "a@b.c", Password: "pw", Role: "janitor"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), tt.in); !apperr.IsKind(err, apperr.KindInvalid) {
				t.Errorf("Register() error = %v, want invalid", err)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(NewMemRepository(), nil)
	register(t, svc, "ana@test.test", RoleStudent)
	ctx := context.Background()

	if _, err := svc.Authenticate(ctx, "ana@test.test", "s3cret-pwd"); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	// email matching is case-insensitive
	if _, err := svc.Authenticate(ctx, " Ana@Test.Test ", "s3cret-pwd"); err != nil {
		t.Errorf("Authenticate() with cased email error = %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "ana@test.test", password: "nope"},
		{name: "unknown user", email: "ghost@test.test", password: "s3cret-pwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, tt.email, tt.password)
			if !apperr.IsKind(err, apperr.KindUnauthorized) {
				t.Errorf("Authenticate() error = %v, want unauthorized", err)
			}
		})
	}
}

func TestListByRole(t *testing.T) {
	svc := NewService(NewMemRepository(), nil)
	register(t, svc, "s@test.test", RoleStudent)
	register(t, svc, "t@test.test", RoleTeacher)

	students, err := svc.List(context.Background(), RoleStudent)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(students) != 1 || students[0].Role != RoleStudent {
		t.Errorf("List(student) = %+v, want the one student", students)
	}

	all, err := svc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List(all) = %d users, want 2", len(all))
	}

	if _, err := svc.List(context.Background(), "janitor"); !apperr.IsKind(err, apperr.KindInvalid) {
		t.Errorf("List(janitor) error = %v, want invalid", err)
	}
}
