package enrollment

import (
	"context"
	"sync"
	"testing"

	"classtrack/internal/apperr"
)

func TestEnrollDuplicateConflicts(t *testing.T) {
	svc := NewService(NewMemRepository())
	ctx := context.Background()

	if _, err := svc.Enroll(ctx, "student-1", "math"); err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}
	_, err := svc.Enroll(ctx, "student-1", "math")
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("duplicate Enroll() error = %v, want conflict", err)
	}

	// a different subject is fine
	if _, err := svc.Enroll(ctx, "student-1", "history"); err != nil {
		t.Errorf("Enroll() other subject error = %v", err)
	}
}

func TestEnrollValidation(t *testing.T) {
	svc := NewService(NewMemRepository())
	tests := []struct {
		name      string
		studentID string
		subjectID string
	}{
		{name: "missing student", subjectID: "math"},
		{name: "missing subject", studentID: "student-1"},
		{name: "missing both"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Enroll(context.Background(), tt.studentID, tt.subjectID)
			if !apperr.IsKind(err, apperr.KindInvalid) {
				t.Errorf("Enroll() error = %v, want invalid", err)
			}
		})
	}
}

func TestEnrollConcurrent(t *testing.T) {
	svc := NewService(NewMemRepository())
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	outcomes := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Enroll(ctx, "student-1", "math")
			outcomes <- err
		}()
	}
	wg.Wait()
	close(outcomes)

	successes, conflicts := 0, 0
	for err := range outcomes {
		switch {
		case err == nil:
			successes++
		case apperr.IsKind(err, apperr.KindConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != n-1 {
		t.Errorf("got %d successes and %d conflicts, want 1 and %d", successes, conflicts, n-1)
	}
}

func TestWithdraw(t *testing.T) {
	svc := NewService(NewMemRepository())
	ctx := context.Background()

	e, err := svc.Enroll(ctx, "student-1", "math")
	if err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}

	actor := "teacher-1"
	withdrawn, err := svc.Withdraw(ctx, e.ID, &actor)
	if err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}
	if withdrawn.Status != StatusWithdrawn {
		t.Errorf("status = %s, want %s", withdrawn.Status, StatusWithdrawn)
	}
	if withdrawn.WithdrawnAt == nil || withdrawn.WithdrawnBy == nil || *withdrawn.WithdrawnBy != actor {
		t.Errorf("withdrawal stamps missing: %+v", withdrawn)
	}

	// withdrawal is terminal and not idempotent
	if _, err := svc.Withdraw(ctx, e.ID, &actor); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("second Withdraw() error = %v, want not found", err)
	}
}

func TestWithdrawUnknown(t *testing.T) {
	svc := NewService(NewMemRepository())
	if _, err := svc.Withdraw(context.Background(), "nope", nil); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("Withdraw() error = %v, want not found", err)
	}
}

func TestWithdrawWithoutActor(t *testing.T) {
	svc := NewService(NewMemRepository())
	ctx := context.Background()

	e, _ := svc.Enroll(ctx, "student-1", "math")
	withdrawn, err := svc.Withdraw(ctx, e.ID, nil)
	if err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}
	if withdrawn.WithdrawnBy != nil {
		t.Errorf("WithdrawnBy = %v, want nil for anonymous actor", *withdrawn.WithdrawnBy)
	}
}

func TestActiveRoster(t *testing.T) {
	svc := NewService(NewMemRepository())
	ctx := context.Background()

	for _, s := range []string{"a", "b", "c"} {
		if _, err := svc.Enroll(ctx, s, "math"); err != nil {
			t.Fatalf("Enroll(%s) error = %v", s, err)
		}
	}
	e, _ := svc.Enroll(ctx, "d", "math")
	if _, err := svc.Withdraw(ctx, e.ID, nil); err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}
	if _, err := svc.Enroll(ctx, "a", "history"); err != nil {
		t.Fatalf("Enroll other subject error = %v", err)
	}

	roster, err := svc.ActiveRoster(ctx, "math")
	if err != nil {
		t.Fatalf("ActiveRoster() error = %v", err)
	}
	if len(roster) != 3 {
		t.Fatalf("roster = %v, want 3 students", roster)
	}
	members := map[string]bool{}
	for _, s := range roster {
		if members[s] {
			t.Errorf("duplicate student %s in roster", s)
		}
		members[s] = true
	}
	if members["d"] {
		t.Error("withdrawn student in roster")
	}
}

func TestReEnrollAfterWithdrawal(t *testing.T) {
	svc := NewService(NewMemRepository())
	ctx := context.Background()

	first, _ := svc.Enroll(ctx, "student-1", "math")
	if _, err := svc.Withdraw(ctx, first.ID, nil); err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}

	// withdrawal is terminal for the record; re-enrolling creates a new one
	second, err := svc.Enroll(ctx, "student-1", "math")
	if err != nil {
		t.Fatalf("re-Enroll() error = %v", err)
	}
	if second.ID == first.ID {
		t.Error("re-enrollment reused the withdrawn record id")
	}
}
