package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"classtrack/internal/apperr"
)

// PGRepository persists enrollments in Postgres. The partial unique index
// enrollments_active_pair carries the one-active-row invariant, so a
// racing insert loses cleanly instead of creating a duplicate.
type PGRepository struct {
	db *sql.DB
}

// NewPGRepository creates a repo.
func NewPGRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

func (r *PGRepository) Insert(ctx context.Context, e Enrollment) error {
	var inserted string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO enrollments (id, student_id, subject_id, status, enrolled_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (student_id, subject_id) WHERE status = 'active' DO NOTHING
		RETURNING id
	`, e.ID, e.StudentID, e.SubjectID, e.Status, e.EnrolledAt).Scan(&inserted)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Conflict("student %s is already enrolled in subject %s", e.StudentID, e.SubjectID)
	}
	return err
}

func (r *PGRepository) MarkWithdrawn(ctx context.Context, id string, at time.Time, by *string) (*Enrollment, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE enrollments
		SET status = 'withdrawn', withdrawn_at = $2, withdrawn_by = $3
		WHERE id = $1 AND status = 'active'
		RETURNING id, student_id, subject_id, status, enrolled_at, withdrawn_at, withdrawn_by
	`, id, at, by)
	e, err := scanEnrollment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *PGRepository) FindActive(ctx context.Context, studentID, subjectID string) (*Enrollment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, subject_id, status, enrolled_at, withdrawn_at, withdrawn_by
		FROM enrollments
		WHERE student_id = $1 AND subject_id = $2 AND status = 'active'
	`, studentID, subjectID)
	e, err := scanEnrollment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *PGRepository) ActiveBySubject(ctx context.Context, subjectID string) ([]Enrollment, error) {
	return r.query(ctx, `
		SELECT id, student_id, subject_id, status, enrolled_at, withdrawn_at, withdrawn_by
		FROM enrollments WHERE subject_id = $1 AND status = 'active'
	`, subjectID)
}

func (r *PGRepository) ActiveByStudent(ctx context.Context, studentID string) ([]Enrollment, error) {
	return r.query(ctx, `
		SELECT id, student_id, subject_id, status, enrolled_at, withdrawn_at, withdrawn_by
		FROM enrollments WHERE student_id = $1 AND status = 'active'
	`, studentID)
}

func (r *PGRepository) ListActive(ctx context.Context) ([]Enrollment, error) {
	return r.query(ctx, `
		SELECT id, student_id, subject_id, status, enrolled_at, withdrawn_at, withdrawn_by
		FROM enrollments WHERE status = 'active'
	`)
}

func (r *PGRepository) query(ctx context.Context, q string, args ...any) ([]Enrollment, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Enrollment
	for rows.Next() {
		var e Enrollment
		if err := rows.Scan(&e.ID, &e.StudentID, &e.SubjectID, &e.Status, &e.EnrolledAt, &e.WithdrawnAt, &e.WithdrawnBy); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEnrollment(row rowScanner) (*Enrollment, error) {
	var e Enrollment
	if err := row.Scan(&e.ID, &e.StudentID, &e.SubjectID, &e.Status, &e.EnrolledAt, &e.WithdrawnAt, &e.WithdrawnBy); err != nil {
		return nil, err
	}
	return &e, nil
}
