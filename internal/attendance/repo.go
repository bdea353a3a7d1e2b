package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
)

// PGRepository persists attendance records in Postgres. The unique
// constraint on (student_id, class_session_id) is the correctness contract
// under concurrent check-ins; the loser of a race reads the winner's row.
type PGRepository struct {
	db *sql.DB
}

// NewPGRepository creates a repo.
func NewPGRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

// Upsert inserts rec, or returns the existing record for its pair.
func (r *PGRepository) Upsert(ctx context.Context, rec Record) (Record, bool, error) {
	var inserted string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (id, student_id, class_session_id, subject_id, method, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (student_id, class_session_id) DO NOTHING
		RETURNING id
	`, rec.ID, rec.StudentID, rec.ClassSessionID, rec.SubjectID, rec.Method, rec.RecordedAt).Scan(&inserted)
	if errors.Is(err, sql.ErrNoRows) {
		existing, ferr := r.find(ctx, rec.StudentID, rec.ClassSessionID)
		if ferr != nil {
			return Record{}, false, ferr
		}
		return existing, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (r *PGRepository) find(ctx context.Context, studentID, classSessionID string) (Record, error) {
	var rec Record
	err := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, class_session_id, subject_id, method, recorded_at
		FROM attendance_records WHERE student_id = $1 AND class_session_id = $2
	`, studentID, classSessionID).
		Scan(&rec.ID, &rec.StudentID, &rec.ClassSessionID, &rec.SubjectID, &rec.Method, &rec.RecordedAt)
	return rec, err
}

// BySession returns all records for a class session.
func (r *PGRepository) BySession(ctx context.Context, classSessionID string) ([]Record, error) {
	return r.query(ctx, `
		SELECT id, student_id, class_session_id, subject_id, method, recorded_at
		FROM attendance_records WHERE class_session_id = $1
	`, classSessionID)
}

// List returns records matching the filter, newest first.
func (r *PGRepository) List(ctx context.Context, f Filter) ([]Record, error) {
	query := `SELECT id, student_id, class_session_id, subject_id, method, recorded_at FROM attendance_records`
	args := []any{}
	clauses := []string{}
	if f.StudentID != "" {
		args = append(args, f.StudentID)
		clauses = append(clauses, "student_id = $"+strconv.Itoa(len(args)))
	}
	if f.SubjectID != "" {
		args = append(args, f.SubjectID)
		clauses = append(clauses, "subject_id = $"+strconv.Itoa(len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		clauses = append(clauses, "recorded_at >= $"+strconv.Itoa(len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		clauses = append(clauses, "recorded_at <= $"+strconv.Itoa(len(args)))
	}
	for i, cl := range clauses {
		if i == 0 {
			query += " WHERE " + cl
		} else {
			query += " AND " + cl
		}
	}
	query += " ORDER BY recorded_at DESC"
	return r.query(ctx, query, args...)
}

func (r *PGRepository) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.ClassSessionID, &rec.SubjectID, &rec.Method, &rec.RecordedAt); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
