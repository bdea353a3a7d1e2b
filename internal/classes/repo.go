package classes

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"sync"
)

// PGRepository persists class sessions in Postgres.
type PGRepository struct {
	db *sql.DB
}

// NewPGRepository creates a repo.
func NewPGRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

func (r *PGRepository) Insert(ctx context.Context, c ClassSession) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO class_sessions (id, subject_id, teacher_id, class_date, start_min, end_min)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, c.ID, c.SubjectID, c.TeacherID, c.Date, c.StartMin, c.EndMin)
	return err
}

func (r *PGRepository) Get(ctx context.Context, id string) (*ClassSession, error) {
	var c ClassSession
	err := r.db.QueryRowContext(ctx, `
		SELECT id, subject_id, teacher_id, class_date, start_min, end_min
		FROM class_sessions WHERE id = $1
	`, id).Scan(&c.ID, &c.SubjectID, &c.TeacherID, &c.Date, &c.StartMin, &c.EndMin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PGRepository) Update(ctx context.Context, c ClassSession) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE class_sessions SET class_date = $2, start_min = $3, end_min = $4 WHERE id = $1
	`, c.ID, c.Date, c.StartMin, c.EndMin)
	return err
}

func (r *PGRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM class_sessions WHERE id = $1`, id)
	return err
}

func (r *PGRepository) List(ctx context.Context, f Filter) ([]ClassSession, error) {
	query := `SELECT id, subject_id, teacher_id, class_date, start_min, end_min FROM class_sessions`
	args := []any{}
	clauses := []string{}
	if f.SubjectID != "" {
		args = append(args, f.SubjectID)
		clauses = append(clauses, "subject_id = $"+strconv.Itoa(len(args)))
	}
	if f.TeacherID != "" {
		args = append(args, f.TeacherID)
		clauses = append(clauses, "teacher_id = $"+strconv.Itoa(len(args)))
	}
	if f.Date != nil {
		args = append(args, *f.Date)
		clauses = append(clauses, "class_date = $"+strconv.Itoa(len(args)))
	}
	for i, cl := range clauses {
		if i == 0 {
			query += " WHERE " + cl
		} else {
			query += " AND " + cl
		}
	}
	query += " ORDER BY class_date, start_min"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ClassSession
	for rows.Next() {
		var c ClassSession
		if err := rows.Scan(&c.ID, &c.SubjectID, &c.TeacherID, &c.Date, &c.StartMin, &c.EndMin); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// MemRepository is an in-memory Repository for tests.
type MemRepository struct {
	mu       sync.Mutex
	sessions map[string]ClassSession
}

// NewMemRepository creates an empty in-memory repo.
func NewMemRepository() *MemRepository {
	return &MemRepository{sessions: make(map[string]ClassSession)}
}

func (r *MemRepository) Insert(_ context.Context, c ClassSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[c.ID] = c
	return nil
}

func (r *MemRepository) Get(_ context.Context, id string) (*ClassSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.sessions[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (r *MemRepository) Update(_ context.Context, c ClassSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[c.ID] = c
	return nil
}

func (r *MemRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *MemRepository) List(_ context.Context, f Filter) ([]ClassSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []ClassSession
	for _, c := range r.sessions {
		if f.SubjectID != "" && c.SubjectID != f.SubjectID {
			continue
		}
		if f.TeacherID != "" && c.TeacherID != f.TeacherID {
			continue
		}
		if f.Date != nil && !c.Date.Equal(*f.Date) {
			continue
		}
		res = append(res, c)
	}
	return res, nil
}
