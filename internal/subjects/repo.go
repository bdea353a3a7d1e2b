package subjects

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
)

// PGRepository persists subjects in Postgres.
type PGRepository struct {
	db *sql.DB
}

// NewPGRepository creates a repo.
func NewPGRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

func (r *PGRepository) Insert(ctx context.Context, s Subject) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subjects (id, name, course_id, teacher_id) VALUES ($1,$2,$3,$4)
	`, s.ID, s.Name, s.CourseID, s.TeacherID)
	return err
}

func (r *PGRepository) Get(ctx context.Context, id string) (*Subject, error) {
	var s Subject
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, course_id, teacher_id FROM subjects WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.CourseID, &s.TeacherID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PGRepository) Update(ctx context.Context, s Subject) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subjects SET name = $2, teacher_id = $3 WHERE id = $1
	`, s.ID, s.Name, s.TeacherID)
	return err
}

func (r *PGRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	return err
}

func (r *PGRepository) List(ctx context.Context) ([]Subject, error) {
	return r.query(ctx, `SELECT id, name, course_id, teacher_id FROM subjects ORDER BY name`)
}

func (r *PGRepository) Search(ctx context.Context, term string, limit int) ([]Subject, error) {
	return r.query(ctx, `
		SELECT id, name, course_id, teacher_id FROM subjects
		WHERE name ILIKE '%' || $1 || '%' ORDER BY name LIMIT $2
	`, term, limit)
}

func (r *PGRepository) ByTeacher(ctx context.Context, teacherID string) ([]Subject, error) {
	return r.query(ctx, `
		SELECT id, name, course_id, teacher_id FROM subjects WHERE teacher_id = $1 ORDER BY name
	`, teacherID)
}

func (r *PGRepository) query(ctx context.Context, q string, args ...any) ([]Subject, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Subject
	for rows.Next() {
		var s Subject
		if err := rows.Scan(&s.ID, &s.Name, &s.CourseID, &s.TeacherID); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// MemRepository is an in-memory Repository for tests.
type MemRepository struct {
	mu       sync.Mutex
	subjects map[string]Subject
}

// NewMemRepository creates an empty in-memory repo.
func NewMemRepository() *MemRepository {
	return &MemRepository{subjects: make(map[string]Subject)}
}

func (r *MemRepository) Insert(_ context.Context, s Subject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects[s.ID] = s
	return nil
}

func (r *MemRepository) Get(_ context.Context, id string) (*Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.subjects[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (r *MemRepository) Update(_ context.Context, s Subject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects[s.ID] = s
	return nil
}

func (r *MemRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subjects, id)
	return nil
}

func (r *MemRepository) List(_ context.Context) ([]Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Subject
	for _, s := range r.subjects {
		res = append(res, s)
	}
	return res, nil
}

func (r *MemRepository) Search(_ context.Context, term string, limit int) ([]Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Subject
	for _, s := range r.subjects {
		if strings.Contains(strings.ToLower(s.Name), strings.ToLower(term)) {
			res = append(res, s)
			if len(res) == limit {
				break
			}
		}
	}
	return res, nil
}

func (r *MemRepository) ByTeacher(_ context.Context, teacherID string) ([]Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Subject
	for _, s := range r.subjects {
		if s.TeacherID != nil && *s.TeacherID == teacherID {
			res = append(res, s)
		}
	}
	return res, nil
}
