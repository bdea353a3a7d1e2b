package courses

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// PGRepository persists courses in Postgres.
type PGRepository struct {
	db *sql.DB
}

// NewPGRepository creates a repo.
func NewPGRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

func (r *PGRepository) Insert(ctx context.Context, c Course) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO courses (id, name, level) VALUES ($1,$2,$3)`, c.ID, c.Name, c.Level)
	return err
}

func (r *PGRepository) Get(ctx context.Context, id string) (*Course, error) {
	var c Course
	err := r.db.QueryRowContext(ctx, `SELECT id, name, level FROM courses WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Level)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PGRepository) Update(ctx context.Context, c Course) error {
	_, err := r.db.ExecContext(ctx, `UPDATE courses SET name = $2, level = $3 WHERE id = $1`, c.ID, c.Name, c.Level)
	return err
}

func (r *PGRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	return err
}

func (r *PGRepository) List(ctx context.Context) ([]Course, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, level FROM courses ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Level); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// MemRepository is an in-memory Repository for tests.
type MemRepository struct {
	mu      sync.Mutex
	courses map[string]Course
}

// NewMemRepository creates an empty in-memory repo.
func NewMemRepository() *MemRepository {
	return &MemRepository{courses: make(map[string]Course)}
}

func (r *MemRepository) Insert(_ context.Context, c Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.courses[c.ID] = c
	return nil
}

func (r *MemRepository) Get(_ context.Context, id string) (*Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.courses[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (r *MemRepository) Update(_ context.Context, c Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.courses[c.ID] = c
	return nil
}

func (r *MemRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.courses, id)
	return nil
}

func (r *MemRepository) List(_ context.Context) ([]Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Course
	for _, c := range r.courses {
		res = append(res, c)
	}
	return res, nil
}
