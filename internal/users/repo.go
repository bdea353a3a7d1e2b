package users

import (
	"context"
	"database/sql"
	"errors"

	"classtrack/internal/apperr"
)

// PGRepository persists users in Postgres.
type PGRepository struct {
	db *sql.DB
}

// NewPGRepository creates a repo.
func NewPGRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

// InsertUser writes a new user; duplicate emails conflict.
func (r *PGRepository) InsertUser(ctx context.Context, u User) (User, error) {
	var inserted string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, first_name, last_name, email, password_hash, role, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (email) DO NOTHING
		RETURNING id
	`, u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.Role, u.CreatedAt).Scan(&inserted)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, apperr.Conflict("email %s already registered", u.Email)
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// GetUser returns a user by id, nil when missing.
func (r *PGRepository) GetUser(ctx context.Context, id string) (*User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, password_hash, role, created_at
		FROM users WHERE id = $1
	`, id))
}

// FindUserByEmail returns a user by email, nil when missing.
func (r *PGRepository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, password_hash, role, created_at
		FROM users WHERE email = $1
	`, email))
}

func (r *PGRepository) scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// ListUsers returns users, filtered by role when non-empty.
func (r *PGRepository) ListUsers(ctx context.Context, role Role) ([]User, error) {
	query := `SELECT id, first_name, last_name, email, password_hash, role, created_at FROM users`
	args := []any{}
	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, role)
	}
	query += ` ORDER BY last_name, first_name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// InsertTeacher writes a teacher row.
func (r *PGRepository) InsertTeacher(ctx context.Context, t Teacher) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO teachers (id, user_id) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, t.ID, t.UserID)
	return err
}

// InsertStudent writes a student row.
func (r *PGRepository) InsertStudent(ctx context.Context, s Student) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (id, user_id, course_id) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, s.ID, s.UserID, s.CourseID)
	return err
}

// GetTeacher returns a teacher row by id, nil when missing.
func (r *PGRepository) GetTeacher(ctx context.Context, id string) (*Teacher, error) {
	var t Teacher
	err := r.db.QueryRowContext(ctx, `SELECT id, user_id FROM teachers WHERE id = $1`, id).
		Scan(&t.ID, &t.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TeacherByUserID returns the teacher row for a user, nil when missing.
func (r *PGRepository) TeacherByUserID(ctx context.Context, userID string) (*Teacher, error) {
	var t Teacher
	err := r.db.QueryRowContext(ctx, `SELECT id, user_id FROM teachers WHERE user_id = $1`, userID).
		Scan(&t.ID, &t.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// StudentByUserID returns the student row for a user, nil when missing.
func (r *PGRepository) StudentByUserID(ctx context.Context, userID string) (*Student, error) {
	var s Student
	err := r.db.QueryRowContext(ctx, `SELECT id, user_id, course_id FROM students WHERE user_id = $1`, userID).
		Scan(&s.ID, &s.UserID, &s.CourseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
