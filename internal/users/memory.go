package users

import (
	"context"
	"sort"
	"sync"

	"classtrack/internal/apperr"
)

// MemRepository is an in-memory Repository for tests and single-process
// dev runs. It mirrors the Postgres uniqueness semantics.
type MemRepository struct {
	mu       sync.Mutex
	users    map[string]User
	teachers map[string]Teacher // keyed by user id
	students map[string]Student // keyed by user id
}

// NewMemRepository creates an empty in-memory repo.
func NewMemRepository() *MemRepository {
	return &MemRepository{
		users:    make(map[string]User),
		teachers: make(map[string]Teacher),
		students: make(map[string]Student),
	}
}

func (r *MemRepository) InsertUser(_ context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return User{}, apperr.Conflict("email %s already registered", u.Email)
		}
	}
	r.users[u.ID] = u
	return u, nil
}

func (r *MemRepository) GetUser(_ context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (r *MemRepository) FindUserByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (r *MemRepository) ListUsers(_ context.Context, role Role) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []User
	for _, u := range r.users {
		if role == "" || u.Role == role {
			res = append(res, u)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].LastName < res[j].LastName })
	return res, nil
}

func (r *MemRepository) InsertTeacher(_ context.Context, t Teacher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teachers[t.UserID]; !ok {
		r.teachers[t.UserID] = t
	}
	return nil
}

func (r *MemRepository) InsertStudent(_ context.Context, s Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[s.UserID]; !ok {
		r.students[s.UserID] = s
	}
	return nil
}

func (r *MemRepository) GetTeacher(_ context.Context, id string) (*Teacher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.teachers {
		if t.ID == id {
			t := t
			return &t, nil
		}
	}
	return nil, nil
}

func (r *MemRepository) TeacherByUserID(_ context.Context, userID string) (*Teacher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.teachers[userID]; ok {
		return &t, nil
	}
	return nil, nil
}

func (r *MemRepository) StudentByUserID(_ context.Context, userID string) (*Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.students[userID]; ok {
		return &s, nil
	}
	return nil, nil
}
