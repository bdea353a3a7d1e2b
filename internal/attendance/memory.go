package attendance

import (
	"context"
	"sync"
)

// MemRepository is an in-memory Repository for tests and single-process
// dev runs. Check-and-insert happens under one lock so concurrent check-ins
// for a pair collapse to a single record, like the Postgres constraint.
type MemRepository struct {
	mu      sync.Mutex
	records map[string]Record // keyed by studentID+"/"+classSessionID
}

// NewMemRepository creates an empty in-memory repo.
func NewMemRepository() *MemRepository {
	return &MemRepository{records: make(map[string]Record)}
}

func (r *MemRepository) Upsert(_ context.Context, rec Record) (Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := rec.StudentID + "/" + rec.ClassSessionID
	if existing, ok := r.records[key]; ok {
		return existing, false, nil
	}
	r.records[key] = rec
	return rec, true, nil
}

func (r *MemRepository) BySession(_ context.Context, classSessionID string) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Record
	for _, rec := range r.records {
		if rec.ClassSessionID == classSessionID {
			res = append(res, rec)
		}
	}
	return res, nil
}

func (r *MemRepository) List(_ context.Context, f Filter) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Record
	for _, rec := range r.records {
		if f.StudentID != "" && rec.StudentID != f.StudentID {
			continue
		}
		if f.SubjectID != "" && rec.SubjectID != f.SubjectID {
			continue
		}
		if f.From != nil && rec.RecordedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && rec.RecordedAt.After(*f.To) {
			continue
		}
		res = append(res, rec)
	}
	return res, nil
}
