package inmemdb

import (
	"context"
	"sort"

	"github.com/darulhuda/madrasa/core/admission"
)

type admissionRepository struct {
	db *DB
}

var _ admission.Repository = (*admissionRepository)(nil)

func NewAdmissionRepository(db *DB) admission.Repository {
	return &admissionRepository{db: db}
}

func (repo *admissionRepository) CreateAdmission(_ context.Context, a admission.Admission) (admission.Admission, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	a.ID = newID()
	repo.db.admissions[a.ID] = a
	return a, nil
}

func (repo *admissionRepository) GetAdmission(_ context.Context, id string) (admission.Admission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if a, ok := repo.db.admissions[id]; ok {
		return a, nil
	}
	return admission.Admission{}, admission.ErrNotFound
}

func (repo *admissionRepository) QueryAdmissions(_ context.Context, status string) ([]admission.Admission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	admissions := make([]admission.Admission, 0)
	for _, a := range repo.db.admissions {
		if status == "" || a.Status == status {
			admissions = append(admissions, a)
		}
	}
	sort.Slice(admissions, func(i, j int) bool { return admissions[i].CreatedAt.After(admissions[j].CreatedAt) })
	return admissions, nil
}

func (repo *admissionRepository) SwapAdmission(_ context.Context, from string, a admission.Admission) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	old, ok := repo.db.admissions[a.ID]
	if !ok {
		return admission.ErrNotFound
	}
	if old.Status != from {
		return admission.ErrAlreadyDecided
	}
	repo.db.admissions[a.ID] = a
	return nil
}
