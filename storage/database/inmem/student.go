package inmemdb

import (
	"context"
	"sort"

	"github.com/darulhuda/madrasa/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	table, ok := repo.db.students[s.Kind]
	if !ok {
		return student.Student{}, student.ErrUnknownKind
	}
	for _, other := range table {
		if other.Class == s.Class && other.Roll == s.Roll {
			return student.Student{}, student.ErrRollTaken
		}
	}
	s.ID = newID()
	table[s.ID] = s
	return s, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, kind, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[kind][id]; !ok {
		return student.ErrNotFound
	}
	delete(repo.db.students[kind], id)
	return nil
}

func (repo *studentRepository) GetStudent(_ context.Context, kind, id string) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.students[kind][id]; ok {
		return s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(_ context.Context, kind, class string) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]student.Student, 0)
	for _, s := range repo.db.students[kind] {
		if class == "" || s.Class == class {
			students = append(students, s)
		}
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].Class != students[j].Class {
			return students[i].Class < students[j].Class
		}
		return students[i].Roll < students[j].Roll
	})
	return students, nil
}

func (repo *studentRepository) MaxRoll(_ context.Context, kind, class string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var max int
	for _, s := range repo.db.students[kind] {
		if s.Class == class && s.Roll > max {
			max = s.Roll
		}
	}
	return max, nil
}

func (repo *studentRepository) SetStudentPassword(_ context.Context, kind, id, password string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	s, ok := repo.db.students[kind][id]
	if !ok {
		return student.ErrNotFound
	}
	s.Password = password
	repo.db.students[kind][id] = s
	return nil
}
