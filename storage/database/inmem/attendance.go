package inmemdb

import (
	"context"
	"sort"

	"github.com/darulhuda/madrasa/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func copySheet(s attendance.Sheet) attendance.Sheet {
	entries := make(map[string]string, len(s.Entries))
	for k, v := range s.Entries {
		entries[k] = v
	}
	s.Entries = entries
	return s
}

// findSheet must be called with the lock held.
func (repo *attendanceRepository) findSheet(class, date string) (attendance.Sheet, bool) {
	for _, s := range repo.db.sheets {
		if s.Class == class && s.Date == date {
			return s, true
		}
	}
	return attendance.Sheet{}, false
}

func (repo *attendanceRepository) FindSheet(_ context.Context, class, date string) (attendance.Sheet, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if s, ok := repo.findSheet(class, date); ok {
		return copySheet(s), nil
	}
	return attendance.Sheet{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) GetSheet(_ context.Context, id string) (attendance.Sheet, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if s, ok := repo.db.sheets[id]; ok {
		return copySheet(s), nil
	}
	return attendance.Sheet{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) CreateSheet(ctx context.Context, s attendance.Sheet) (attendance.Sheet, error) {
	repo.db.mu.Lock()
	if _, ok := repo.findSheet(s.Class, s.Date); ok {
		repo.db.mu.Unlock()
		return repo.EditSheet(ctx, s)
	}
	defer repo.db.mu.Unlock()

	s = copySheet(s)
	s.ID = newID()
	repo.db.sheets[s.ID] = s
	return copySheet(s), nil
}

func (repo *attendanceRepository) EditSheet(_ context.Context, s attendance.Sheet) (attendance.Sheet, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	old, ok := repo.findSheet(s.Class, s.Date)
	if !ok {
		return attendance.Sheet{}, attendance.ErrNotFound
	}
	if old.Locked {
		return attendance.Sheet{}, attendance.ErrLocked
	}
	old = copySheet(old)
	for k := range old.Entries {
		delete(old.Entries, k)
	}
	for k, v := range s.Entries {
		old.Entries[k] = v
	}
	old.TakenBy = s.TakenBy
	old.UpdatedAt = s.UpdatedAt
	old.Edits++
	old.Locked = true
	repo.db.sheets[old.ID] = old
	return copySheet(old), nil
}

func (repo *attendanceRepository) UnlockSheet(_ context.Context, id string) (attendance.Sheet, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	s, ok := repo.db.sheets[id]
	if !ok {
		return attendance.Sheet{}, attendance.ErrNotFound
	}
	s.Locked = false
	repo.db.sheets[id] = s
	return copySheet(s), nil
}

func (repo *attendanceRepository) QuerySheets(_ context.Context, class, date string) ([]attendance.Sheet, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	sheets := make([]attendance.Sheet, 0)
	for _, s := range repo.db.sheets {
		if (class == "" || s.Class == class) && (date == "" || s.Date == date) {
			sheets = append(sheets, copySheet(s))
		}
	}
	sort.Slice(sheets, func(i, j int) bool {
		if sheets[i].Date != sheets[j].Date {
			return sheets[i].Date < sheets[j].Date
		}
		return sheets[i].Class < sheets[j].Class
	})
	return sheets, nil
}

func (repo *attendanceRepository) SaveSummary(_ context.Context, sum attendance.Summary) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.summaries[sum.Class+"|"+sum.Date] = sum
	return nil
}

func (repo *attendanceRepository) QuerySummaries(_ context.Context, date string) ([]attendance.Summary, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	sums := make([]attendance.Summary, 0)
	for _, sum := range repo.db.summaries {
		if date == "" || sum.Date == date {
			sums = append(sums, sum)
		}
	}
	sort.Slice(sums, func(i, j int) bool {
		if sums[i].Date != sums[j].Date {
			return sums[i].Date > sums[j].Date
		}
		return sums[i].Class < sums[j].Class
	})
	return sums, nil
}
