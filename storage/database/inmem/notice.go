package inmemdb

import (
	"context"
	"sort"

	"github.com/darulhuda/madrasa/core/notice"
)

type noticeRepository struct {
	db *DB
}

var _ notice.Repository = (*noticeRepository)(nil)

func NewNoticeRepository(db *DB) notice.Repository {
	return &noticeRepository{db: db}
}

func (repo *noticeRepository) CreateNotice(_ context.Context, n notice.Notice) (notice.Notice, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	n.ID = newID()
	repo.db.notices[n.ID] = n
	return n, nil
}

func (repo *noticeRepository) QueryNotices(_ context.Context, limit int) ([]notice.Notice, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	notices := make([]notice.Notice, 0, len(repo.db.notices))
	for _, n := range repo.db.notices {
		notices = append(notices, n)
	}
	sort.Slice(notices, func(i, j int) bool {
		if notices[i].Pinned != notices[j].Pinned {
			return notices[i].Pinned
		}
		return notices[i].PublishedAt.After(notices[j].PublishedAt)
	})
	if limit > 0 && len(notices) > limit {
		notices = notices[:limit]
	}
	return notices, nil
}

func (repo *noticeRepository) DeleteNotice(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.notices[id]; !ok {
		return notice.ErrNotFound
	}
	delete(repo.db.notices, id)
	return nil
}
