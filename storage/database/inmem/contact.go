package inmemdb

import (
	"context"

	"github.com/darulhuda/madrasa/core/contact"
)

type contactRepository struct {
	db *DB
}

var _ contact.Repository = (*contactRepository)(nil)

func NewContactRepository(db *DB) contact.Repository {
	return &contactRepository{db: db}
}

func (repo *contactRepository) CreateMessage(_ context.Context, m contact.Message) (contact.Message, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	m.ID = newID()
	repo.db.contacts = append(repo.db.contacts, m)
	return m, nil
}

func (repo *contactRepository) QueryMessages(_ context.Context) ([]contact.Message, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	msgs := make([]contact.Message, 0, len(repo.db.contacts))
	for i := len(repo.db.contacts) - 1; i >= 0; i-- {
		msgs = append(msgs, repo.db.contacts[i])
	}
	return msgs, nil
}
