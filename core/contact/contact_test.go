package contact_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darulhuda/madrasa/core"
	"github.com/darulhuda/madrasa/core/contact"
	"github.com/darulhuda/madrasa/storage/cache"
	"github.com/darulhuda/madrasa/storage/database/inmem"
)

func TestNewMessage_Validate(t *testing.T) {
	validate, _ := core.NewValidator()

	tests := []struct {
		name    string
		nm      contact.NewMessage
		wantErr bool
	}{
		{"email", contact.NewMessage{Name: "A", Email: "a@example.com", Body: "salam"}, false},
		{"mobile", contact.NewMessage{Name: "A", Mobile: "01711111111", Body: "salam"}, false},
		{"neither", contact.NewMessage{Name: "A", Body: "salam"}, true},
		{"bad mobile", contact.NewMessage{Name: "A", Mobile: "1711111111", Body: "salam"}, true},
		{"blank body", contact.NewMessage{Name: "A", Email: "a@example.com", Body: "   "}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nm.Validate(validate)
			assert.Equal(t, tt.wantErr, err != nil, err)
		})
	}
}

func TestService_Submit(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc := contact.NewService(inmemdb.NewContactRepository(inmemdb.NewDB()), cache.NewThrottle(cache.NewMemoryStore(clock)), 0)
	ctx := context.Background()
	nm := contact.NewMessage{Name: " Abdur Rahman ", Email: "AR@Example.com", Body: "Is hifz admission open?"}

	m, err := svc.Submit(ctx, "203.0.113.7", nm)
	require.NoError(t, err)
	assert.Equal(t, "Abdur Rahman", m.Name)
	assert.Equal(t, "ar@example.com", m.Email)

	now = now.Add(20 * time.Minute)
	_, err = svc.Submit(ctx, "203.0.113.7", nm)
	var tErr *contact.ThrottledError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, 40*time.Minute, tErr.Remaining)
	assert.EqualError(t, err, "you have already sent a message, please wait 40 minute(s)")

	_, err = svc.Submit(ctx, "203.0.113.8", nm)
	require.NoError(t, err)

	now = now.Add(40 * time.Minute)
	_, err = svc.Submit(ctx, "203.0.113.7", nm)
	require.NoError(t, err)

	msgs, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)
}

// flakyRepository fails the first failures writes.
type flakyRepository struct {
	contact.Repository
	failures int
}

func (repo *flakyRepository) CreateMessage(ctx context.Context, m contact.Message) (contact.Message, error) {
	if repo.failures > 0 {
		repo.failures--
		return contact.Message{}, errors.New("write concern timeout")
	}
	return repo.Repository.CreateMessage(ctx, m)
}

func TestService_Submit_failedWrite(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	repo := &flakyRepository{Repository: inmemdb.NewContactRepository(inmemdb.NewDB()), failures: 1}
	svc := contact.NewService(repo, cache.NewThrottle(cache.NewMemoryStore(clock)), time.Hour)
	ctx := context.Background()
	nm := contact.NewMessage{Name: "Abdur Rahman", Mobile: "01711111111", Body: "Is hifz admission open?"}

	_, err := svc.Submit(ctx, "203.0.113.7", nm)
	require.Error(t, err)
	var tErr *contact.ThrottledError
	assert.False(t, errors.As(err, &tErr))

	// nothing was stored, so the visitor may retry right away
	m, err := svc.Submit(ctx, "203.0.113.7", nm)
	require.NoError(t, err)
	assert.Equal(t, "01711111111", m.Mobile)

	_, err = svc.Submit(ctx, "203.0.113.7", nm)
	require.ErrorAs(t, err, &tErr)

	msgs, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}
