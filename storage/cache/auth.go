package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/darulhuda/madrasa/core/auth"
)

const (
	lockoutPrefix = "lockout:"
	gatePrefix    = "gate:"
)

type lockoutStore struct {
	store Store
}

var _ auth.LockoutStore = (*lockoutStore)(nil)

func NewLockoutStore(store Store) auth.LockoutStore {
	return &lockoutStore{store: store}
}

func (s *lockoutStore) Load(ctx context.Context, key string) (auth.LockoutState, error) {
	var st auth.LockoutState
	data, err := s.store.Get(ctx, lockoutPrefix+key)
	if err != nil {
		if err == ErrMiss {
			return st, nil
		}
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return auth.LockoutState{}, errors.Wrap(err, "decoding lockout state")
	}
	return st, nil
}

func (s *lockoutStore) Save(ctx context.Context, key string, st auth.LockoutState, ttl time.Duration) error {
	data, err := json.Marshal(st)
	if err != nil {
		return errors.Wrap(err, "encoding lockout state")
	}
	return s.store.Set(ctx, lockoutPrefix+key, data, ttl)
}

func (s *lockoutStore) Clear(ctx context.Context, key string) error {
	return s.store.Delete(ctx, lockoutPrefix+key)
}

type unlockStore struct {
	store Store
}

var _ auth.UnlockStore = (*unlockStore)(nil)

func NewUnlockStore(store Store) auth.UnlockStore {
	return &unlockStore{store: store}
}

func (s *unlockStore) SetUnlocked(ctx context.Context, sid string, ttl time.Duration) error {
	return s.store.Set(ctx, gatePrefix+sid, []byte("1"), ttl)
}

func (s *unlockStore) Touch(ctx context.Context, sid string, ttl time.Duration) (bool, error) {
	return s.store.Expire(ctx, gatePrefix+sid, ttl)
}

func (s *unlockStore) IsUnlocked(ctx context.Context, sid string) (bool, error) {
	_, err := s.store.Get(ctx, gatePrefix+sid)
	switch err {
	case nil:
		return true, nil
	case ErrMiss:
		return false, nil
	}
	return false, err
}

func (s *unlockStore) ClearUnlocked(ctx context.Context, sid string) error {
	return s.store.Delete(ctx, gatePrefix+sid)
}
