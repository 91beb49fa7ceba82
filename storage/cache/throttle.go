package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/darulhuda/madrasa/core/contact"
)

const throttlePrefix = "throttle:"

type throttle struct {
	store   Store
	nowFunc func() time.Time
}

var _ contact.Throttle = (*throttle)(nil)

func NewThrottle(store Store) contact.Throttle {
	return &throttle{store: store, nowFunc: time.Now}
}

func (t *throttle) Allow(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	stamp := []byte(strconv.FormatInt(t.nowFunc().Unix(), 10))
	ok, err := t.store.SetNX(ctx, throttlePrefix+key, stamp, window)
	if err != nil || ok {
		return ok, 0, err
	}

	remaining, err := t.store.TTL(ctx, throttlePrefix+key)
	if err == ErrMiss { // expired in between
		return t.Allow(ctx, key, window)
	}
	if err != nil {
		return false, 0, err
	}
	return false, remaining, nil
}

func (t *throttle) Release(ctx context.Context, key string) error {
	return t.store.Delete(ctx, throttlePrefix+key)
}
