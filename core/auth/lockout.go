package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultMaxFailures = 5
	DefaultCooldown    = time.Hour

	// failure counters of accounts that stop trying are forgotten after this long
	lockoutRetention = 24 * time.Hour
)

// LockoutState is what a LockoutStore persists per key.
type LockoutState struct {
	Failures    int       `json:"failures"`
	LockedUntil time.Time `json:"locked_until"`
}

// LockoutStore persists LockoutStates. Load returns the zero state for unknown keys.
type LockoutStore interface {
	Load(ctx context.Context, key string) (LockoutState, error)
	Save(ctx context.Context, key string, st LockoutState, ttl time.Duration) error
	Clear(ctx context.Context, key string) error
}

// LockoutStatus is the state of a key as seen by callers.
type LockoutStatus struct {
	Locked      bool          `json:"locked"`
	Failures    int           `json:"failures"`
	Remaining   time.Duration `json:"-"`
	LockedUntil time.Time     `json:"-"` // zero when not locked
}

func (s LockoutStatus) RemainingSeconds() int {
	return int((s.Remaining + time.Second - 1) / time.Second)
}

// LockedError is returned for attempts made while a key is locked.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	mins := int(e.Remaining.Round(time.Minute) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	return fmt.Sprintf("too many failed attempts, try again in %d minute(s)", mins)
}

func IsLocked(err error) bool {
	_, ok := errors.Cause(err).(*LockedError)
	return ok
}

// Tracker counts consecutive failed logins per key and locks the key for Cooldown once MaxFailures is reached.
type Tracker struct {
	store       LockoutStore
	MaxFailures int
	Cooldown    time.Duration
	NowFunc     func() time.Time // mockable

	mu sync.Mutex
}

func NewTracker(store LockoutStore, maxFailures int, cooldown time.Duration) *Tracker {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Tracker{store: store, MaxFailures: maxFailures, Cooldown: cooldown, NowFunc: time.Now}
}

// Check returns the status of key, reopening it first when its lock has expired.
func (t *Tracker) Check(ctx context.Context, key string) (LockoutStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.check(ctx, key)
}

func (t *Tracker) check(ctx context.Context, key string) (LockoutStatus, error) {
	st, err := t.store.Load(ctx, key)
	if err != nil {
		return LockoutStatus{}, errors.Wrap(err, "loading lockout state")
	}
	if st.LockedUntil.IsZero() {
		return LockoutStatus{Failures: st.Failures}, nil
	}

	now := t.NowFunc()
	if !now.Before(st.LockedUntil) {
		if err := t.store.Clear(ctx, key); err != nil {
			return LockoutStatus{}, errors.Wrap(err, "clearing lockout state")
		}
		return LockoutStatus{}, nil
	}
	return LockoutStatus{
		Locked:      true,
		Failures:    st.Failures,
		Remaining:   st.LockedUntil.Sub(now),
		LockedUntil: st.LockedUntil,
	}, nil
}

// RecordFailure counts a failed attempt against key.
func (t *Tracker) RecordFailure(ctx context.Context, key string) (LockoutStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	status, err := t.check(ctx, key)
	if err != nil {
		return LockoutStatus{}, err
	}
	if status.Locked {
		return status, nil
	}

	st := LockoutState{Failures: status.Failures + 1}
	if st.Failures >= t.MaxFailures {
		st.LockedUntil = t.NowFunc().Add(t.Cooldown)
	}
	ttl := lockoutRetention
	if t.Cooldown > ttl {
		ttl = t.Cooldown
	}
	if err := t.store.Save(ctx, key, st, ttl); err != nil {
		return LockoutStatus{}, errors.Wrap(err, "saving lockout state")
	}

	if st.LockedUntil.IsZero() {
		return LockoutStatus{Failures: st.Failures}, nil
	}
	return LockoutStatus{Locked: true, Failures: st.Failures, Remaining: t.Cooldown, LockedUntil: st.LockedUntil}, nil
}

// Reset clears key after a successful login.
func (t *Tracker) Reset(ctx context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return errors.Wrap(t.store.Clear(ctx, key), "clearing lockout state")
}
