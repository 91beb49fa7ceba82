package auth

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/pkg/errors"
	"github.com/pquerna/otp/totp"

	"github.com/darulhuda/madrasa/core"
)

const (
	DefaultShortCode   = "223344"
	DefaultGateTimeout = 20 * time.Minute
)

// gate unlock methods
const (
	MethodShortCode = "short_code"
	MethodTOTP      = "totp"
	MethodPassword  = "password"
)

var ErrWrongCode = errors.New("wrong code")

// UnlockStore keeps the unlocked flag of sessions, expiring after ttl unless touched.
type UnlockStore interface {
	SetUnlocked(ctx context.Context, sid string, ttl time.Duration) error
	// Touch extends an unlocked session and reports whether it still was unlocked.
	Touch(ctx context.Context, sid string, ttl time.Duration) (bool, error)
	IsUnlocked(ctx context.Context, sid string) (bool, error)
	ClearUnlocked(ctx context.Context, sid string) error
}

type GateOptions struct {
	DefaultCode string
	IdleTimeout time.Duration
	Recorder    Recorder
}

// Gate is the second factor admins pass after signing in: a 6 digit short code, a TOTP code or their password.
type Gate struct {
	store    UnlockStore
	dir      Directory
	provider IdentityProvider
	logger   core.Logger
	opts     GateOptions
}

func NewGate(store UnlockStore, dir Directory, provider IdentityProvider, logger core.Logger, opts GateOptions) *Gate {
	if opts.DefaultCode == "" {
		opts.DefaultCode = DefaultShortCode
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultGateTimeout
	}
	if opts.Recorder == nil {
		opts.Recorder = NopRecorder
	}
	return &Gate{store: store, dir: dir, provider: provider, logger: logger, opts: opts}
}

// Unlock unlocks session sid of admin when code is accepted and returns the method that accepted it.
// There is no retry limit.
func (g *Gate) Unlock(ctx context.Context, sid string, admin Principal, code string) (string, error) {
	method, err := g.verify(ctx, admin, code)
	if err != nil {
		outcome := OutcomeRejected
		if errors.Cause(err) != ErrWrongCode {
			outcome = OutcomeError
		}
		g.opts.Recorder.GateUnlock("", outcome)
		return "", err
	}
	if err := g.store.SetUnlocked(ctx, sid, g.opts.IdleTimeout); err != nil {
		return "", errors.Wrap(err, "saving unlocked flag")
	}
	g.opts.Recorder.GateUnlock(method, OutcomeSuccess)
	return method, nil
}

func (g *Gate) verify(ctx context.Context, admin Principal, code string) (string, error) {
	if code == "" {
		return "", ErrWrongCode
	}

	rec, err := g.dir.Admin(ctx, admin.ID)
	if err != nil && errors.Cause(err) != ErrNotFound {
		return "", errors.Wrap(err, "reading admin record")
	}

	shortCode := rec.ShortCode
	if shortCode == "" {
		shortCode = g.opts.DefaultCode
	}
	if subtle.ConstantTimeCompare([]byte(shortCode), []byte(code)) == 1 {
		return MethodShortCode, nil
	}

	if rec.TOTPSecret != "" && totp.Validate(code, rec.TOTPSecret) {
		return MethodTOTP, nil
	}

	email := admin.Email
	if email == "" {
		email = rec.Email
	}
	if email != "" && admin.Source != SourceDemo {
		if _, err := g.provider.SignIn(ctx, email, code); err == nil {
			return MethodPassword, nil
		} else if errors.Cause(err) != ErrRejected {
			g.logger.Warn("gate password re-entry", err)
		}
	}
	return "", ErrWrongCode
}

// Lock clears the unlocked flag of sid.
func (g *Gate) Lock(ctx context.Context, sid string) error {
	return errors.Wrap(g.store.ClearUnlocked(ctx, sid), "clearing unlocked flag")
}

// Pass reports whether sid is unlocked, sliding its idle timeout when it is.
func (g *Gate) Pass(ctx context.Context, sid string) (bool, error) {
	ok, err := g.store.Touch(ctx, sid, g.opts.IdleTimeout)
	return ok, errors.Wrap(err, "touching unlocked flag")
}

// IsUnlocked reports whether sid is unlocked without extending it.
func (g *Gate) IsUnlocked(ctx context.Context, sid string) (bool, error) {
	ok, err := g.store.IsUnlocked(ctx, sid)
	return ok, errors.Wrap(err, "reading unlocked flag")
}
