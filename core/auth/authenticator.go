package auth

import (
	"context"

	"github.com/pkg/errors"

	"github.com/darulhuda/madrasa/core"
)

var (
	ErrInvalidCredentials = errors.New("email or password incorrect")
	ErrUnavailable        = errors.New("could not reach the sign-in service, check your connection and try again")
)

// Result is a successful authentication.
type Result struct {
	Source   Source
	Identity Identity   // SourceProvider only
	Record   RoleRecord // fallback sources only
}

type step struct {
	src Source
	run func(ctx context.Context, identifier, secret string) (Result, bool, error)
}

// Authenticator tries the identity provider then each role collection, one after the other,
// and stops at the first match.
type Authenticator struct {
	provider IdentityProvider
	dir      Directory
	logger   core.Logger
	steps    []step
}

func NewAuthenticator(provider IdentityProvider, dir Directory, logger core.Logger) *Authenticator {
	a := &Authenticator{provider: provider, dir: dir, logger: logger}
	a.steps = []step{
		{src: SourceProvider, run: a.signIn},
		{src: SourceTeacher, run: a.matchIn(SourceTeacher, dir.TeachersByEmail)},
		{src: SourceNurani, run: a.matchIn(SourceNurani, dir.NuraniStudentsByMobile)},
		{src: SourceStudent, run: a.matchIn(SourceStudent, dir.StudentsByMobile)},
	}
	return a
}

// Authenticate returns ErrInvalidCredentials when no step matched
// and ErrUnavailable when every step failed to reach its store.
func (a *Authenticator) Authenticate(ctx context.Context, identifier, secret string) (Result, error) {
	var failed int
	for _, s := range a.steps {
		res, ok, err := s.run(ctx, identifier, secret)
		if err != nil {
			failed++
			a.logger.Warn("authentication step failed", errors.Wrapf(err, "step %s", s.src))
			continue
		}
		if ok {
			return res, nil
		}
	}
	if failed == len(a.steps) {
		return Result{}, ErrUnavailable
	}
	return Result{}, ErrInvalidCredentials
}

func (a *Authenticator) signIn(ctx context.Context, identifier, secret string) (Result, bool, error) {
	ident, err := a.provider.SignIn(ctx, NormalizeIdentifier(identifier), secret)
	if err != nil {
		if errors.Cause(err) == ErrRejected {
			return Result{}, false, nil
		}
		return Result{}, false, err
	}
	return Result{Source: SourceProvider, Identity: ident}, true, nil
}

// matchIn looks the raw identifier up with find; the same input doubles as a mobile number for students.
func (a *Authenticator) matchIn(
	src Source,
	find func(ctx context.Context, key string) ([]RoleRecord, error),
) func(context.Context, string, string) (Result, bool, error) {
	return func(ctx context.Context, identifier, secret string) (Result, bool, error) {
		if identifier == "" {
			return Result{}, false, nil
		}
		recs, err := find(ctx, identifier)
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				return Result{}, false, nil
			}
			return Result{}, false, err
		}
		for _, rec := range recs {
			if SecretMatches(rec.Secret, secret) {
				return Result{Source: src, Record: rec}, true, nil
			}
		}
		return Result{}, false, nil
	}
}
