package auth

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrRejected       = errors.New("credentials rejected")
	ErrIdentityExists = errors.New("an account with this email already exists")
	ErrNotFound       = errors.New("record not found")
)

type (
	// IdentityProvider owns the canonical email+secret credentials.
	IdentityProvider interface {
		// SignIn returns ErrRejected when the credentials do not match an account.
		SignIn(ctx context.Context, email, secret string) (Identity, error)
		// CreateAccount returns ErrIdentityExists when email is taken.
		CreateAccount(ctx context.Context, email, secret, name string) (Identity, error)
		SetSecret(ctx context.Context, email, secret string) error
	}

	// Directory reads the role collections & user profiles.
	// Lookups of a single document return ErrNotFound when it does not exist.
	Directory interface {
		TeachersByEmail(ctx context.Context, email string) ([]RoleRecord, error)
		NuraniStudentsByMobile(ctx context.Context, mobile string) ([]RoleRecord, error)
		StudentsByMobile(ctx context.Context, mobile string) ([]RoleRecord, error)
		TeacherExists(ctx context.Context, uid string) (bool, error)

		Profile(ctx context.Context, uid string) (Profile, error)
		SaveProfile(ctx context.Context, p Profile) error

		Admin(ctx context.Context, uid string) (AdminRecord, error)
		AdminByEmail(ctx context.Context, email string) (AdminRecord, error)
		SaveAdmin(ctx context.Context, a AdminRecord) error
	}

	// Recorder collects auth metrics.
	Recorder interface {
		LoginAttempt(src Source, outcome string)
		Lockout()
		GateUnlock(method, outcome string)
	}
)

// login outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeLocked   = "locked"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

type nopRecorder struct{}

func (nopRecorder) LoginAttempt(Source, string) {}
func (nopRecorder) Lockout()                    {}
func (nopRecorder) GateUnlock(string, string)   {}

// NopRecorder discards metrics.
var NopRecorder Recorder = nopRecorder{}
