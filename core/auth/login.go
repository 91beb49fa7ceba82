package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/darulhuda/madrasa/core"
)

type LoginOptions struct {
	DemoMode bool
	Recorder Recorder
	Mailer   core.EmailService // optional; alerts account owners of a lockout
}

// LoginService runs the whole sign-in flow: lockout check, authentication, lockout bookkeeping & role resolution.
type LoginService struct {
	authenticator *Authenticator
	resolver      *Resolver
	tracker       *Tracker
	logger        core.Logger
	opts          LoginOptions
}

func NewLoginService(
	authenticator *Authenticator,
	resolver *Resolver,
	tracker *Tracker,
	logger core.Logger,
	opts LoginOptions,
) *LoginService {
	if opts.Recorder == nil {
		opts.Recorder = NopRecorder
	}
	return &LoginService{
		authenticator: authenticator,
		resolver:      resolver,
		tracker:       tracker,
		logger:        logger,
		opts:          opts,
	}
}

// Login returns a *LockedError without touching any credential store while the account is locked,
// ErrInvalidCredentials or ErrUnavailable when authentication fails.
// demoRole is only honoured in demo mode.
func (svc *LoginService) Login(ctx context.Context, identifier, secret, demoRole string) (Principal, error) {
	key := LockoutKey(identifier)

	status, err := svc.tracker.Check(ctx, key)
	if err != nil {
		return Principal{}, errors.Wrap(err, "checking lockout")
	}
	if status.Locked {
		svc.opts.Recorder.LoginAttempt("", OutcomeLocked)
		return Principal{}, &LockedError{Remaining: status.Remaining}
	}

	if svc.opts.DemoMode && demoRole != "" {
		if !IsValidRole(demoRole) {
			return Principal{}, core.NewFieldValidationError("demo_role", errors.New("unknown role"))
		}
		svc.opts.Recorder.LoginAttempt(SourceDemo, OutcomeSuccess)
		return Principal{
			ID:     "demo-" + uuid.NewString(),
			Name:   "Demo " + strings.ReplaceAll(demoRole, "_", " "),
			Role:   demoRole,
			Source: SourceDemo,
		}, nil
	}

	res, err := svc.authenticator.Authenticate(ctx, identifier, secret)
	if err != nil {
		svc.opts.Recorder.LoginAttempt("", OutcomeFailure)
		return Principal{}, svc.fail(ctx, key, err)
	}

	if err := svc.tracker.Reset(ctx, key); err != nil {
		svc.logger.Error("resetting lockout", err)
	}
	svc.opts.Recorder.LoginAttempt(res.Source, OutcomeSuccess)
	return svc.resolver.Resolve(ctx, res), nil
}

// Status returns the lockout status of the account identified by identifier.
func (svc *LoginService) Status(ctx context.Context, identifier string) (LockoutStatus, error) {
	return svc.tracker.Check(ctx, LockoutKey(identifier))
}

// Unlock clears the lockout of the account identified by identifier.
func (svc *LoginService) Unlock(ctx context.Context, identifier string) error {
	return svc.tracker.Reset(ctx, LockoutKey(identifier))
}

func (svc *LoginService) fail(ctx context.Context, key string, authErr error) error {
	status, err := svc.tracker.RecordFailure(ctx, key)
	if err != nil {
		svc.logger.Error("recording failed login", err)
		return authErr
	}
	if status.Locked {
		svc.opts.Recorder.Lockout()
		svc.alert(key, status)
	}
	return authErr
}

func (svc *LoginService) alert(key string, status LockoutStatus) {
	if svc.opts.Mailer == nil || strings.HasSuffix(key, "@"+StudentEmailDomain) {
		return
	}
	addr, err := mail.ParseAddress(key)
	if err != nil {
		return
	}
	svc.opts.Mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{*addr},
		Subject:      "Sign-in blocked",
		TemplateName: "lockout_alert",
		TemplateData: map[string]interface{}{
			"Failures": status.Failures,
			"Until":    status.LockedUntil.UTC().Format(time.RFC1123),
		},
	})
}
