package auth

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/pquerna/otp/totp"

	"github.com/darulhuda/madrasa/core"
)

var ErrInvalidShortCode = errors.New("short code must be 6 digits")

// AdminService manages administrator accounts from the command line.
type AdminService struct {
	provider IdentityProvider
	dir      Directory
	issuer   string
}

func NewAdminService(provider IdentityProvider, dir Directory, issuer string) *AdminService {
	return &AdminService{provider: provider, dir: dir, issuer: issuer}
}

// AddAdmin creates the identity of an administrator along with its admins & users records.
func (svc *AdminService) AddAdmin(ctx context.Context, email, name, password string) (AdminRecord, error) {
	email = core.CleanString(email, true /* lower */)
	ident, err := svc.provider.CreateAccount(ctx, email, password, core.CleanString(name))
	if err != nil {
		return AdminRecord{}, errors.Wrap(err, "creating account")
	}

	now := core.NowFunc().UTC()
	rec := AdminRecord{UID: ident.UID, Name: ident.Name, Email: ident.Email, CreatedAt: now}
	if err := svc.dir.SaveAdmin(ctx, rec); err != nil {
		return AdminRecord{}, errors.Wrap(err, "saving admin")
	}
	prof := Profile{UID: ident.UID, Name: ident.Name, Email: ident.Email, Role: RoleAdmin, CreatedAt: now}
	if err := svc.dir.SaveProfile(ctx, prof); err != nil {
		return AdminRecord{}, errors.Wrap(err, "saving profile")
	}
	return rec, nil
}

// SetShortCode changes the gate code of the admin identified by uid or email.
func (svc *AdminService) SetShortCode(ctx context.Context, uidOrEmail, code string) error {
	if len(code) != 6 || !core.IsAllDigits(code) {
		return ErrInvalidShortCode
	}
	rec, err := svc.find(ctx, uidOrEmail)
	if err != nil {
		return err
	}
	rec.ShortCode = code
	return errors.Wrap(svc.dir.SaveAdmin(ctx, rec), "saving admin")
}

// EnrollTOTP generates a new TOTP secret for the admin and returns its otpauth:// URL.
func (svc *AdminService) EnrollTOTP(ctx context.Context, uidOrEmail string) (string, error) {
	rec, err := svc.find(ctx, uidOrEmail)
	if err != nil {
		return "", err
	}
	key, err := totp.Generate(totp.GenerateOpts{Issuer: svc.issuer, AccountName: rec.Email})
	if err != nil {
		return "", errors.Wrap(err, "generating TOTP secret")
	}
	rec.TOTPSecret = key.Secret()
	if err := svc.dir.SaveAdmin(ctx, rec); err != nil {
		return "", errors.Wrap(err, "saving admin")
	}
	return key.URL(), nil
}

// ResetPassword sets the identity provider secret of email.
func (svc *AdminService) ResetPassword(ctx context.Context, email, password string) error {
	return errors.Wrap(
		svc.provider.SetSecret(ctx, core.CleanString(email, true /* lower */), password),
		"setting secret",
	)
}

func (svc *AdminService) find(ctx context.Context, uidOrEmail string) (AdminRecord, error) {
	uidOrEmail = core.CleanString(uidOrEmail)
	if strings.Contains(uidOrEmail, "@") {
		rec, err := svc.dir.AdminByEmail(ctx, strings.ToLower(uidOrEmail))
		return rec, errors.Wrap(err, "finding admin by email")
	}
	rec, err := svc.dir.Admin(ctx, uidOrEmail)
	return rec, errors.Wrap(err, "finding admin")
}
