package auth

import (
	"context"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/darulhuda/madrasa/core"
)

var (
	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to your name or email"
)

// NewAccount is the payload of a self registration.
type NewAccount struct {
	Name       string `json:"name" validate:"required,notblank,max=80"`
	Identifier string `json:"identifier" validate:"required,notblank"`
	Password   string `json:"password" validate:"required,min=6,max=128"`
}

func (na NewAccount) Validate(validate *validator.Validate) error {
	return validate.Struct(na)
}

// InitValidators registers the validators of this package.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(newAccountStructValidation, NewAccount{})
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// newAccountStructValidation rejects passwords too similar to the other attributes.
func newAccountStructValidation(sl validator.StructLevel) {
	na := sl.Current().Interface().(NewAccount)
	if na.Password == "" {
		return
	}
	getRatio := func(pass, attr string) float64 {
		if attr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(strings.ToLower(pass), ""), strings.Split(strings.ToLower(attr), "")).QuickRatio()
	}
	if getRatio(na.Password, na.Name) >= pwdMaxSim || getRatio(na.Password, na.Identifier) >= pwdMaxSim {
		sl.ReportError(na.Password, "password", "Password", pwdAttrSimTag, "")
	}
}

// Registrar creates self registered (student) accounts.
type Registrar struct {
	provider IdentityProvider
	dir      Directory
}

func NewRegistrar(provider IdentityProvider, dir Directory) *Registrar {
	return &Registrar{provider: provider, dir: dir}
}

func (r *Registrar) Register(ctx context.Context, na NewAccount) (Principal, error) {
	email := strings.ToLower(NormalizeIdentifier(na.Identifier))
	ident, err := r.provider.CreateAccount(ctx, email, na.Password, core.CleanString(na.Name))
	if err != nil {
		if errors.Cause(err) == ErrIdentityExists {
			return Principal{}, core.NewFieldValidationError("identifier", ErrIdentityExists)
		}
		return Principal{}, errors.Wrap(err, "creating account")
	}

	prof := Profile{
		UID:       ident.UID,
		Name:      ident.Name,
		Email:     ident.Email,
		Role:      RoleStudent,
		CreatedAt: core.NowFunc().UTC(),
	}
	if err := r.dir.SaveProfile(ctx, prof); err != nil {
		return Principal{}, errors.Wrap(err, "saving profile")
	}
	return Principal{ID: prof.UID, Name: prof.Name, Email: prof.Email, Role: prof.Role, Source: SourceProvider}, nil
}
