package student

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darulhuda/madrasa/core"
	"github.com/darulhuda/madrasa/core/auth"
)

const (
	KindGeneral = "general" // students collection
	KindNurani  = "nurani"  // nurani_students collection

	passwordLen = 6

	// attempts at taking the next roll number of a class before giving up
	maxEnrollAttempts = 5
)

var (
	ErrNotFound    = errors.New("student not found")
	ErrUnknownKind = errors.New("unknown student kind")
	ErrRollTaken   = errors.New("roll number already taken")
)

type (
	Student struct {
		ID           string    `json:"id"`
		Kind         string    `json:"kind"`
		Name         string    `json:"name"`
		GuardianName string    `json:"guardian_name"`
		Class        string    `json:"class"`
		Roll         int       `json:"roll"`
		LoginMobile  string    `json:"login_mobile"`
		Email        string    `json:"email,omitempty"`
		Password     string    `json:"-"`
		CreatedAt    time.Time `json:"created_at"` // UTC
	}

	Enrollment struct {
		Kind         string
		Name         string
		GuardianName string
		Class        string
		Mobile       string
		Email        string
	}

	ResetPassword struct {
		Password string `json:"password" validate:"omitempty,min=6,max=64"`
	}

	Repository interface {
		// CreateStudent returns ErrRollTaken when the class already has a student with that roll.
		CreateStudent(ctx context.Context, s Student) (Student, error)
		DeleteStudent(ctx context.Context, kind, id string) error
		GetStudent(ctx context.Context, kind, id string) (Student, error)
		QueryStudents(ctx context.Context, kind, class string) ([]Student, error)
		// MaxRoll returns the highest roll number in class, 0 when empty.
		MaxRoll(ctx context.Context, kind, class string) (int, error)
		SetStudentPassword(ctx context.Context, kind, id, password string) error
	}

	Service struct {
		repo Repository
	}
)

func ValidKind(kind string) bool {
	return kind == KindGeneral || kind == KindNurani
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Enroll creates the role record of a new student with the next roll number of its class
// and returns it along with its generated password.
func (svc *Service) Enroll(ctx context.Context, e Enrollment) (Student, string, error) {
	if !ValidKind(e.Kind) {
		return Student{}, "", ErrUnknownKind
	}
	pwd, hash, err := newPassword()
	if err != nil {
		return Student{}, "", err
	}

	s := Student{
		Kind:         e.Kind,
		Name:         core.CleanString(e.Name),
		GuardianName: core.CleanString(e.GuardianName),
		Class:        core.CleanString(e.Class),
		LoginMobile:  core.CleanString(e.Mobile),
		Email:        core.CleanString(e.Email, true /* lower */),
		Password:     hash,
		CreatedAt:    core.NowFunc().UTC(),
	}
	for attempt := 1; ; attempt++ {
		roll, err := svc.repo.MaxRoll(ctx, s.Kind, s.Class)
		if err != nil {
			return Student{}, "", errors.Wrap(err, "finding max roll")
		}
		s.Roll = roll + 1

		created, err := svc.repo.CreateStudent(ctx, s)
		switch {
		case err == nil:
			return created, pwd, nil
		case errors.Cause(err) == ErrRollTaken && attempt < maxEnrollAttempts:
			continue // enrolled concurrently in the same class
		default:
			return Student{}, "", errors.Wrap(err, "creating student")
		}
	}
}

// Withdraw deletes the role record of a student.
func (svc *Service) Withdraw(ctx context.Context, kind, id string) error {
	if !ValidKind(kind) {
		return ErrUnknownKind
	}
	return errors.Wrap(svc.repo.DeleteStudent(ctx, kind, id), "deleting student")
}

func (svc *Service) Get(ctx context.Context, kind, id string) (Student, error) {
	if !ValidKind(kind) {
		return Student{}, ErrUnknownKind
	}
	return svc.repo.GetStudent(ctx, kind, id)
}

func (svc *Service) List(ctx context.Context, kind, class string) ([]Student, error) {
	if !ValidKind(kind) {
		return nil, ErrUnknownKind
	}
	students, err := svc.repo.QueryStudents(ctx, kind, core.CleanString(class))
	return students, errors.Wrap(err, "querying students")
}

// ResetPassword overwrites the password the student signs in with through the fallback lookup
// and returns it. A password is generated when none is given.
// The identity provider credential of the student, if any, is left as is.
func (svc *Service) ResetPassword(ctx context.Context, kind, id string, rp ResetPassword) (string, error) {
	if !ValidKind(kind) {
		return "", ErrUnknownKind
	}
	if _, err := svc.repo.GetStudent(ctx, kind, id); err != nil {
		return "", err
	}

	pwd := rp.Password
	var hash string
	var err error
	if pwd == "" {
		pwd, hash, err = newPassword()
	} else {
		hash, err = auth.HashSecret(pwd)
	}
	if err != nil {
		return "", errors.Wrap(err, "hashing password")
	}
	if err := svc.repo.SetStudentPassword(ctx, kind, id, hash); err != nil {
		return "", errors.Wrap(err, "setting password")
	}
	return pwd, nil
}

func newPassword() (pwd, hash string, err error) {
	if pwd, err = core.RandomDigits(passwordLen); err != nil {
		return "", "", errors.Wrap(err, "generating password")
	}
	if hash, err = auth.HashSecret(pwd); err != nil {
		return "", "", errors.Wrap(err, "hashing password")
	}
	return pwd, hash, nil
}
