package admission

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/darulhuda/madrasa/core"
	"github.com/darulhuda/madrasa/core/student"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"

	// StatusApproving is held while the applicant is being enrolled.
	StatusApproving = "approving"
)

var (
	ErrNotFound       = errors.New("admission not found")
	ErrAlreadyDecided = errors.New("admission has already been decided")
	ErrUnknownStatus  = errors.New("unknown status")
)

type (
	Admission struct {
		ID           string    `json:"id"`
		StudentName  string    `json:"student_name"`
		GuardianName string    `json:"guardian_name"`
		Mobile       string    `json:"mobile"`
		Email        string    `json:"email,omitempty"`
		Class        string    `json:"class"`
		Department   string    `json:"department"`
		Status       string    `json:"status"`
		StudentID    string    `json:"student_id,omitempty"`
		Roll         int       `json:"roll,omitempty"`
		CreatedAt    time.Time `json:"created_at"`           // UTC
		DecidedAt    time.Time `json:"decided_at,omitempty"` // UTC
	}

	NewAdmission struct {
		StudentName  string `json:"student_name" validate:"required,notblank,max=80"`
		GuardianName string `json:"guardian_name" validate:"required,notblank,max=80"`
		Mobile       string `json:"mobile" validate:"required,bdmobile"`
		Email        string `json:"email" validate:"omitempty,email"`
		Class        string `json:"class" validate:"required,notblank,max=30"`
		Department   string `json:"department" validate:"required,oneof=general nurani"`
	}

	// Approval is the outcome of an approved admission.
	Approval struct {
		Admission Admission       `json:"admission"`
		Student   student.Student `json:"student"`
		Password  string          `json:"password"`
	}

	Repository interface {
		CreateAdmission(ctx context.Context, a Admission) (Admission, error)
		GetAdmission(ctx context.Context, id string) (Admission, error)
		// QueryAdmissions returns the admissions with status (all when empty), newest first.
		QueryAdmissions(ctx context.Context, status string) ([]Admission, error)
		// SwapAdmission saves a if the stored admission still has status from, ErrAlreadyDecided otherwise.
		SwapAdmission(ctx context.Context, from string, a Admission) error
	}

	Service struct {
		repo     Repository
		students *student.Service
		mailer   core.EmailService
	}
)

func (na NewAdmission) Validate(validate *validator.Validate) error {
	return validate.Struct(na)
}

func NewService(repo Repository, students *student.Service, mailer core.EmailService) *Service {
	return &Service{repo: repo, students: students, mailer: mailer}
}

func (svc *Service) Apply(ctx context.Context, na NewAdmission) (Admission, error) {
	a := Admission{
		StudentName:  core.CleanString(na.StudentName),
		GuardianName: core.CleanString(na.GuardianName),
		Mobile:       core.CleanString(na.Mobile),
		Email:        core.CleanString(na.Email, true /* lower */),
		Class:        core.CleanString(na.Class),
		Department:   na.Department,
		Status:       StatusPending,
		CreatedAt:    core.NowFunc().UTC(),
	}
	a, err := svc.repo.CreateAdmission(ctx, a)
	return a, errors.Wrap(err, "creating admission")
}

func (svc *Service) List(ctx context.Context, status string) ([]Admission, error) {
	switch status {
	case "", StatusPending, StatusApproved, StatusRejected:
	default:
		return nil, core.NewFieldValidationError("status", ErrUnknownStatus)
	}
	admissions, err := svc.repo.QueryAdmissions(ctx, status)
	return admissions, errors.Wrap(err, "querying admissions")
}

// Approve enrolls the applicant in the students (or nurani_students) collection and emails the guardian
// the login credentials when an email address was given.
// The admission is claimed before enrolling, so concurrent approvals enroll the applicant at most once.
func (svc *Service) Approve(ctx context.Context, id string) (Approval, error) {
	pending, err := svc.pending(ctx, id)
	if err != nil {
		return Approval{}, err
	}
	a := pending
	a.Status = StatusApproving
	if err := svc.swap(ctx, StatusPending, a); err != nil {
		return Approval{}, errors.Wrap(err, "claiming admission")
	}

	s, pwd, err := svc.students.Enroll(ctx, student.Enrollment{
		Kind:         a.Department,
		Name:         a.StudentName,
		GuardianName: a.GuardianName,
		Class:        a.Class,
		Mobile:       a.Mobile,
		Email:        a.Email,
	})
	if err != nil {
		return Approval{}, svc.rollback(ctx, pending, nil, errors.Wrap(err, "enrolling student"))
	}

	a.Status = StatusApproved
	a.StudentID = s.ID
	a.Roll = s.Roll
	a.DecidedAt = core.NowFunc().UTC()
	if err := svc.swap(ctx, StatusApproving, a); err != nil {
		return Approval{}, svc.rollback(ctx, pending, &s, errors.Wrap(err, "approving admission"))
	}

	if a.Email != "" {
		msg := &core.EmailMessage{
			To:           []mail.Address{{Name: a.GuardianName, Address: a.Email}},
			Subject:      "Admission approved",
			TemplateName: "admission_approved",
			TemplateData: map[string]interface{}{
				"StudentName": s.Name,
				"Class":       s.Class,
				"Roll":        s.Roll,
				"LoginMobile": s.LoginMobile,
				"Password":    pwd,
			},
		}
		if err := msg.Attach(admissionSlip(a, s), SlipFilename, "text/plain; charset=utf-8"); err != nil {
			return Approval{}, errors.Wrap(err, "attaching admission slip")
		}
		svc.mailer.SendMessages(msg)
	}
	return Approval{Admission: a, Student: s, Password: pwd}, nil
}

// rollback withdraws the enrolled student, if any, and puts the claimed admission back to pending.
func (svc *Service) rollback(ctx context.Context, pending Admission, enrolled *student.Student, cause error) error {
	if enrolled != nil {
		if err := svc.students.Withdraw(ctx, enrolled.Kind, enrolled.ID); err != nil {
			return errors.Wrapf(cause, "withdrawing student %s: %v", enrolled.ID, err)
		}
	}
	if err := svc.repo.SwapAdmission(ctx, StatusApproving, pending); err != nil {
		return errors.Wrapf(cause, "releasing admission: %v", err)
	}
	return cause
}

func (svc *Service) Reject(ctx context.Context, id string) (Admission, error) {
	a, err := svc.pending(ctx, id)
	if err != nil {
		return Admission{}, err
	}
	a.Status = StatusRejected
	a.DecidedAt = core.NowFunc().UTC()
	if err := svc.swap(ctx, StatusPending, a); err != nil {
		return Admission{}, errors.Wrap(err, "rejecting admission")
	}
	return a, nil
}

func (svc *Service) pending(ctx context.Context, id string) (Admission, error) {
	a, err := svc.repo.GetAdmission(ctx, id)
	if err != nil {
		return Admission{}, err
	}
	if a.Status != StatusPending {
		return Admission{}, core.NewValidationError(ErrAlreadyDecided)
	}
	return a, nil
}

func (svc *Service) swap(ctx context.Context, from string, a Admission) error {
	err := svc.repo.SwapAdmission(ctx, from, a)
	if errors.Cause(err) == ErrAlreadyDecided {
		return core.NewValidationError(ErrAlreadyDecided)
	}
	return err
}
