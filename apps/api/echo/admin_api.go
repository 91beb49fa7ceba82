package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darulhuda/madrasa/core"
	"github.com/darulhuda/madrasa/core/admission"
	"github.com/darulhuda/madrasa/core/attendance"
	"github.com/darulhuda/madrasa/core/auth"
	"github.com/darulhuda/madrasa/core/contact"
	"github.com/darulhuda/madrasa/core/notice"
	"github.com/darulhuda/madrasa/core/student"
)

type adminApi struct {
	gate          *auth.Gate
	noticeSvc     *notice.Service
	admissionSvc  *admission.Service
	contactSvc    *contact.Service
	studentSvc    *student.Service
	attendanceSvc *attendance.Service
	validate      *validator.Validate
}

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *server) {
	api := adminApi{
		gate:          s.opts.Gate,
		noticeSvc:     s.opts.NoticeSvc,
		admissionSvc:  s.opts.AdmissionSvc,
		contactSvc:    s.opts.ContactSvc,
		studentSvc:    s.opts.StudentSvc,
		attendanceSvc: s.opts.AttendanceSvc,
		validate:      s.opts.Validate,
	}

	ag := g.Group("/admin", jwt, roleMiddleware(auth.RoleAdmin))
	ag.POST("/unlock", api.unlockGate)
	ag.POST("/lock", api.lockGate)
	ag.GET("/gate", api.gateStatus)

	// every other admin endpoint requires an unlocked session
	gg := ag.Group("", gateMiddleware(api.gate))
	gg.POST("/notices", api.createNotice)
	gg.DELETE("/notices/:id", api.deleteNotice)
	gg.GET("/admissions", api.queryAdmissions)
	gg.POST("/admissions/:id/approve", api.approveAdmission)
	gg.POST("/admissions/:id/reject", api.rejectAdmission)
	gg.GET("/contacts", api.queryMessages)
	gg.GET("/students/:kind", api.queryStudents)
	gg.POST("/students/:kind/:id/reset-password", api.resetStudentPassword)
	gg.GET("/attendance", api.querySheets)
	gg.POST("/attendance/:id/unlock", api.unlockSheet)
	gg.GET("/attendance/summaries", api.querySummaries)
}

// Gate

func (api *adminApi) unlockGate(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data UnlockRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UnlockRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	method, err := api.gate.Unlock(ctx.Request().Context(), claims.SessionID, claims.Principal(), data.Code)
	if err != nil {
		return errors.Wrap(err, "unlocking admin gate")
	}
	return ctx.JSON(http.StatusOK, GateResponse{Unlocked: true, Method: method})
}

func (api *adminApi) lockGate(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if err := api.gate.Lock(ctx.Request().Context(), claims.SessionID); err != nil {
		return errors.Wrap(err, "locking admin gate")
	}
	return ctx.JSON(http.StatusOK, GateResponse{Unlocked: false})
}

func (api *adminApi) gateStatus(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	ok, err := api.gate.IsUnlocked(ctx.Request().Context(), claims.SessionID)
	if err != nil {
		return errors.Wrap(err, "reading admin gate")
	}
	return ctx.JSON(http.StatusOK, GateResponse{Unlocked: ok})
}

// Notices

func (api *adminApi) createNotice(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data notice.NewNotice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	n, err := api.noticeSvc.Create(ctx.Request().Context(), data, claims.Name)
	if err != nil {
		return errors.Wrap(err, "creating notice")
	}
	return ctx.JSON(http.StatusCreated, n)
}

func (api *adminApi) deleteNotice(ctx echo.Context) error {
	if err := api.noticeSvc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting notice")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Admissions

func (api *adminApi) queryAdmissions(ctx echo.Context) error {
	admissions, err := api.admissionSvc.List(ctx.Request().Context(), core.CleanString(ctx.QueryParam("status"), true))
	if err != nil {
		return errors.Wrap(err, "querying admissions")
	}
	if admissions == nil {
		admissions = []admission.Admission{}
	}
	return ctx.JSON(http.StatusOK, admissions)
}

func (api *adminApi) approveAdmission(ctx echo.Context) error {
	approval, err := api.admissionSvc.Approve(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "approving admission")
	}
	return ctx.JSON(http.StatusOK, approval)
}

func (api *adminApi) rejectAdmission(ctx echo.Context) error {
	a, err := api.admissionSvc.Reject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "rejecting admission")
	}
	return ctx.JSON(http.StatusOK, a)
}

// Contacts

func (api *adminApi) queryMessages(ctx echo.Context) error {
	msgs, err := api.contactSvc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying messages")
	}
	if msgs == nil {
		msgs = []contact.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}

// Students

func (api *adminApi) queryStudents(ctx echo.Context) error {
	students, err := api.studentSvc.List(ctx.Request().Context(), ctx.Param("kind"), ctx.QueryParam("class"))
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *adminApi) resetStudentPassword(ctx echo.Context) error {
	var data student.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	pwd, err := api.studentSvc.ResetPassword(ctx.Request().Context(), ctx.Param("kind"), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "resetting student password")
	}
	return ctx.JSON(http.StatusOK, PasswordResponse{Password: pwd})
}

// Attendance

func (api *adminApi) querySheets(ctx echo.Context) error {
	sheets, err := api.attendanceSvc.Sheets(ctx.Request().Context(), ctx.QueryParam("class"), ctx.QueryParam("date"))
	if err != nil {
		return errors.Wrap(err, "querying sheets")
	}
	if sheets == nil {
		sheets = []attendance.Sheet{}
	}
	return ctx.JSON(http.StatusOK, sheets)
}

func (api *adminApi) unlockSheet(ctx echo.Context) error {
	sheet, err := api.attendanceSvc.Unlock(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "unlocking sheet")
	}
	return ctx.JSON(http.StatusOK, sheet)
}

func (api *adminApi) querySummaries(ctx echo.Context) error {
	sums, err := api.attendanceSvc.Summaries(ctx.Request().Context(), ctx.QueryParam("date"))
	if err != nil {
		return errors.Wrap(err, "querying summaries")
	}
	if sums == nil {
		sums = []attendance.Summary{}
	}
	return ctx.JSON(http.StatusOK, sums)
}

type (
	UnlockRequest struct {
		Code string `json:"code" validate:"required,notblank,max=128"`
	}

	GateResponse struct {
		Unlocked bool   `json:"unlocked"`
		Method   string `json:"method,omitempty"`
	}

	PasswordResponse struct {
		Password string `json:"password"`
	}
)
