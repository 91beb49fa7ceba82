package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darulhuda/madrasa/core"
	"github.com/darulhuda/madrasa/core/attendance"
	"github.com/darulhuda/madrasa/core/auth"
)

type teacherApi struct {
	attendanceSvc *attendance.Service
	validate      *validator.Validate
}

func registerTeacherAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *server) {
	api := teacherApi{attendanceSvc: s.opts.AttendanceSvc, validate: s.opts.Validate}

	tg := g.Group("/teacher", jwt, roleMiddleware(auth.RoleTeacher))
	tg.POST("/attendance", api.takeAttendance)
	tg.GET("/attendance", api.querySheets)
}

func (api *teacherApi) takeAttendance(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data attendance.SubmitSheet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitSheet")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sheet, err := api.attendanceSvc.Submit(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "taking attendance")
	}
	return ctx.JSON(http.StatusOK, sheet)
}

func (api *teacherApi) querySheets(ctx echo.Context) error {
	sheets, err := api.attendanceSvc.Sheets(ctx.Request().Context(), ctx.QueryParam("class"), ctx.QueryParam("date"))
	if err != nil {
		return errors.Wrap(err, "querying sheets")
	}
	if sheets == nil {
		sheets = []attendance.Sheet{}
	}
	return ctx.JSON(http.StatusOK, sheets)
}

type studentApi struct {
	attendanceSvc *attendance.Service
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *server) {
	api := studentApi{attendanceSvc: s.opts.AttendanceSvc}

	sg := g.Group("/student", jwt, roleMiddleware(auth.RoleStudent, auth.RoleNuraniStudent))
	sg.GET("/attendance", api.myAttendance)
}

// myAttendance lists the entries of the signed-in student. Students known by class & roll
// only see their own; the query is used for the others (provider & demo accounts).
func (api *studentApi) myAttendance(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	class, roll := claims.Class, claims.Roll
	if class == "" || roll == 0 {
		class = core.CleanString(ctx.QueryParam("class"))
		roll, _ = strconv.Atoi(ctx.QueryParam("roll"))
	}
	var flds []core.FieldError
	if class == "" {
		flds = append(flds, core.FieldError{Field: "class", Error: "this field is required"})
	}
	if roll <= 0 {
		flds = append(flds, core.FieldError{Field: "roll", Error: "this field is required"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}

	entries, err := api.attendanceSvc.StudentEntries(ctx.Request().Context(), class, roll)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, entries)
}
