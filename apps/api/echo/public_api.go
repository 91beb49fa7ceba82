package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darulhuda/madrasa/core/admission"
	"github.com/darulhuda/madrasa/core/assistant"
	"github.com/darulhuda/madrasa/core/contact"
	"github.com/darulhuda/madrasa/core/notice"
)

// publicApi serves the pages of the site anyone can use.
type publicApi struct {
	noticeSvc    *notice.Service
	admissionSvc *admission.Service
	contactSvc   *contact.Service
	validate     *validator.Validate
}

func registerPublicAPI(g *echo.Group, contactLimit echo.MiddlewareFunc, s *server) {
	api := publicApi{
		noticeSvc:    s.opts.NoticeSvc,
		admissionSvc: s.opts.AdmissionSvc,
		contactSvc:   s.opts.ContactSvc,
		validate:     s.opts.Validate,
	}

	g.GET("/notices", api.queryNotices)
	g.POST("/admissions", api.apply)
	g.POST("/contacts", api.sendMessage, contactLimit)
	g.POST("/assistant", api.ask)
}

func (api *publicApi) queryNotices(ctx echo.Context) error {
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))
	notices, err := api.noticeSvc.List(ctx.Request().Context(), limit)
	if err != nil {
		return errors.Wrap(err, "querying notices")
	}
	if notices == nil {
		notices = []notice.Notice{}
	}
	return ctx.JSON(http.StatusOK, notices)
}

func (api *publicApi) apply(ctx echo.Context) error {
	var data admission.NewAdmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAdmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.admissionSvc.Apply(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "applying for admission")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *publicApi) sendMessage(ctx echo.Context) error {
	var data contact.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	msg, err := api.contactSvc.Submit(ctx.Request().Context(), ctx.RealIP(), data)
	if err != nil {
		return errors.Wrap(err, "submitting message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *publicApi) ask(ctx echo.Context) error {
	var data AssistantRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssistantRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, assistant.Answer(data.Message))
}

type AssistantRequest struct {
	Message string `json:"message" validate:"required,notblank,max=500"`
}
