package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darulhuda/madrasa/core"
	"github.com/darulhuda/madrasa/core/auth"
)

type authApi struct {
	loginSvc  *auth.LoginService
	registrar *auth.Registrar
	tokens    *tokenIssuer
	validate  *validator.Validate
}

func registerAuthAPI(g *echo.Group, jwt, limit echo.MiddlewareFunc, s *server) {
	api := authApi{
		loginSvc:  s.opts.LoginSvc,
		registrar: s.opts.Registrar,
		tokens:    s.tokens,
		validate:  s.opts.Validate,
	}

	ag := g.Group("/auth")
	ag.POST("/login", api.login, limit)
	ag.POST("/register", api.register, limit)
	ag.GET("/lockout", api.lockoutStatus)
	ag.POST("/token-refresh", api.refreshToken, jwt)
	ag.GET("/me", api.me, jwt)
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.loginSvc.Login(ctx.Request().Context(), data.Identifier, data.Password, data.DemoRole)
	if err != nil {
		return errors.Wrap(err, "logging in")
	}
	return api.respondWithToken(ctx, http.StatusOK, p)
}

func (api *authApi) register(ctx echo.Context) error {
	var data auth.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.registrar.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering")
	}
	return api.respondWithToken(ctx, http.StatusCreated, p)
}

func (api *authApi) respondWithToken(ctx echo.Context, code int, p auth.Principal) error {
	token, err := api.tokens.generate(api.tokens.claims(p, ""))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(code, LoginResponse{Token: token, User: p, Dashboard: auth.Dashboard(p.Role)})
}

func (api *authApi) lockoutStatus(ctx echo.Context) error {
	identifier := core.CleanString(ctx.QueryParam("identifier"))
	if identifier == "" {
		return core.NewFieldValidationError("identifier", errors.New("this field is required"))
	}
	status, err := api.loginSvc.Status(ctx.Request().Context(), identifier)
	if err != nil {
		return errors.Wrap(err, "checking lockout")
	}
	return ctx.JSON(http.StatusOK, LockoutResponse{
		Locked:           status.Locked,
		Failures:         status.Failures,
		RemainingSeconds: status.RemainingSeconds(),
	})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	token, err := api.tokens.refreshToken(claims)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *authApi) me(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	p := claims.Principal()
	return ctx.JSON(http.StatusOK, MeResponse{User: p, Dashboard: auth.Dashboard(p.Role), SessionID: claims.SessionID})
}

type (
	LoginRequest struct {
		Identifier string `json:"identifier" validate:"required,notblank"`
		Password   string `json:"password" validate:"required_without=DemoRole"`
		DemoRole   string `json:"demo_role"`
	}

	LoginResponse struct {
		Token     string         `json:"token"`
		User      auth.Principal `json:"user"`
		Dashboard string         `json:"dashboard"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	MeResponse struct {
		User      auth.Principal `json:"user"`
		Dashboard string         `json:"dashboard"`
		SessionID string         `json:"sid"`
	}

	LockoutResponse struct {
		Locked           bool `json:"locked"`
		Failures         int  `json:"failures"`
		RemainingSeconds int  `json:"remaining_seconds"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Identifier = core.CleanString(lr.Identifier)
	lr.DemoRole = core.CleanString(lr.DemoRole, true /* lower */)
	return validate.Struct(lr)
}
