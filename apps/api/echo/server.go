package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/darulhuda/madrasa/core"
	"github.com/darulhuda/madrasa/core/admission"
	"github.com/darulhuda/madrasa/core/attendance"
	"github.com/darulhuda/madrasa/core/auth"
	"github.com/darulhuda/madrasa/core/contact"
	"github.com/darulhuda/madrasa/core/notice"
	"github.com/darulhuda/madrasa/core/student"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
		SignalShutdown func()
		Metrics        http.Handler // served on /metrics when set

		LoginSvc      *auth.LoginService
		Registrar     *auth.Registrar
		Gate          *auth.Gate
		NoticeSvc     *notice.Service
		AdmissionSvc  *admission.Service
		ContactSvc    *contact.Service
		StudentSvc    *student.Service
		AttendanceSvc *attendance.Service
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts   *Options
		app    *echo.Echo
		tokens *tokenIssuer
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:   opts,
		app:    echo.New(),
		tokens: newTokenIssuer(opts.Conf),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	if s.opts.Metrics != nil {
		s.app.GET("/metrics", echo.WrapHandler(s.opts.Metrics))
	}

	api := s.app.Group("/api")
	jwt := s.tokens.middleware()
	loginLimit := newIPRateLimiter(conf.Server.LoginRatePerMin).middleware()
	contactLimit := newIPRateLimiter(conf.Server.ContactRatePerMin).middleware()

	registerAuthAPI(api, jwt, loginLimit, s)
	registerPublicAPI(api, contactLimit, s)
	registerAdminAPI(api, jwt, s)
	registerTeacherAPI(api, jwt, s)
	registerStudentAPI(api, jwt, s)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Conf.Server.Addr)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Darul Huda Madrasa API!")
}
