package dig_container

import (
	"context"
	"log"
	"os"
	"sync"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/dig"

	echoapi "github.com/darulhuda/madrasa/apps/api/echo"
	"github.com/darulhuda/madrasa/assets"
	"github.com/darulhuda/madrasa/core"
	"github.com/darulhuda/madrasa/core/admission"
	"github.com/darulhuda/madrasa/core/attendance"
	"github.com/darulhuda/madrasa/core/auth"
	"github.com/darulhuda/madrasa/core/contact"
	"github.com/darulhuda/madrasa/core/notice"
	"github.com/darulhuda/madrasa/core/student"
	emailsvc "github.com/darulhuda/madrasa/services/email"
	logsvc "github.com/darulhuda/madrasa/services/logger"
	metricsvc "github.com/darulhuda/madrasa/services/metrics"
	"github.com/darulhuda/madrasa/services/scheduler"
	"github.com/darulhuda/madrasa/storage/cache"
	"github.com/darulhuda/madrasa/storage/database"
	inmemdb "github.com/darulhuda/madrasa/storage/database/inmem"
	mongorepos "github.com/darulhuda/madrasa/storage/database/mongodb"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	JobsLoggerParam struct {
		dig.In
		Logger core.Logger `name:"jobsLogger"`
	}

	// Repositories are backed by MongoDB when a URI is configured, by memory otherwise.
	Repositories struct {
		dig.Out

		Provider    auth.IdentityProvider
		Directory   auth.Directory
		Students    student.Repository
		Notices     notice.Repository
		Admissions  admission.Repository
		Contacts    contact.Repository
		Attendances attendance.Repository
		MongoDB     *mongo.Database // nil in memory
	}

	ServerParams struct {
		dig.In

		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Shutdown   ShutdownChan
		Metrics    *metricsvc.Metrics

		LoginSvc      *auth.LoginService
		Registrar     *auth.Registrar
		Gate          *auth.Gate
		NoticeSvc     *notice.Service
		AdmissionSvc  *admission.Service
		ContactSvc    *contact.Service
		StudentSvc    *student.Service
		AttendanceSvc *attendance.Service
	}

	// ShutdownChan receives the signals stopping the app.
	ShutdownChan chan os.Signal
)

// Cleanup runs the registered release functions, last registered first.
type Cleanup struct {
	mu  sync.Mutex
	fns []func(context.Context) error
}

func (c *Cleanup) Add(fn func(context.Context) error) {
	c.mu.Lock()
	c.fns = append(c.fns, fn)
	c.mu.Unlock()
}

func (c *Cleanup) Run(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var first error
	for i := len(c.fns) - 1; i >= 0; i-- {
		if err := c.fns[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	c.fns = nil
	return first
}

func newConfig() *core.Config {
	conf := core.NewConfig()
	if conf.Auth.StudentEmailDomain != "" {
		auth.StudentEmailDomain = conf.Auth.StudentEmailDomain
	}
	logsvc.InitRollbar(conf)
	return conf
}

func newLogger(base *logrus.Logger) core.Logger {
	return logsvc.NewRollbarLogger(base, "api")
}

func newDBLogger(base *logrus.Logger) core.Logger {
	return logsvc.NewRollbarLogger(base, "db")
}

func newJobsLogger(base *logrus.Logger) core.Logger {
	return logsvc.NewRollbarLogger(base, "jobs")
}

func newRepositories(conf *core.Config, cleanup *Cleanup, loggerParam DBLoggerParam) Repositories {
	logger := loggerParam.Logger
	if conf.Mongo.URI == "" {
		logger.Warn("no mongo URI configured, data is kept in memory")
		db := inmemdb.NewDB()
		return Repositories{
			Provider:    inmemdb.NewIdentityProvider(db),
			Directory:   inmemdb.NewDirectory(db),
			Students:    inmemdb.NewStudentRepository(db),
			Notices:     inmemdb.NewNoticeRepository(db),
			Admissions:  inmemdb.NewAdmissionRepository(db),
			Contacts:    inmemdb.NewContactRepository(db),
			Attendances: inmemdb.NewAttendanceRepository(db),
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), conf.Mongo.ConnectTimeout*3)
	defer cancel()
	client, db, err := database.Open(ctx, conf)
	if err != nil {
		logger.Fatal("setting up database", err)
	}
	if err := database.EnsureIndexes(ctx, db); err != nil {
		logger.Error("ensuring indexes", err)
	}
	cleanup.Add(client.Disconnect)

	return Repositories{
		Provider:    mongorepos.NewIdentityProvider(db),
		Directory:   mongorepos.NewDirectory(db),
		Students:    mongorepos.NewStudentRepository(db),
		Notices:     mongorepos.NewNoticeRepository(db),
		Admissions:  mongorepos.NewAdmissionRepository(db),
		Contacts:    mongorepos.NewContactRepository(db),
		Attendances: mongorepos.NewAttendanceRepository(db),
		MongoDB:     db,
	}
}

func newStore(conf *core.Config, cleanup *Cleanup, loggerParam DBLoggerParam) cache.Store {
	if conf.Redis.Addr == "" {
		return cache.NewMemoryStore()
	}
	client, err := cache.OpenRedis(context.Background(), conf)
	if err != nil {
		loggerParam.Logger.Fatal("connecting to redis", err)
	}
	cleanup.Add(func(context.Context) error { return client.Close() })
	return cache.NewRedisStore(client, "madrasa:")
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	auth.InitValidators(validate, translator)
	return validate, translator
}

func newEmailTemplates(conf *core.Config) *core.EmailTemplates {
	return core.NewEmailTemplates(assets.EmailTemplates(), conf)
}

func newEmailService(conf *core.Config, tmpl *core.EmailTemplates, logger core.Logger) core.EmailService {
	if conf.Mail.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, tmpl, logger)
	}
	return emailsvc.NewSendgridService(conf, tmpl, logger)
}

func newTracker(conf *core.Config, store cache.Store) *auth.Tracker {
	return auth.NewTracker(cache.NewLockoutStore(store), conf.Auth.MaxFailedAttempts, conf.Auth.LockoutCooldown)
}

func newLoginService(
	conf *core.Config,
	authenticator *auth.Authenticator,
	resolver *auth.Resolver,
	tracker *auth.Tracker,
	logger core.Logger,
	metrics *metricsvc.Metrics,
	mailer core.EmailService,
) *auth.LoginService {
	return auth.NewLoginService(authenticator, resolver, tracker, logger, auth.LoginOptions{
		DemoMode: conf.Auth.DemoMode,
		Recorder: metrics,
		Mailer:   mailer,
	})
}

func newGate(
	conf *core.Config,
	store cache.Store,
	dir auth.Directory,
	provider auth.IdentityProvider,
	logger core.Logger,
	metrics *metricsvc.Metrics,
) *auth.Gate {
	return auth.NewGate(cache.NewUnlockStore(store), dir, provider, logger, auth.GateOptions{
		DefaultCode: conf.Auth.DefaultAdminCode,
		IdleTimeout: conf.Auth.GateIdleTimeout,
		Recorder:    metrics,
	})
}

func newAdminService(conf *core.Config, provider auth.IdentityProvider, dir auth.Directory) *auth.AdminService {
	return auth.NewAdminService(provider, dir, conf.AppName)
}

func newContactService(conf *core.Config, repo contact.Repository, store cache.Store) *contact.Service {
	return contact.NewService(repo, cache.NewThrottle(store), conf.Auth.ContactThrottle)
}

func newScheduler(conf *core.Config, attendSvc *attendance.Service, loggerParam JobsLoggerParam) (*scheduler.Scheduler, error) {
	return scheduler.New(conf, attendSvc, loggerParam.Logger)
}

func newShutdownChan() ShutdownChan {
	return make(ShutdownChan, 1)
}

func newServer(p ServerParams) echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		SignalShutdown: func() {
			select {
			case p.Shutdown <- syscall.SIGTERM:
			default: // already shutting down
			}
		},
		Metrics:       p.Metrics.Handler(),
		LoginSvc:      p.LoginSvc,
		Registrar:     p.Registrar,
		Gate:          p.Gate,
		NoticeSvc:     p.NoticeSvc,
		AdmissionSvc:  p.AdmissionSvc,
		ContactSvc:    p.ContactSvc,
		StudentSvc:    p.StudentSvc,
		AttendanceSvc: p.AttendanceSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(func() *Cleanup { return new(Cleanup) }))
	must(c.Provide(newShutdownChan))
	must(c.Provide(logsvc.NewLogrus))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newJobsLogger, dig.Name("jobsLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newStore))
	must(c.Provide(newValidator))
	must(c.Provide(newEmailTemplates))
	must(c.Provide(newEmailService))
	must(c.Provide(metricsvc.New))

	must(c.Provide(auth.NewAuthenticator))
	must(c.Provide(auth.NewResolver))
	must(c.Provide(newTracker))
	must(c.Provide(newLoginService))
	must(c.Provide(newGate))
	must(c.Provide(auth.NewRegistrar))
	must(c.Provide(newAdminService))

	must(c.Provide(notice.NewService))
	must(c.Provide(student.NewService))
	must(c.Provide(admission.NewService))
	must(c.Provide(newContactService))
	must(c.Provide(attendance.NewService))

	must(c.Provide(newServer))
	must(c.Provide(newScheduler))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
