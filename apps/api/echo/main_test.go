package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/darulhuda/madrasa/assets"
	"github.com/darulhuda/madrasa/core"
	"github.com/darulhuda/madrasa/core/admission"
	"github.com/darulhuda/madrasa/core/attendance"
	"github.com/darulhuda/madrasa/core/auth"
	"github.com/darulhuda/madrasa/core/contact"
	"github.com/darulhuda/madrasa/core/notice"
	"github.com/darulhuda/madrasa/core/student"
	"github.com/darulhuda/madrasa/services/email"
	"github.com/darulhuda/madrasa/services/metrics"
	"github.com/darulhuda/madrasa/storage/cache"
	"github.com/darulhuda/madrasa/storage/database/inmem"
	"github.com/darulhuda/madrasa/testutil"
)

var errMissingTokenBody = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app      *server
	conf     *core.Config
	db       *inmemdb.DB
	provider auth.IdentityProvider
	dir      auth.Directory
	mailer   *emailsvc.ConsoleMock
	clock    *testutil.Clock
	tracker  *auth.Tracker
	adminSvc *auth.AdminService
	students student.Repository
}

func setup(t *testing.T, confFns ...func(*core.Config)) *testEnv {
	t.Helper()
	conf := testutil.Config()
	for _, fn := range confFns {
		fn(conf)
	}
	logger := testutil.Logger()
	validate, translator := core.NewValidator()
	auth.InitValidators(validate, translator)

	clock := testutil.NewClock(time.Now())
	kv := cache.NewMemoryStore(clock.Now)

	db := inmemdb.NewDB()
	provider := inmemdb.NewIdentityProvider(db)
	dir := inmemdb.NewDirectory(db)
	studentRepo := inmemdb.NewStudentRepository(db)

	mailer := emailsvc.NewConsoleMock(conf, core.NewEmailTemplates(assets.EmailTemplates(), conf), logger)
	recorder := metricsvc.New()

	tracker := auth.NewTracker(cache.NewLockoutStore(kv), conf.Auth.MaxFailedAttempts, conf.Auth.LockoutCooldown)
	tracker.NowFunc = clock.Now
	loginSvc := auth.NewLoginService(
		auth.NewAuthenticator(provider, dir, logger),
		auth.NewResolver(dir, logger),
		tracker,
		logger,
		auth.LoginOptions{DemoMode: conf.Auth.DemoMode, Recorder: recorder, Mailer: mailer},
	)
	gate := auth.NewGate(cache.NewUnlockStore(kv), dir, provider, logger, auth.GateOptions{
		DefaultCode: conf.Auth.DefaultAdminCode,
		IdleTimeout: conf.Auth.GateIdleTimeout,
		Recorder:    recorder,
	})
	studentSvc := student.NewService(studentRepo)

	app := NewServer(&Options{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
		Metrics:        recorder.Handler(),
		LoginSvc:       loginSvc,
		Registrar:      auth.NewRegistrar(provider, dir),
		Gate:           gate,
		NoticeSvc:      notice.NewService(inmemdb.NewNoticeRepository(db)),
		AdmissionSvc:   admission.NewService(inmemdb.NewAdmissionRepository(db), studentSvc, mailer),
		ContactSvc:     contact.NewService(inmemdb.NewContactRepository(db), cache.NewThrottle(kv), conf.Auth.ContactThrottle),
		StudentSvc:     studentSvc,
		AttendanceSvc:  attendance.NewService(inmemdb.NewAttendanceRepository(db)),
	}).(*server)

	return &testEnv{
		app:      app,
		conf:     conf,
		db:       db,
		provider: provider,
		dir:      dir,
		mailer:   mailer,
		clock:    clock,
		tracker:  tracker,
		adminSvc: auth.NewAdminService(provider, dir, conf.AppName),
		students: studentRepo,
	}
}

// serve runs req against the app.
func (env *testEnv) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	env.app.ServeHTTP(rec, req)
}

// getToken returns a token for a new session of p along with the session id.
func (env *testEnv) getToken(t *testing.T, p auth.Principal) (string, string) {
	t.Helper()
	claims := env.app.tokens.claims(p, "")
	token, err := env.app.tokens.generate(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token, claims.SessionID
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, env *testEnv, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			env.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}
}
