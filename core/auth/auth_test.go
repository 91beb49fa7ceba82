package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/darulhuda/madrasa/core/auth"
	"github.com/darulhuda/madrasa/core/student"
	"github.com/darulhuda/madrasa/storage/cache"
	"github.com/darulhuda/madrasa/storage/database/inmem"
	"github.com/darulhuda/madrasa/testutil"
)

var errNetwork = errors.New("dial tcp: i/o timeout")

// fixture is an in-memory directory of users signing in from every source.
type fixture struct {
	db       *inmemdb.DB
	provider auth.IdentityProvider
	dir      auth.Directory
	students student.Repository
	clock    *testutil.Clock
	kv       cache.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := inmemdb.NewDB()
	clock := testutil.NewClock(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	return &fixture{
		db:       db,
		provider: inmemdb.NewIdentityProvider(db),
		dir:      inmemdb.NewDirectory(db),
		students: inmemdb.NewStudentRepository(db),
		clock:    clock,
		kv:       cache.NewMemoryStore(clock.Now),
	}
}

func (f *fixture) loginService(opts auth.LoginOptions) (*auth.LoginService, *auth.Tracker) {
	logger := testutil.Logger()
	tracker := auth.NewTracker(cache.NewLockoutStore(f.kv), 0, 0)
	tracker.NowFunc = f.clock.Now
	svc := auth.NewLoginService(
		auth.NewAuthenticator(f.provider, f.dir, logger),
		auth.NewResolver(f.dir, logger),
		tracker,
		logger,
		opts,
	)
	return svc, tracker
}

// brokenProvider cannot reach the identity provider.
type brokenProvider struct {
	calls int
}

func (p *brokenProvider) SignIn(context.Context, string, string) (auth.Identity, error) {
	p.calls++
	return auth.Identity{}, errNetwork
}

func (p *brokenProvider) CreateAccount(context.Context, string, string, string) (auth.Identity, error) {
	return auth.Identity{}, errNetwork
}

func (p *brokenProvider) SetSecret(context.Context, string, string) error { return errNetwork }

// brokenDirectory cannot reach the database.
type brokenDirectory struct{}

func (brokenDirectory) TeachersByEmail(context.Context, string) ([]auth.RoleRecord, error) {
	return nil, errNetwork
}

func (brokenDirectory) NuraniStudentsByMobile(context.Context, string) ([]auth.RoleRecord, error) {
	return nil, errNetwork
}

func (brokenDirectory) StudentsByMobile(context.Context, string) ([]auth.RoleRecord, error) {
	return nil, errNetwork
}

func (brokenDirectory) TeacherExists(context.Context, string) (bool, error) { return false, errNetwork }

func (brokenDirectory) Profile(context.Context, string) (auth.Profile, error) {
	return auth.Profile{}, errNetwork
}

func (brokenDirectory) SaveProfile(context.Context, auth.Profile) error { return errNetwork }

func (brokenDirectory) Admin(context.Context, string) (auth.AdminRecord, error) {
	return auth.AdminRecord{}, errNetwork
}

func (brokenDirectory) AdminByEmail(context.Context, string) (auth.AdminRecord, error) {
	return auth.AdminRecord{}, errNetwork
}

func (brokenDirectory) SaveAdmin(context.Context, auth.AdminRecord) error { return errNetwork }

// recorder counts the recorded metrics.
type recorder struct {
	attempts map[string]int
	lockouts int
	unlocks  map[string]int
}

func newRecorder() *recorder {
	return &recorder{attempts: map[string]int{}, unlocks: map[string]int{}}
}

func (r *recorder) LoginAttempt(src auth.Source, outcome string) { r.attempts[string(src)+"/"+outcome]++ }
func (r *recorder) Lockout()                                     { r.lockouts++ }
func (r *recorder) GateUnlock(method, outcome string)            { r.unlocks[method+"/"+outcome]++ }
