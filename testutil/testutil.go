// Package testutil holds the fixtures shared by the tests of the app.
package testutil

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rollbar/rollbar-go"
	"github.com/sirupsen/logrus"

	"github.com/darulhuda/madrasa/core"
	"github.com/darulhuda/madrasa/core/auth"
	"github.com/darulhuda/madrasa/core/student"
	"github.com/darulhuda/madrasa/services/logger"
	"github.com/darulhuda/madrasa/storage/database/inmem"
)

// Config returns the configuration used by tests.
func Config() *core.Config {
	conf := core.NewConfig()
	conf.TestMode = true
	conf.Debug = false
	conf.SecretKey = "test-secret"
	conf.Mongo.URI = ""
	conf.Redis.Addr = ""
	conf.Auth.DemoMode = false
	return conf
}

// Logger returns a logger writing nowhere.
func Logger() core.Logger {
	rollbar.SetEnabled(false)
	base := logrus.New()
	base.SetOutput(io.Discard)
	return logsvc.NewRollbarLogger(base, "test")
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// CreateIdentity creates a provider account.
func CreateIdentity(t *testing.T, provider auth.IdentityProvider, email, pwd, name string) auth.Identity {
	t.Helper()
	id, err := provider.CreateAccount(context.Background(), email, pwd, name)
	if err != nil {
		t.Fatalf("CreateIdentity() failed: %v", err)
	}
	return id
}

// CreateTeacher inserts a teachers document.
func CreateTeacher(t *testing.T, db *inmemdb.DB, name, email, secret string) auth.RoleRecord {
	t.Helper()
	return db.AddTeacher(auth.RoleRecord{Name: name, Email: email, Secret: secret})
}

// CreateStudent inserts a student of kind with the given (plaintext or hashed) password.
func CreateStudent(t *testing.T, repo student.Repository, kind, name, class string, roll int, mobile, pwd string) student.Student {
	t.Helper()
	s, err := repo.CreateStudent(context.Background(), student.Student{
		Kind:        kind,
		Name:        name,
		Class:       class,
		Roll:        roll,
		LoginMobile: mobile,
		Password:    pwd,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}
