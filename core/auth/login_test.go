package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darulhuda/madrasa/assets"
	"github.com/darulhuda/madrasa/core"
	"github.com/darulhuda/madrasa/core/auth"
	"github.com/darulhuda/madrasa/core/student"
	"github.com/darulhuda/madrasa/services/email"
	"github.com/darulhuda/madrasa/storage/cache"
	"github.com/darulhuda/madrasa/testutil"
)

func TestLoginService_Login(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conf := testutil.Config()
	mailer := emailsvc.NewConsoleMock(conf, core.NewEmailTemplates(assets.EmailTemplates(), conf), testutil.Logger())
	rec := newRecorder()
	svc, _ := f.loginService(auth.LoginOptions{Recorder: rec, Mailer: mailer})

	testutil.CreateTeacher(t, f.db, "Karim", "karim@madrasa.org", "teacherPass")
	testutil.CreateStudent(t, f.students, student.KindGeneral, "Ali", "Class 4", 10, "01700000003", "studentPass")

	p, err := svc.Login(ctx, "karim@madrasa.org", "teacherPass", "")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleTeacher, p.Role)

	t.Run("lockout", func(t *testing.T) {
		for i := 0; i < auth.DefaultMaxFailures; i++ {
			_, err := svc.Login(ctx, "karim@madrasa.org", "nope", "")
			assert.Equal(t, auth.ErrInvalidCredentials, err)
		}
		assert.Equal(t, 1, rec.lockouts)
		require.Len(t, mailer.SentMessages(), 1)
		alert := mailer.SentMessages()[0]
		assert.Equal(t, "karim@madrasa.org", alert.To[0].Address)
		// the expiry comes from the tracker clock, not the wall clock
		until := f.clock.Now().Add(auth.DefaultCooldown).UTC().Format(time.RFC1123)
		assert.Contains(t, alert.TextContent, until)

		// the right password is refused while locked
		_, err := svc.Login(ctx, "Karim@Madrasa.org", "teacherPass", "")
		require.True(t, auth.IsLocked(err))
		assert.Equal(t, time.Hour, err.(*auth.LockedError).Remaining)

		status, err := svc.Status(ctx, "karim@madrasa.org")
		require.NoError(t, err)
		assert.True(t, status.Locked)

		require.NoError(t, svc.Unlock(ctx, "karim@madrasa.org"))
		_, err = svc.Login(ctx, "karim@madrasa.org", "teacherPass", "")
		assert.NoError(t, err)
	})

	t.Run("no alert for mobile accounts", func(t *testing.T) {
		mailer.Reset()
		for i := 0; i < auth.DefaultMaxFailures; i++ {
			_, _ = svc.Login(ctx, "01700000003", "nope", "")
		}
		_, err := svc.Login(ctx, "01700000003", "studentPass", "")
		assert.True(t, auth.IsLocked(err))
		assert.Empty(t, mailer.SentMessages())
	})

	t.Run("success resets the counter", func(t *testing.T) {
		for i := 0; i < auth.DefaultMaxFailures-1; i++ {
			_, _ = svc.Login(ctx, "karim@madrasa.org", "nope", "")
		}
		_, err := svc.Login(ctx, "karim@madrasa.org", "teacherPass", "")
		require.NoError(t, err)
		status, err := svc.Status(ctx, "karim@madrasa.org")
		require.NoError(t, err)
		assert.Equal(t, 0, status.Failures)
	})

	t.Run("mobile teacher without provider account", func(t *testing.T) {
		testutil.CreateTeacher(t, f.db, "Rahim", "01712345678", "rahimPass")
		p, err := svc.Login(ctx, "01712345678", "rahimPass", "")
		require.NoError(t, err)
		assert.Equal(t, auth.RoleTeacher, p.Role)
		assert.Equal(t, auth.SourceTeacher, p.Source)

		status, err := svc.Status(ctx, "01712345678")
		require.NoError(t, err)
		assert.Equal(t, 0, status.Failures)
		assert.False(t, status.Locked)
	})

	t.Run("demo role ignored outside demo mode", func(t *testing.T) {
		_, err := svc.Login(ctx, "someone", "", auth.RoleAdmin)
		assert.Equal(t, auth.ErrInvalidCredentials, err)
	})
}

func TestLoginService_unavailable(t *testing.T) {
	f := newFixture(t)
	logger := testutil.Logger()
	tracker := auth.NewTracker(cache.NewLockoutStore(f.kv), 2, time.Minute)
	tracker.NowFunc = f.clock.Now
	provider := &brokenProvider{}
	svc := auth.NewLoginService(
		auth.NewAuthenticator(provider, brokenDirectory{}, logger),
		auth.NewResolver(brokenDirectory{}, logger),
		tracker, logger, auth.LoginOptions{},
	)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Login(ctx, "karim@madrasa.org", "teacherPass", "")
		assert.Equal(t, auth.ErrUnavailable, err)
	}
	// transport errors count as failures
	_, err := svc.Login(ctx, "karim@madrasa.org", "teacherPass", "")
	assert.True(t, auth.IsLocked(err))
	assert.Equal(t, 2, provider.calls, "no store is reached while locked")
}

func TestLoginService_demo(t *testing.T) {
	f := newFixture(t)
	rec := newRecorder()
	svc, _ := f.loginService(auth.LoginOptions{DemoMode: true, Recorder: rec})
	ctx := context.Background()

	p, err := svc.Login(ctx, "visitor", "", auth.RoleNuraniStudent)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleNuraniStudent, p.Role)
	assert.Equal(t, auth.SourceDemo, p.Source)
	assert.Equal(t, "Demo nurani student", p.Name)
	assert.Equal(t, 1, rec.attempts["demo/success"])

	_, err = svc.Login(ctx, "visitor", "", "superuser")
	assert.IsType(t, &core.ValidationError{}, err)
}
