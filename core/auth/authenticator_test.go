package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darulhuda/madrasa/core/auth"
	"github.com/darulhuda/madrasa/core/student"
	"github.com/darulhuda/madrasa/testutil"
)

func TestAuthenticator_Authenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ident := testutil.CreateIdentity(t, f.provider, "ustadh@madrasa.org", "providerPass", "Ustadh")
	testutil.CreateIdentity(t, f.provider, "01700000001@student.com", "mobilePass", "Hamza")
	// same email & secret as the provider account: the provider wins
	testutil.CreateTeacher(t, f.db, "Ustadh", "ustadh@madrasa.org", "providerPass")
	teacher := testutil.CreateTeacher(t, f.db, "Karim", "karim@madrasa.org", "teacherPass")
	// no provider account for this mobile, only a teachers document keyed by it
	mobileTeacher := testutil.CreateTeacher(t, f.db, "Rahim", "01712345678", "teacherPass")
	hash, err := auth.HashSecret("hashedPass")
	require.NoError(t, err)
	// same mobile in both student collections: nurani is tried first
	nurani := testutil.CreateStudent(t, f.students, student.KindNurani, "Bilal", "Nurani 1", 3, "01700000002", "shared")
	testutil.CreateStudent(t, f.students, student.KindGeneral, "Umar", "Class 4", 9, "01700000002", "shared")
	general := testutil.CreateStudent(t, f.students, student.KindGeneral, "Ali", "Class 4", 10, "01700000003", hash)

	a := auth.NewAuthenticator(f.provider, f.dir, testutil.Logger())

	tests := []struct {
		name       string
		identifier string
		secret     string
		wantSrc    auth.Source
		wantID     string
		wantErr    error
	}{
		{"provider", "ustadh@madrasa.org", "providerPass", auth.SourceProvider, ident.UID, nil},
		{"provider by mobile", "01700000001", "mobilePass", auth.SourceProvider, "", nil},
		{"teacher", "karim@madrasa.org", "teacherPass", auth.SourceTeacher, teacher.ID, nil},
		{"teacher by mobile", "01712345678", "teacherPass", auth.SourceTeacher, mobileTeacher.ID, nil},
		{"nurani before general", "01700000002", "shared", auth.SourceNurani, nurani.ID, nil},
		{"hashed student password", "01700000003", "hashedPass", auth.SourceStudent, general.ID, nil},
		{"wrong secret", "karim@madrasa.org", "nope", "", "", auth.ErrInvalidCredentials},
		{"unknown", "01799999999", "whatever", "", "", auth.ErrInvalidCredentials},
		{"empty", "", "", "", "", auth.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := a.Authenticate(ctx, tt.identifier, tt.secret)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSrc, res.Source)
			if tt.wantID == "" {
				return
			}
			if res.Source == auth.SourceProvider {
				assert.Equal(t, tt.wantID, res.Identity.UID)
			} else {
				assert.Equal(t, tt.wantID, res.Record.ID)
			}
		})
	}
}

func TestAuthenticator_unreachableStores(t *testing.T) {
	ctx := context.Background()

	t.Run("everything down", func(t *testing.T) {
		a := auth.NewAuthenticator(&brokenProvider{}, brokenDirectory{}, testutil.Logger())
		_, err := a.Authenticate(ctx, "01700000002", "shared")
		assert.Equal(t, auth.ErrUnavailable, err)
	})

	t.Run("provider down", func(t *testing.T) {
		f := newFixture(t)
		teacher := testutil.CreateTeacher(t, f.db, "Karim", "karim@madrasa.org", "teacherPass")
		provider := &brokenProvider{}
		a := auth.NewAuthenticator(provider, f.dir, testutil.Logger())

		res, err := a.Authenticate(ctx, "karim@madrasa.org", "teacherPass")
		require.NoError(t, err)
		assert.Equal(t, teacher.ID, res.Record.ID)
		assert.Equal(t, 1, provider.calls)

		_, err = a.Authenticate(ctx, "karim@madrasa.org", "nope")
		assert.Equal(t, auth.ErrInvalidCredentials, err)
	})
}

func TestResolver_Resolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := auth.NewResolver(f.dir, testutil.Logger())

	both := testutil.CreateIdentity(t, f.provider, "both@madrasa.org", "pwd123", "")
	require.NoError(t, f.dir.SaveAdmin(ctx, auth.AdminRecord{UID: both.UID, Email: both.Email}))
	require.NoError(t, f.dir.SaveProfile(ctx, auth.Profile{UID: both.UID, Name: "Profile Name", Role: auth.RoleTeacher}))

	admin := testutil.CreateIdentity(t, f.provider, "admin@madrasa.org", "pwd123", "Admin")
	require.NoError(t, f.dir.SaveAdmin(ctx, auth.AdminRecord{UID: admin.UID, Email: admin.Email}))
	require.NoError(t, f.dir.SaveProfile(ctx, auth.Profile{UID: admin.UID, Name: "Admin"}))

	teacher := testutil.CreateIdentity(t, f.provider, "teacher@madrasa.org", "pwd123", "Teacher")
	f.db.AddTeacher(auth.RoleRecord{ID: teacher.UID, Name: "Teacher", Email: teacher.Email})

	plain := testutil.CreateIdentity(t, f.provider, "plain@madrasa.org", "pwd123", "Plain")

	blank := testutil.CreateIdentity(t, f.provider, "blank@madrasa.org", "pwd123", "Blank")
	require.NoError(t, f.dir.SaveProfile(ctx, auth.Profile{UID: blank.UID, Name: "Blank", Role: ""}))

	tests := []struct {
		name     string
		res      auth.Result
		wantRole string
		wantName string
	}{
		{"profile role wins", auth.Result{Source: auth.SourceProvider, Identity: both}, auth.RoleTeacher, "Profile Name"},
		{"admin", auth.Result{Source: auth.SourceProvider, Identity: admin}, auth.RoleAdmin, "Admin"},
		{"teacher", auth.Result{Source: auth.SourceProvider, Identity: teacher}, auth.RoleTeacher, "Teacher"},
		{"default", auth.Result{Source: auth.SourceProvider, Identity: plain}, auth.RoleStudent, "Plain"},
		{"empty profile role", auth.Result{Source: auth.SourceProvider, Identity: blank}, auth.RoleStudent, "Blank"},
		{"teacher fallback", auth.Result{Source: auth.SourceTeacher, Record: auth.RoleRecord{ID: "t1", Name: "T"}}, auth.RoleTeacher, "T"},
		{"nurani fallback", auth.Result{Source: auth.SourceNurani, Record: auth.RoleRecord{ID: "n1", Name: "N"}}, auth.RoleNuraniStudent, "N"},
		{"student fallback", auth.Result{Source: auth.SourceStudent, Record: auth.RoleRecord{ID: "s1", Name: "S"}}, auth.RoleStudent, "S"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := r.Resolve(ctx, tt.res)
			assert.Equal(t, tt.wantRole, p.Role)
			assert.Equal(t, tt.wantName, p.Name)
			assert.Equal(t, tt.res.Source, p.Source)
		})
	}

	t.Run("directory down", func(t *testing.T) {
		p := auth.NewResolver(brokenDirectory{}, testutil.Logger()).Resolve(ctx, auth.Result{Source: auth.SourceProvider, Identity: admin})
		assert.Equal(t, auth.RoleStudent, p.Role)
		assert.Equal(t, admin.UID, p.ID)
	})

	t.Run("class & roll", func(t *testing.T) {
		p := r.Resolve(ctx, auth.Result{Source: auth.SourceStudent, Record: auth.RoleRecord{ID: "s1", Class: "Class 4", Roll: 9}})
		assert.Equal(t, "Class 4", p.Class)
		assert.Equal(t, 9, p.Roll)
	})
}
