package echoapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darulhuda/madrasa/core/admission"
	"github.com/darulhuda/madrasa/core/auth"
	"github.com/darulhuda/madrasa/core/notice"
	"github.com/darulhuda/madrasa/core/student"
	"github.com/darulhuda/madrasa/testutil"
)

// adminSession returns the token of a new session of a new admin, unlocked when unlock is set.
func adminSession(t *testing.T, env *testEnv, unlock bool) (string, auth.AdminRecord) {
	t.Helper()
	rec, err := env.adminSvc.AddAdmin(context.Background(), "admin@madrasa.org", "Head Admin", "adminPass#1")
	require.NoError(t, err)
	token, _ := env.getToken(t, auth.Principal{
		ID: rec.UID, Name: rec.Name, Email: rec.Email, Role: auth.RoleAdmin, Source: auth.SourceProvider,
	})
	if unlock {
		unlockGate(t, env, token, auth.DefaultShortCode, http.StatusOK)
	}
	return token, rec
}

func unlockGate(t *testing.T, env *testEnv, token, code string, wantCode int) GateResponse {
	t.Helper()
	req, rec := newAuthRequest(http.MethodPost, "/api/admin/unlock", token, marchallObj(t, UnlockRequest{Code: code}))
	env.serve(req, rec)
	require.Equal(t, wantCode, rec.Code, rec.Body.String())
	var res GateResponse
	if wantCode == http.StatusOK {
		unmarshal(t, rec, &res)
	}
	return res
}

func gatedStatus(env *testEnv, token string) int {
	req, rec := newAuthRequest(http.MethodGet, "/api/admin/contacts", token)
	env.serve(req, rec)
	return rec.Code
}

func Test_adminApi_gate(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	token, admin := adminSession(t, env, false)
	teacherToken, _ := env.getToken(t, auth.Principal{ID: "t1", Role: auth.RoleTeacher, Source: auth.SourceTeacher})

	runHTTPTests(t, env, []httpTest{
		{name: "auth required", path: "/api/admin/gate", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingTokenBody)},
		{
			name: "admin required", method: http.MethodPost, path: "/api/admin/unlock", token: teacherToken,
			body: marchallObj(t, UnlockRequest{Code: "223344"}), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "locked session", path: "/api/admin/contacts", token: token, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "admin session locked"}),
		},
		{name: "gate status", path: "/api/admin/gate", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, GateResponse{})},
		{
			name: "wrong code", method: http.MethodPost, path: "/api/admin/unlock", token: token,
			body: marchallObj(t, UnlockRequest{Code: "000000"}), wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "wrong code"}),
		},
		{
			name: "code required", method: http.MethodPost, path: "/api/admin/unlock", token: token,
			body: marchallObj(t, UnlockRequest{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"code": "this field is required"}),
		},
	})

	// default short code
	assert.Equal(t, GateResponse{Unlocked: true, Method: auth.MethodShortCode}, unlockGate(t, env, token, "223344", http.StatusOK))
	assert.Equal(t, http.StatusOK, gatedStatus(env, token))

	// another session of the same admin stays locked
	otherToken, _ := env.getToken(t, auth.Principal{ID: admin.UID, Email: admin.Email, Role: auth.RoleAdmin, Source: auth.SourceProvider})
	assert.Equal(t, http.StatusForbidden, gatedStatus(env, otherToken))

	// the idle timeout slides on each gated request
	env.clock.Advance(19 * time.Minute)
	assert.Equal(t, http.StatusOK, gatedStatus(env, token))
	env.clock.Advance(19 * time.Minute)
	assert.Equal(t, http.StatusOK, gatedStatus(env, token))
	env.clock.Advance(21 * time.Minute)
	assert.Equal(t, http.StatusForbidden, gatedStatus(env, token))

	// password re-entry
	assert.Equal(t, GateResponse{Unlocked: true, Method: auth.MethodPassword}, unlockGate(t, env, token, "adminPass#1", http.StatusOK))

	// tab teardown
	req, rec := newAuthRequest(http.MethodPost, "/api/admin/lock", token)
	env.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusForbidden, gatedStatus(env, token))

	// a custom short code replaces the default one
	require.NoError(t, env.adminSvc.SetShortCode(ctx, admin.Email, "135790"))
	unlockGate(t, env, token, "223344", http.StatusUnauthorized)
	assert.Equal(t, GateResponse{Unlocked: true, Method: auth.MethodShortCode}, unlockGate(t, env, token, "135790", http.StatusOK))

	// TOTP
	_, err := env.adminSvc.EnrollTOTP(ctx, admin.UID)
	require.NoError(t, err)
	rec2, err := env.dir.Admin(ctx, admin.UID)
	require.NoError(t, err)
	code, err := totp.GenerateCode(rec2.TOTPSecret, time.Now())
	require.NoError(t, err)
	if code != "135790" {
		assert.Equal(t, GateResponse{Unlocked: true, Method: auth.MethodTOTP}, unlockGate(t, env, otherToken, code, http.StatusOK))
	}
}

func Test_adminApi_notices(t *testing.T) {
	env := setup(t)
	token, _ := adminSession(t, env, true)

	create := func(title string, pinned bool) notice.Notice {
		req, rec := newAuthRequest(http.MethodPost, "/api/admin/notices", token,
			marchallObj(t, notice.NewNotice{Title: title, Body: "Details of " + title, Pinned: pinned}))
		env.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var n notice.Notice
		unmarshal(t, rec, &n)
		return n
	}

	n1 := create("Eid holidays", false)
	env.clock.Advance(time.Minute)
	n2 := create("Annual exam routine", false)
	pinned := create("Admission open", true)
	assert.Equal(t, "Head Admin", n1.Author)

	req, rec := newRequest(http.MethodGet, "/api/notices")
	env.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []notice.Notice
	unmarshal(t, rec, &got)
	if assert.Len(t, got, 3) {
		assert.Equal(t, pinned.ID, got[0].ID)
	}

	runHTTPTests(t, env, []httpTest{
		{name: "delete", method: http.MethodDelete, path: "/api/admin/notices/" + n2.ID, token: token, wantCode: http.StatusNoContent},
		{
			name: "delete again", method: http.MethodDelete, path: "/api/admin/notices/" + n2.ID, token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "notice not found"}),
		},
		{
			name: "title required", method: http.MethodPost, path: "/api/admin/notices", token: token,
			body: marchallObj(t, notice.NewNotice{Body: "body"}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"title": "this field is required"}),
		},
	})
}

func Test_adminApi_admissions(t *testing.T) {
	env := setup(t)
	token, _ := adminSession(t, env, true)

	apply := func(na admission.NewAdmission) admission.Admission {
		req, rec := newRequest(http.MethodPost, "/api/admissions", marchallObj(t, na))
		env.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var a admission.Admission
		unmarshal(t, rec, &a)
		return a
	}

	a1 := apply(admission.NewAdmission{
		StudentName: "Abdullah", GuardianName: "Rahim", Mobile: "01755555555",
		Email: "rahim@mail.com", Class: "Class 3", Department: student.KindGeneral,
	})
	a2 := apply(admission.NewAdmission{
		StudentName: "Maryam", GuardianName: "Salma", Mobile: "01766666666", Class: "Play", Department: student.KindNurani,
	})
	assert.Equal(t, admission.StatusPending, a1.Status)

	// an existing student takes roll 1
	testutil.CreateStudent(t, env.students, student.KindGeneral, "Bilal", "Class 3", 1, "01700000000", "000000")

	req, rec := newAuthRequest(http.MethodPost, "/api/admin/admissions/"+a1.ID+"/approve", token)
	env.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var approval admission.Approval
	unmarshal(t, rec, &approval)
	assert.Equal(t, admission.StatusApproved, approval.Admission.Status)
	assert.Equal(t, 2, approval.Student.Roll)
	assert.Equal(t, "01755555555", approval.Student.LoginMobile)
	assert.Len(t, approval.Password, 6)

	sent := env.mailer.SentMessages()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, "admission_approved", sent[0].TemplateName)
		assert.Contains(t, sent[0].TextContent, approval.Password)
		assert.Contains(t, sent[0].HTMLContent, "01755555555")
	}

	// the new student signs in with the generated password
	req, rec = newRequest(http.MethodPost, "/api/auth/login", loginBody(t, "01755555555", approval.Password))
	env.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res LoginResponse
	unmarshal(t, rec, &res)
	assert.Equal(t, auth.RoleStudent, res.User.Role)
	assert.Equal(t, 2, res.User.Roll)

	runHTTPTests(t, env, []httpTest{
		{
			name: "approve again", method: http.MethodPost, path: "/api/admin/admissions/" + a1.ID + "/approve", token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "admission has already been decided"}),
		},
		{
			name: "reject", method: http.MethodPost, path: "/api/admin/admissions/" + a2.ID + "/reject", token: token,
			wantCode: http.StatusOK,
		},
		{
			name: "unknown", method: http.MethodPost, path: "/api/admin/admissions/nope/reject", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "admission not found"}),
		},
		{
			name: "unknown status", path: "/api/admin/admissions?status=lost", token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"status": "unknown status"}),
		},
		{
			name: "invalid application", method: http.MethodPost, path: "/api/admissions",
			body: marchallObj(t, admission.NewAdmission{
				StudentName: "X", GuardianName: "Y", Mobile: "12345", Class: "1", Department: "hifz",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"mobile":     "mobile must be an 11 digit mobile number",
				"department": "department must be one of [general nurani]",
			}),
		},
	})

	req, rec = newAuthRequest(http.MethodGet, "/api/admin/admissions?status=rejected", token)
	env.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code)
	var rejected []admission.Admission
	unmarshal(t, rec, &rejected)
	if assert.Len(t, rejected, 1) {
		assert.Equal(t, a2.ID, rejected[0].ID)
	}
}

func Test_adminApi_students(t *testing.T) {
	env := setup(t)
	token, _ := adminSession(t, env, true)
	s := testutil.CreateStudent(t, env.students, student.KindNurani, "Amina", "Play", 1, "01722222222", "112233")

	req, rec := newAuthRequest(http.MethodPost, "/api/admin/students/nurani/"+s.ID+"/reset-password", token, []byte(`{}`))
	env.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res PasswordResponse
	unmarshal(t, rec, &res)
	assert.Len(t, res.Password, 6)

	runHTTPTests(t, env, []httpTest{
		{
			name: "old password refused", method: http.MethodPost, path: "/api/auth/login",
			body: loginBody(t, "01722222222", "112233"), wantCode: http.StatusUnauthorized,
		},
		{
			name: "new password accepted", method: http.MethodPost, path: "/api/auth/login",
			body: loginBody(t, "01722222222", res.Password), wantCode: http.StatusOK,
		},
		{
			name: "chosen password", method: http.MethodPost, path: "/api/admin/students/nurani/" + s.ID + "/reset-password",
			token: token, body: marchallObj(t, student.ResetPassword{Password: "bismillah"}), wantCode: http.StatusOK,
			wantData: marchallObj(t, PasswordResponse{Password: "bismillah"}),
		},
		{
			name: "chosen password too short", method: http.MethodPost, path: "/api/admin/students/nurani/" + s.ID + "/reset-password",
			token: token, body: marchallObj(t, student.ResetPassword{Password: "abc"}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "password must be at least 6 characters in length"}),
		},
		{
			name: "unknown kind", method: http.MethodPost, path: "/api/admin/students/hifz/" + s.ID + "/reset-password",
			token: token, body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "unknown student kind"}),
		},
		{
			name: "unknown student", method: http.MethodPost, path: "/api/admin/students/general/" + s.ID + "/reset-password",
			token: token, body: []byte(`{}`), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "student not found"}),
		},
	})

	req, rec = newAuthRequest(http.MethodGet, "/api/admin/students/nurani?class=Play", token)
	env.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code)
	var students []student.Student
	unmarshal(t, rec, &students)
	if assert.Len(t, students, 1) {
		assert.Equal(t, s.ID, students[0].ID)
		assert.NotContains(t, rec.Body.String(), "password")
	}
}
