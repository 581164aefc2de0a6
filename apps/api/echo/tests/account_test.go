package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/prochartist/backend/apps/api/echo"
	"github.com/prochartist/backend/core/catalog"
	"github.com/prochartist/backend/core/user"
)

func Test_accountApi_signup(t *testing.T) {
	env := setup(t)
	env.createUser(t, "Taken", "taken@test.in", nil, true)

	signup := func(email, pwd string) []byte {
		return marchallObj(t, user.NewUser{Name: "Ravi", Email: email, Password: pwd, PasswordConfirm: pwd})
	}

	tests := []httpTest{
		{
			name: "email taken", method: http.MethodPost, path: "/api/auth/signup", body: signup("TAKEN@test.in", strongPwd),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
		{
			name: "weak password", method: http.MethodPost, path: "/api/auth/signup", body: signup("ravi@test.in", "12345678"),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "invalid email", method: http.MethodPost, path: "/api/auth/signup", body: signup("ravi", strongPwd),
			wantCode: http.StatusBadRequest,
		},
	}
	runHTTPTests(t, env, tests)

	t.Run("success", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/auth/signup", "", signup("Ravi@Test.in", strongPwd))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp echoapi.TokenResponse
		unmarchallObj(t, rec.Body.Bytes(), &resp)
		assert.NotEmpty(t, resp.Token)
		require.NotNil(t, resp.User)
		assert.Equal(t, "ravi@test.in", resp.User.Email)
		assert.Equal(t, []string{user.RoleLearner}, resp.User.Roles)

		// the free phase is unlocked from the start
		rec = env.do(http.MethodGet, "/api/users/me/progress", resp.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var prog map[string]interface{}
		unmarchallObj(t, rec.Body.Bytes(), &prog)
		assert.Equal(t, []interface{}{catalog.FreePhaseID}, prog["unlockedPhases"])
	})
}

func Test_accountApi_login(t *testing.T) {
	env := setup(t)
	env.createUser(t, "Learner", "learner@test.in", nil, true)
	env.createUser(t, "Gone", "gone@test.in", nil, false)
	env.createUser(t, "Admin", "admin@test.in", []string{user.RoleAdmin}, true)

	login := func(email, pwd string) []byte {
		return marchallObj(t, echoapi.LoginRequest{Email: email, Password: pwd})
	}
	errFailed := marchallObj(t, httpErr{Error: "invalid email or password"})

	tests := []httpTest{
		{
			name: "unknown email", method: http.MethodPost, path: "/api/auth/login", body: login("nobody@test.in", strongPwd),
			wantCode: http.StatusBadRequest, wantData: errFailed,
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/api/auth/login", body: login("learner@test.in", "Wr0ng!Passw0rd"),
			wantCode: http.StatusBadRequest, wantData: errFailed,
		},
		{
			name: "deactivated", method: http.MethodPost, path: "/api/auth/login", body: login("gone@test.in", strongPwd),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "learner on admin portal", method: http.MethodPost, path: "/api/admin/login", body: login("learner@test.in", strongPwd),
			wantCode: http.StatusBadRequest, wantData: errFailed,
		},
		{name: "learner", method: http.MethodPost, path: "/api/auth/login", body: login("Learner@test.in", strongPwd), wantCode: http.StatusOK},
		{name: "admin", method: http.MethodPost, path: "/api/admin/login", body: login("admin@test.in", strongPwd), wantCode: http.StatusOK},
	}
	runHTTPTests(t, env, tests)
}

func Test_userApi_verify(t *testing.T) {
	env := setup(t)
	usr := env.createUser(t, "Learner", "learner@test.in", nil, true)

	tests := []httpTest{
		{name: "no token", path: "/api/users/verify", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "bad token", path: "/api/users/verify", token: "not.a.token",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name: "valid", path: "/api/users/verify", token: env.getToken(t, usr), wantCode: http.StatusOK,
			wantData: marchallObj(t, echoapi.VerifyResponse{Valid: true, UserID: usr.ID, Email: usr.Email}),
		},
	}
	runHTTPTests(t, env, tests)
}

func Test_accountApi_otpPasswordReset(t *testing.T) {
	env := setup(t)
	env.createUser(t, "Learner", "learner@test.in", nil, true)
	newPwd := "N3w!Chart1st"

	// unknown emails get the same answer and no email
	rec := env.do(http.MethodPost, "/api/auth/forgot-password", "", marchallObj(t, echoapi.OTPRequest{Email: "nobody@test.in"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, env.mailSvc.SentMessages())

	rec = env.do(http.MethodPost, "/api/auth/forgot-password", "", marchallObj(t, echoapi.OTPRequest{Email: "learner@test.in"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sent := env.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "learner@test.in", sent[0].To[0].Address)
	tmplData, _ := sent[0].TemplateData.(map[string]interface{})
	code, _ := tmplData["Code"].(string)
	require.Len(t, code, env.conf.OTP.Length)

	wrongCode := "100000"
	if code == wrongCode {
		wrongCode = "100001"
	}
	errOTP := marchallObj(t, map[string]string{"otp": "invalid or expired OTP"})

	tests := []httpTest{
		{
			name: "verify wrong code", method: http.MethodPost, path: "/api/auth/verify-otp",
			body:     marchallObj(t, echoapi.VerifyOTPRequest{OTPRequest: echoapi.OTPRequest{Email: "learner@test.in"}, OTP: wrongCode}),
			wantCode: http.StatusBadRequest, wantData: errOTP,
		},
		{
			name: "verify", method: http.MethodPost, path: "/api/auth/verify-otp",
			body:     marchallObj(t, echoapi.VerifyOTPRequest{OTPRequest: echoapi.OTPRequest{Email: "learner@test.in"}, OTP: code}),
			wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.MessageResponse{Message: "OTP verified successfully"}),
		},
		{
			name: "reset on admin portal", method: http.MethodPost, path: "/api/admin/reset-password-with-otp",
			body:     marchallObj(t, user.ResetPasswordWithOTP{Email: "learner@test.in", OTP: code, NewPassword: newPwd}),
			wantCode: http.StatusBadRequest, wantData: errOTP,
		},
		{
			name: "reset", method: http.MethodPost, path: "/api/auth/reset-password-with-otp",
			body:     marchallObj(t, user.ResetPasswordWithOTP{Email: "learner@test.in", OTP: code, NewPassword: newPwd}),
			wantCode: http.StatusOK,
		},
		{
			name: "code is spent", method: http.MethodPost, path: "/api/auth/reset-password-with-otp",
			body:     marchallObj(t, user.ResetPasswordWithOTP{Email: "learner@test.in", OTP: code, NewPassword: newPwd}),
			wantCode: http.StatusBadRequest, wantData: errOTP,
		},
		{
			name: "login with new password", method: http.MethodPost, path: "/api/auth/login",
			body: marchallObj(t, echoapi.LoginRequest{Email: "learner@test.in", Password: newPwd}), wantCode: http.StatusOK,
		},
	}
	runHTTPTests(t, env, tests)
}

func Test_accountApi_masterLink(t *testing.T) {
	env := setup(t)
	oldAdmin := env.createUser(t, "Old Admin", "old@test.in", []string{user.RoleAdmin}, true)
	errInvalid := marchallObj(t, httpErr{Error: "invalid master link"})
	reset := func(token string) []byte {
		return marchallObj(t, echoapi.AdminResetRequest{Token: token, Email: "boss@test.in", Password: strongPwd})
	}

	tests := []httpTest{
		{name: "validate wrong token", path: "/api/admin/validate-master-link/nope", wantCode: http.StatusUnauthorized, wantData: errInvalid},
		{
			name: "validate", path: "/api/admin/validate-master-link/" + masterToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, map[string]bool{"valid": true}),
		},
		{name: "reset wrong token", method: http.MethodPost, path: "/api/admin/reset", body: reset("nope"), wantCode: http.StatusUnauthorized, wantData: errInvalid},
		{name: "reset", method: http.MethodPost, path: "/api/admin/reset", body: reset(masterToken), wantCode: http.StatusOK},
		{
			name: "new admin logs in", method: http.MethodPost, path: "/api/admin/login",
			body: marchallObj(t, echoapi.LoginRequest{Email: "boss@test.in", Password: strongPwd}), wantCode: http.StatusOK,
		},
	}
	runHTTPTests(t, env, tests)

	_, err := env.usrRepo.GetUserByID(context.Background(), oldAdmin.ID)
	assert.Equal(t, user.ErrNotFound, err)
}

func Test_accountApi_adminUsers(t *testing.T) {
	env := setup(t)
	learner := env.createUser(t, "Learner", "learner@test.in", nil, true)
	admin := env.createUser(t, "Admin", "admin@test.in", []string{user.RoleAdmin}, true)

	newAdmin := func(roles ...string) []byte {
		return marchallObj(t, user.NewUser{Name: "Staff", Email: "staff@test.in", Password: strongPwd, Roles: roles})
	}

	tests := []httpTest{
		{name: "auth required", path: "/api/admin/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "admin required", path: "/api/admin/users", token: env.getToken(t, learner), wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermission)},
		{
			name: "cannot grant a higher role", method: http.MethodPost, path: "/api/admin/users", token: env.getToken(t, admin),
			body: newAdmin(user.RoleAdminMaster), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
		{
			name: "create", method: http.MethodPost, path: "/api/admin/users", token: env.getToken(t, admin),
			body: newAdmin(user.RoleAdmin), wantCode: http.StatusCreated,
		},
		{name: "roles", path: "/api/admin/roles", token: env.getToken(t, admin), wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)},
	}
	runHTTPTests(t, env, tests)

	rec := env.do(http.MethodGet, "/api/admin/users?role="+user.RoleAdmin, env.getToken(t, admin), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var users []user.User
	unmarchallObj(t, rec.Body.Bytes(), &users)
	emails := make([]string, 0, len(users))
	for _, usr := range users {
		emails = append(emails, usr.Email)
	}
	assert.ElementsMatch(t, []string{"admin@test.in", "staff@test.in"}, emails)
}
