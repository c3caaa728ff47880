package echoapi_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/mahudhurio/apps/api/echo"
	"github.com/trezcool/mahudhurio/core/user"
	testutil "github.com/trezcool/mahudhurio/tests"
)

func Test_home(t *testing.T) {
	f := setup(t)
	for _, path := range []string{"/", "/api", "/api/"} {
		req, rec := newRequest(http.MethodGet, path)
		f.serve(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "Welcome to Mahudhurio API!", rec.Body.String(), path)
	}
}

func Test_userApi_login(t *testing.T) {
	f := setup(t)
	testutil.CreateUser(t, f.usrRepo, "Teacher", "teacher@test.cd", "pwd-teacher", user.RoleTeacher)

	unauthorized := marchallObj(t, httpErr{Error: "Unauthorized"})
	tests := []httpTest{
		{
			name: "missing fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"email":    "this field is required",
				"password": "this field is required",
			}),
		},
		{
			name: "invalid email", body: []byte(`{"email": "teacher", "password": "pwd"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name: "unknown email", body: []byte(`{"email": "ghost@test.cd", "password": "pwd-teacher"}`),
			wantCode: http.StatusUnauthorized, wantData: unauthorized,
		},
		{
			name: "wrong password", body: []byte(`{"email": "teacher@test.cd", "password": "pwd-admin"}`),
			wantCode: http.StatusUnauthorized, wantData: unauthorized,
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/api/login"
	}
	runHTTPTests(t, f, tests)

	t.Run("success", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/login", []byte(`{"email": " Teacher@Test.CD ", "password": "pwd-teacher"}`))
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "teacher@test.cd", resp.User.Email)
		assert.Equal(t, user.RoleTeacher, resp.User.Role)
		assert.True(t, resp.User.LastLogin.Valid)

		// the token grants access to the teacher endpoints
		req, rec = newAuthRequest(http.MethodGet, "/api/students", resp.Token)
		f.serve(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_userApi_logout(t *testing.T) {
	f := setup(t)
	teacher := testutil.CreateUser(t, f.usrRepo, "Teacher", "teacher@test.cd", "", user.RoleTeacher)
	admin := testutil.CreateUser(t, f.usrRepo, "Admin", "admin@test.cd", "", user.RoleAdmin)
	token := f.getToken(t, teacher)
	otherToken := f.getToken(t, teacher)
	adminToken := f.getToken(t, admin)

	runHTTPTests(t, f, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/api/logout", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Logged out", method: http.MethodPost, path: "/api/logout", token: token,
			wantCode: http.StatusOK, wantData: marchallObj(t, MessageResponse{Message: "Logged out"}),
		},
		{
			name: "token revoked", method: http.MethodPost, path: "/api/logout", token: token,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "token has been revoked"}),
		},
		{
			name: "every token of the user is revoked", path: "/api/students", token: otherToken,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "token has been revoked"}),
		},
		{name: "other users stay logged in", path: "/api/teachers", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, teacher)},
	})

	// tokens issued after the logout are accepted
	req, rec := newAuthRequest(http.MethodGet, "/api/students", f.getToken(t, teacher))
	f.serve(req, rec)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_userApi_registerTeacher(t *testing.T) {
	f := setup(t)
	admin := testutil.CreateUser(t, f.usrRepo, "Admin", "admin@test.cd", "", user.RoleAdmin)
	teacher := testutil.CreateUser(t, f.usrRepo, "Teacher", "teacher@test.cd", "", user.RoleTeacher)
	adminToken := f.getToken(t, admin)

	body := func(name, email, pwd string) []byte {
		return marchallObj(t, map[string]string{"name": name, "email": email, "password": pwd})
	}

	tests := []httpTest{
		{name: "Auth required", body: body("John", "john@test.cd", "s3cr3t-pwd"), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", body: body("John", "john@test.cd", "s3cr3t-pwd"), token: f.getToken(t, teacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "blank name", body: body("  ", "john@test.cd", "s3cr3t-pwd"), token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name: "short password", body: body("John", "john@test.cd", "pwd"), token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"password": "password must be at least 6 characters in length"}),
		},
		{
			name: "password similar to email", body: body("John", "johnny@test.cd", "johnny1"), token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"password": "password cannot be similar to user attributes"}),
		},
		{
			name: "duplicate email", body: body("Teach", " TEACHER@test.cd", "s3cr3t-pwd"), token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/api/register-teacher"
	}
	runHTTPTests(t, f, tests)
	assert.Empty(t, f.mailSvc.Sent())

	t.Run("Teacher registered successfully", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/register-teacher", adminToken, body("John Doe", "John@Test.cd", "s3cr3t-pwd"))
		f.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp TeacherResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Teacher registered successfully", resp.Message)
		assert.Equal(t, "John Doe", resp.Teacher.Name)
		assert.Equal(t, "john@test.cd", resp.Teacher.Email)
		assert.Equal(t, user.RoleTeacher, resp.Teacher.Role)
		assert.NotContains(t, rec.Body.String(), "password")

		sent := f.mailSvc.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "john@test.cd", sent[0].To[0].Address)

		// the new teacher can log in
		req, rec = newRequest(http.MethodPost, "/api/login", []byte(`{"email": "john@test.cd", "password": "s3cr3t-pwd"}`))
		f.serve(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_userApi_queryTeachers(t *testing.T) {
	f := setup(t)
	admin := testutil.CreateUser(t, f.usrRepo, "Admin", "admin@test.cd", "", user.RoleAdmin)
	teacher1 := testutil.CreateUser(t, f.usrRepo, "Teacher 1", "t1@test.cd", "", user.RoleTeacher)
	teacher2 := testutil.CreateUser(t, f.usrRepo, "Teacher 2", "t2@test.cd", "", user.RoleTeacher)

	runHTTPTests(t, f, []httpTest{
		{name: "Auth required", path: "/api/teachers", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/api/teachers", token: f.getToken(t, teacher1),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "invalid token", path: "/api/teachers", token: "not.a.jwt",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{name: "Get teachers", path: "/api/teachers", token: f.getToken(t, admin), wantCode: http.StatusOK, wantData: marchallList(t, teacher1, teacher2)},
	})
}
