package tests

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prochartist/backend/core/application"
	"github.com/prochartist/backend/core/user"
)

const leagueDate = "2026-11-02"

// pngHeader is enough of a PNG file to pass content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func (env *testEnv) submit(t *testing.T, token string, na application.NewApplication) *httptest.ResponseRecorder {
	return env.do(http.MethodPost, "/api/applicationsByDate", token, marchallObj(t, na))
}

func transition(t *testing.T, status string, reason *string) []byte {
	return marchallObj(t, application.Transition{Status: status, RejectionReason: reason})
}

func Test_applicationApi_lifecycle(t *testing.T) {
	env := setup(t)
	learner := env.createUser(t, "Learner", "learner@test.in", nil, true)
	admin := env.createUser(t, "Admin", "admin@test.in", []string{user.RoleAdmin}, true)
	token, adminToken := env.getToken(t, learner), env.getToken(t, admin)

	na := application.NewApplication{LeagueDate: leagueDate, Name: "Learner", Mobile: "9876543210", Email: "Learner@test.in"}

	rec := env.submit(t, token, na)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var app application.Application
	unmarchallObj(t, rec.Body.Bytes(), &app)
	assert.Equal(t, application.StatusPending, app.Status)
	assert.Equal(t, learner.ID, app.UserID)
	assert.Equal(t, "learner@test.in", app.Email)

	appPath := "/api/applicationsByDate/" + app.ID

	tests := []httpTest{
		{
			name: "duplicate", method: http.MethodPost, path: "/api/applicationsByDate", token: token, body: marchallObj(t, na),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "you have already applied for this league"}),
		},
		{
			name: "anonymous needs a user id", method: http.MethodPost, path: "/api/applicationsByDate",
			body: marchallObj(t, application.NewApplication{LeagueDate: leagueDate, Name: "X", Mobile: "1", Email: "x@test.in"}), wantCode: http.StatusBadRequest,
		},
		{
			name: "bad date", method: http.MethodPost, path: "/api/applicationsByDate", token: token,
			body:     marchallObj(t, application.NewApplication{LeagueDate: "2026-02-30", Name: "X", Mobile: "1", Email: "x@test.in"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"date": "date must be formatted as YYYY-MM-DD"}),
		},
		{name: "learners cannot transition", method: http.MethodPut, path: appPath, token: token, body: transition(t, "approved", nil), wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermission)},
		{
			name: "blank reason", method: http.MethodPut, path: appPath, token: adminToken, body: transition(t, "rejected", strPtr("  ")),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"rejectionReason": "a rejection reason is required"}),
		},
		{
			name: "unknown status", method: http.MethodPut, path: appPath, token: adminToken, body: transition(t, "archived", nil),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"status": "status must be one of pending, approved, rejected"}),
		},
		{name: "unknown application", method: http.MethodPut, path: "/api/applicationsByDate/nope", token: adminToken, body: transition(t, "approved", nil), wantCode: http.StatusNotFound},
	}
	runHTTPTests(t, env, tests)

	put := func(body []byte) application.Application {
		rec := env.do(http.MethodPut, appPath, adminToken, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got application.Application
		unmarchallObj(t, rec.Body.Bytes(), &got)
		return got
	}

	t.Run("reject without reason", func(t *testing.T) {
		got := put(transition(t, "rejected", nil))
		assert.Equal(t, application.StatusRejected, got.Status)
		assert.Equal(t, application.NoReasonPlaceholder, got.RejectionReason)
	})

	t.Run("approve drops the reason", func(t *testing.T) {
		put(transition(t, "rejected", strPtr("blurry screenshot")))
		got := put(transition(t, "Approved", nil))
		assert.Equal(t, application.StatusApproved, got.Status)
		assert.Empty(t, got.RejectionReason)
	})

	t.Run("reapply after rejection", func(t *testing.T) {
		put(transition(t, "rejected", strPtr("wrong broker")))
		rec := env.submit(t, token, na)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = env.do(http.MethodGet, "/api/applicationsByDate?date="+leagueDate, adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var parts application.Partitioned
		unmarchallObj(t, rec.Body.Bytes(), &parts)
		assert.Equal(t, leagueDate, parts.Date)
		assert.Len(t, parts.Pending, 1)
		assert.Empty(t, parts.Approved)
		assert.Empty(t, parts.Rejected)
	})

	t.Run("own application", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/applicationsByDate/mine?date="+leagueDate, token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got application.Application
		unmarchallObj(t, rec.Body.Bytes(), &got)
		assert.Equal(t, application.StatusPending, got.Status)
	})

	t.Run("dates and delete", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/applicationsByDate/dates", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var dates []string
		unmarchallObj(t, rec.Body.Bytes(), &dates)
		assert.Equal(t, []string{leagueDate}, dates)

		rec = env.do(http.MethodGet, "/api/applicationsByDate/mine?date="+leagueDate, token, nil)
		var own application.Application
		unmarchallObj(t, rec.Body.Bytes(), &own)

		rec = env.do(http.MethodDelete, "/api/applicationsByDate/"+own.ID, adminToken, nil)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		rec = env.do(http.MethodDelete, "/api/applicationsByDate/"+own.ID, adminToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	})
}

func Test_applicationApi_multipart(t *testing.T) {
	env := setup(t)
	learner := env.createUser(t, "Learner", "learner@test.in", nil, true)

	newForm := func(filename string, content []byte) (*bytes.Buffer, string) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for k, v := range map[string]string{"date": leagueDate, "name": "Learner", "mobile": "9876543210", "email": "learner@test.in"} {
			require.NoError(t, w.WriteField(k, v))
		}
		if filename != "" {
			fw, err := w.CreateFormFile("image", filename)
			require.NoError(t, err)
			_, err = fw.Write(content)
			require.NoError(t, err)
		}
		require.NoError(t, w.Close())
		return &buf, w.FormDataContentType()
	}
	post := func(filename string, content []byte) *httptest.ResponseRecorder {
		body, contentType := newForm(filename, content)
		req := httptest.NewRequest(http.MethodPost, "/api/applicationsByDate", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+env.getToken(t, learner))
		rec := httptest.NewRecorder()
		env.serve(req, rec)
		return rec
	}

	rec := post("notes.txt", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = post("fake.png", []byte("not really a png"))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = post("pnl.png", pngHeader)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var app application.Application
	unmarchallObj(t, rec.Body.Bytes(), &app)
	assert.True(t, strings.HasPrefix(app.ImageURL, "http://localhost:5000/uploads/images/"), app.ImageURL)
	assert.True(t, strings.HasSuffix(app.ImageURL, ".png"), app.ImageURL)
	assert.Equal(t, learner.ID, app.UserID)

	// the stored file is served back
	path := strings.TrimPrefix(app.ImageURL, "http://localhost:5000")
	req, rec := newRequest(http.MethodGet, path)
	env.serve(req, rec)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pngHeader, rec.Body.Bytes())
}
