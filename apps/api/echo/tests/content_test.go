package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/prochartist/backend/apps/api/echo"
	"github.com/prochartist/backend/core/catalog"
	"github.com/prochartist/backend/core/league"
	"github.com/prochartist/backend/core/user"
	"github.com/prochartist/backend/core/video"
)

func phaseIDs(phases []catalog.Phase) []string {
	ids := make([]string, 0, len(phases))
	for _, p := range phases {
		ids = append(ids, p.PhaseID)
	}
	return ids
}

func Test_catalogApi(t *testing.T) {
	env := setup(t)
	learner := env.createUser(t, "Learner", "learner@test.in", nil, true)
	admin := env.createUser(t, "Admin", "admin@test.in", []string{user.RoleAdmin}, true)
	token, adminToken := env.getToken(t, learner), env.getToken(t, admin)

	list := func(path, token string) []string {
		rec := env.do(http.MethodGet, path, token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var phases []catalog.Phase
		unmarchallObj(t, rec.Body.Bytes(), &phases)
		return phaseIDs(phases)
	}
	allPhases := []string{"beginner", "trader", "pro-trader", "master-trader"}
	assert.Equal(t, allPhases, list("/api/learning-phases", ""))

	newPhase := catalog.NewPhase{
		PhaseID: "Options", Title: "Options", Order: 5,
		Content: []catalog.NewContentItem{{ID: "greeks", Title: "Greeks", Order: 1}},
	}
	tests := []httpTest{
		{name: "get", path: "/api/learning-phases/trader", wantCode: http.StatusOK},
		{name: "unknown", path: "/api/learning-phases/nope", wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "learning phase not found"})},
		{name: "create is admin only", method: http.MethodPost, path: "/api/learning-phases", token: token, body: marchallObj(t, newPhase), wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermission)},
		{name: "create needs auth", method: http.MethodPost, path: "/api/learning-phases", body: marchallObj(t, newPhase), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "create", method: http.MethodPost, path: "/api/learning-phases", token: adminToken, body: marchallObj(t, newPhase), wantCode: http.StatusCreated},
		{
			name: "duplicate content", method: http.MethodPost, path: "/api/learning-phases/options/content", token: adminToken,
			body: marchallObj(t, catalog.NewContentItem{ID: "greeks", Title: "Again"}), wantCode: http.StatusConflict,
		},
		{
			name: "add content", method: http.MethodPost, path: "/api/learning-phases/options/content", token: adminToken,
			body: marchallObj(t, catalog.NewContentItem{ID: "spreads", Title: "Spreads", Order: 2}), wantCode: http.StatusCreated,
		},
		{
			name: "update unknown content", method: http.MethodPut, path: "/api/learning-phases/options/content/nope", token: adminToken,
			body: marchallObj(t, catalog.UpdateContentItem{Title: strPtr("x")}), wantCode: http.StatusNotFound,
		},
		{name: "deactivate", method: http.MethodDelete, path: "/api/learning-phases/trader", token: adminToken, wantCode: http.StatusOK,
			wantData: marchallObj(t, echoapi.MessageResponse{Message: "Learning phase deactivated successfully"})},
	}
	runHTTPTests(t, env, tests)

	assert.Equal(t, []string{"beginner", "pro-trader", "master-trader", "options"}, list("/api/learning-phases", ""))
	assert.Equal(t, []string{"beginner", "trader", "pro-trader", "master-trader", "options"}, list("/api/learning-phases/all", adminToken))

	t.Run("update content", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/api/learning-phases/options/content/spreads", adminToken,
			marchallObj(t, catalog.UpdateContentItem{Order: intPtr(0)}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var phase catalog.Phase
		unmarchallObj(t, rec.Body.Bytes(), &phase)
		ordered := phase.OrderedContent()
		require.Len(t, ordered, 2)
		assert.Equal(t, "spreads", ordered[0].ID)

		rec = env.do(http.MethodDelete, "/api/learning-phases/options/content/greeks", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarchallObj(t, rec.Body.Bytes(), &phase)
		assert.Len(t, phase.Content, 1)
	})

	t.Run("bulk", func(t *testing.T) {
		body := echoapi.BulkPhasesRequest{Phases: []catalog.NewPhase{
			{PhaseID: "trader", Title: "Phase 2: Trader", Order: 2, IsActive: boolPtr(true), Price: floatPtr(1299)},
			{PhaseID: "crypto", Title: "Crypto", Order: 6},
		}}
		rec := env.do(http.MethodPut, "/api/learning-phases/bulk/update", adminToken, marchallObj(t, body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(http.MethodGet, "/api/learning-phases/trader", "", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var phase catalog.Phase
		unmarchallObj(t, rec.Body.Bytes(), &phase)
		assert.True(t, phase.IsActive)
		assert.Equal(t, 1299.0, phase.Price)
		assert.Empty(t, phase.Content)

		bad := echoapi.BulkPhasesRequest{Phases: []catalog.NewPhase{{PhaseID: "Not A Slug", Title: "x"}}}
		rec = env.do(http.MethodPut, "/api/learning-phases/bulk/update", adminToken, marchallObj(t, bad))
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})

	t.Run("seed is idempotent", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/admin/seed-phases", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		ok, _ := jsonBytesEqual(rec.Body.Bytes(), []byte(`{"created":0}`))
		assert.True(t, ok, rec.Body.String())
	})
}

func Test_videoApi(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Admin", "admin@test.in", []string{user.RoleAdmin}, true)
	adminToken := env.getToken(t, admin)

	nv := video.NewVideo{ID: 7, Title: "Candles", Description: "Reading candlesticks"}
	tests := []httpTest{
		{name: "empty list", path: "/api/videos", wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "save needs auth", method: http.MethodPost, path: "/api/videos", body: marchallObj(t, nv), wantCode: http.StatusUnauthorized},
		{name: "save", method: http.MethodPost, path: "/api/videos", token: adminToken, body: marchallObj(t, nv), wantCode: http.StatusCreated},
		{name: "bad id", path: "/api/videos/abc", wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"id": "id must be an integer"})},
		{name: "unknown", path: "/api/videos/8", wantCode: http.StatusNotFound},
		{name: "missing description", method: http.MethodPost, path: "/api/videos", token: adminToken, body: marchallObj(t, video.NewVideo{ID: 9, Title: "x"}), wantCode: http.StatusBadRequest},
	}
	runHTTPTests(t, env, tests)

	rec := env.do(http.MethodGet, "/api/videos/7", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v video.Video
	unmarchallObj(t, rec.Body.Bytes(), &v)
	assert.Equal(t, "admin@test.in", v.UploadedBy)
	assert.True(t, v.IsActive)

	rec = env.do(http.MethodPut, "/api/videos/7", adminToken, marchallObj(t, video.UpdateVideo{Title: strPtr("Candlesticks")}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarchallObj(t, rec.Body.Bytes(), &v)
	assert.Equal(t, "Candlesticks", v.Title)
	assert.Equal(t, "Reading candlesticks", v.Description)

	rec = env.do(http.MethodDelete, "/api/videos/7", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var videos []video.Video
	rec = env.do(http.MethodGet, "/api/videos", "", nil)
	unmarchallObj(t, rec.Body.Bytes(), &videos)
	assert.Empty(t, videos)
	rec = env.do(http.MethodGet, "/api/videos/all", adminToken, nil)
	unmarchallObj(t, rec.Body.Bytes(), &videos)
	require.Len(t, videos, 1)
	assert.False(t, videos[0].IsActive)

	t.Run("bulk", func(t *testing.T) {
		body := video.BulkUpdate{Videos: []video.NewVideo{
			{ID: 1, Title: "One", Description: "First"},
			{ID: 2, Title: "Two", Description: "Second", IsActive: boolPtr(false)},
		}}
		rec := env.do(http.MethodPut, "/api/videos/bulk/update", adminToken, marchallObj(t, body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(http.MethodGet, "/api/videos", "", nil)
		unmarchallObj(t, rec.Body.Bytes(), &videos)
		require.Len(t, videos, 1)
		assert.Equal(t, 1, videos[0].ID)
	})

	t.Run("upload", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/videos/upload/image", adminToken, []byte(`{}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})
}

func Test_leagueApi(t *testing.T) {
	env := setup(t)
	learner := env.createUser(t, "Learner", "learner@test.in", nil, true)
	admin := env.createUser(t, "Admin", "admin@test.in", []string{user.RoleAdmin}, true)
	adminToken := env.getToken(t, admin)

	upd := league.UpdateLeague{CurrentLeague: &league.CurrentLeague{
		StartDate: "2026-11-02", Participants: 120,
		Traders: []league.Trader{{Rank: 1, Name: " Asha ", Trades: 42, ROI: 18.5}},
	}}
	top := league.UpdateTopTraders{TopTraders: []league.TopTrader{{Date: "2026-10-01", Name: "Vikram", ROI: 64.2}}}

	tests := []httpTest{
		{name: "not set yet", path: "/api/league", wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "no league found"})},
		{name: "learner cannot update", method: http.MethodPut, path: "/api/league", token: env.getToken(t, learner), body: marchallObj(t, upd), wantCode: http.StatusForbidden},
		{name: "current league required", method: http.MethodPut, path: "/api/league", token: adminToken, body: []byte(`{}`), wantCode: http.StatusBadRequest},
		{name: "update", method: http.MethodPut, path: "/api/league", token: adminToken, body: marchallObj(t, upd), wantCode: http.StatusOK},
		{name: "top traders", method: http.MethodPut, path: "/api/league/topTraders", token: adminToken, body: marchallObj(t, top), wantCode: http.StatusOK,
			wantData: marchallObj(t, top)},
		{name: "read top traders", path: "/api/league/topTraders", wantCode: http.StatusOK, wantData: marchallObj(t, top)},
	}
	runHTTPTests(t, env, tests)

	rec := env.do(http.MethodGet, "/api/league", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var lg league.League
	unmarchallObj(t, rec.Body.Bytes(), &lg)
	assert.Equal(t, 120, lg.CurrentLeague.Participants)
	require.Len(t, lg.CurrentLeague.Traders, 1)
	assert.Equal(t, "Asha", lg.CurrentLeague.Traders[0].Name)
	assert.Equal(t, top.TopTraders, lg.TopTraders)
}

func intPtr(i int) *int           { return &i }
func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }
