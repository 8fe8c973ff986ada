package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"tradedash/config"
	"tradedash/db"
	"tradedash/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestAPI builds a full router backed by a temp-dir store, exactly the
// wiring main.go uses.
func setupTestAPI(t *testing.T) (*gin.Engine, *db.Store, *models.AppConfig) {
	t.Helper()
	tempDir := t.TempDir()
	cfg := &config.Config{
		ConfigFilePath: filepath.Join(tempDir, "app_config.json"),
		ProfilesDir:    filepath.Join(tempDir, "profiles"),
		JwtSecret:      "handler-test-secret-key",
		TokenLifetime:  time.Hour,
	}

	store := db.NewStore(cfg)
	appConf, err := store.LoadOrInitConfig()
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router, store, appConf, cfg)
	return router, store, appConf
}

// doJSON performs a request with an optional bearer token and JSON body.
func doJSON(router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// createProfileSession registers a profile and returns its session token.
func createProfileSession(t *testing.T, router *gin.Engine, name string) string {
	t.Helper()
	w := doJSON(router, http.MethodPost, "/profiles", "", gin.H{"name": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// adminSession configures the admin password and returns an elevated token.
func adminSession(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(router, http.MethodPost, "/auth/admin/setup", "", gin.H{"password": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.SuperAdmin)
	return resp.Token
}

// --- Catalog ---

func TestCatalog_IsPublic(t *testing.T) {
	router, _, _ := setupTestAPI(t)

	w := doJSON(router, http.MethodGet, "/catalog", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "asset_categories")
	assert.Contains(t, w.Body.String(), "timeframes")
	assert.Contains(t, w.Body.String(), "BTC/USD")
}

// --- Auth ---

func TestLogin_ExistingProfile(t *testing.T) {
	router, _, _ := setupTestAPI(t)

	w := doJSON(router, http.MethodPost, "/auth/login", "", gin.H{"profile": models.DefaultProfile})
	require.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, models.DefaultProfile, resp.Profile)
	assert.False(t, resp.SuperAdmin)
}

func TestLogin_UnknownProfile(t *testing.T) {
	router, _, _ := setupTestAPI(t)

	w := doJSON(router, http.MethodPost, "/auth/login", "", gin.H{"profile": "nobody"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogin_MissingBody(t *testing.T) {
	router, _, _ := setupTestAPI(t)

	w := doJSON(router, http.MethodPost, "/auth/login", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_RecordsCurrentProfile(t *testing.T) {
	router, store, appConf := setupTestAPI(t)
	createProfileSession(t, router, "alice")

	w := doJSON(router, http.MethodPost, "/auth/login", "", gin.H{"profile": "alice"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", store.CurrentProfile(appConf))
}

func TestAdminSetup_FirstTimeOnly(t *testing.T) {
	router, _, _ := setupTestAPI(t)

	adminSession(t, router)

	// A second setup must not overwrite the credential.
	w := doJSON(router, http.MethodPost, "/auth/admin/setup", "", gin.H{"password": "other"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAdminLogin(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	adminSession(t, router)

	w := doJSON(router, http.MethodPost, "/auth/admin/login", "", gin.H{"password": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.SuperAdmin)
	assert.Equal(t, models.DefaultProfile, resp.Profile)
}

func TestAdminLogin_WrongPassword(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	adminSession(t, router)

	w := doJSON(router, http.MethodPost, "/auth/admin/login", "", gin.H{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminLogin_Unconfigured(t *testing.T) {
	router, _, _ := setupTestAPI(t)

	w := doJSON(router, http.MethodPost, "/auth/admin/login", "", gin.H{"password": "anything"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChangeAdminPassword(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	token := adminSession(t, router)

	w := doJSON(router, http.MethodPost, "/auth/admin/password", token, gin.H{"password": "rotated"})
	require.Equal(t, http.StatusOK, w.Code)

	// The old password no longer works, the new one does.
	w = doJSON(router, http.MethodPost, "/auth/admin/login", "", gin.H{"password": "s3cret"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(router, http.MethodPost, "/auth/admin/login", "", gin.H{"password": "rotated"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChangeAdminPassword_RequiresAdminSession(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	adminSession(t, router)
	token := createProfileSession(t, router, "alice")

	w := doJSON(router, http.MethodPost, "/auth/admin/password", token, gin.H{"password": "hijack"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLogout(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	token := createProfileSession(t, router, "alice")

	w := doJSON(router, http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPost, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- Profile lifecycle ---

func TestCreateProfile(t *testing.T) {
	router, store, appConf := setupTestAPI(t)

	createProfileSession(t, router, "alice")
	assert.True(t, store.ProfileExists("alice", appConf))
}

func TestCreateProfile_Duplicate(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	createProfileSession(t, router, "alice")

	w := doJSON(router, http.MethodPost, "/profiles", "", gin.H{"name": "alice"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateProfile_InvalidName(t *testing.T) {
	router, _, _ := setupTestAPI(t)

	w := doJSON(router, http.MethodPost, "/profiles", "", gin.H{"name": "../escape"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListProfiles_RequiresAuth(t *testing.T) {
	router, _, _ := setupTestAPI(t)

	w := doJSON(router, http.MethodGet, "/profiles", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListProfiles(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	token := createProfileSession(t, router, "alice")

	w := doJSON(router, http.MethodGet, "/profiles", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ProfileListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Profiles, models.DefaultProfile)
	assert.Contains(t, resp.Profiles, "alice")
	assert.Equal(t, "alice", resp.CurrentProfile)
}

func TestDeleteProfile_AdminOnly(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	adminSession(t, router)
	token := createProfileSession(t, router, "alice")

	w := doJSON(router, http.MethodDelete, "/profiles/alice", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteProfile_AsAdmin(t *testing.T) {
	router, store, appConf := setupTestAPI(t)
	admin := adminSession(t, router)
	createProfileSession(t, router, "alice")

	w := doJSON(router, http.MethodDelete, "/profiles/alice", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, store.ProfileExists("alice", appConf))
}

func TestDeleteProfile_DefaultIsProtected(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	admin := adminSession(t, router)

	w := doJSON(router, http.MethodDelete, "/profiles/"+models.DefaultProfile, admin, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteProfile_NotFound(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	admin := adminSession(t, router)

	w := doJSON(router, http.MethodDelete, "/profiles/nobody", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Stats, export, import ---

func TestProfileStats(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	token := createProfileSession(t, router, "alice")

	w := doJSON(router, http.MethodPost, "/configs/toggle-tested", token, gin.H{"asset": "BTC/USD", "timeframe": "1h"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/profiles/alice/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.ProfileStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalConfigs)
	assert.Equal(t, 1, stats.ConfigsTested)
	assert.InDelta(t, 100.0, stats.PercentTested, 0.001)
}

func TestProfileStats_OtherProfileForbidden(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	createProfileSession(t, router, "alice")
	bobToken := createProfileSession(t, router, "bob")

	w := doJSON(router, http.MethodGet, "/profiles/alice/stats", bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProfileStats_AdminMayReadAnyProfile(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	admin := adminSession(t, router)
	createProfileSession(t, router, "alice")

	w := doJSON(router, http.MethodGet, "/profiles/alice/stats", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExportImport_RoundTrip(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	aliceToken := createProfileSession(t, router, "alice")
	bobToken := createProfileSession(t, router, "bob")

	w := doJSON(router, http.MethodPost, "/configs/toggle-tested", aliceToken, gin.H{"asset": "BTC/USD", "timeframe": "1h"})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(router, http.MethodPut, "/configs/note", aliceToken, gin.H{"asset": "BTC/USD", "timeframe": "1h", "note": "works"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/profiles/alice/export", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "alice_export.json")
	exported := w.Body.String()

	w = doJSON(router, http.MethodPost, "/profiles/bob/import", bobToken, gin.H{"data": exported})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(router, http.MethodGet, "/configs/status?asset=BTC/USD&timeframe=1h", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status ConfigStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.Tested)
	assert.True(t, status.HasNote)
}

func TestImport_MalformedPayload(t *testing.T) {
	router, store, _ := setupTestAPI(t)
	token := createProfileSession(t, router, "alice")

	w := doJSON(router, http.MethodPost, "/profiles/alice/import", token, gin.H{"data": `["not", "an", "object"]`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, store.LoadProfileData("alice"), 0)
}

func TestImport_OtherProfileForbidden(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	createProfileSession(t, router, "alice")
	bobToken := createProfileSession(t, router, "bob")

	w := doJSON(router, http.MethodPost, "/profiles/alice/import", bobToken, gin.H{"data": "{}"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// --- Configuration state ---

func TestToggleTested_FlipsAndPersists(t *testing.T) {
	router, store, _ := setupTestAPI(t)
	token := createProfileSession(t, router, "alice")

	w := doJSON(router, http.MethodPost, "/configs/toggle-tested", token, gin.H{"asset": "BTC/USD", "timeframe": "1h"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp ToggleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "BTC/USD_1h", resp.ConfigID)
	assert.True(t, resp.Value)

	// Persisted, not just in memory.
	doc := store.LoadProfileData("alice")
	assert.True(t, db.IsTested("BTC/USD", "1h", doc))

	w = doJSON(router, http.MethodPost, "/configs/toggle-tested", token, gin.H{"asset": "BTC/USD", "timeframe": "1h"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Value)
}

func TestToggleImproved(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	token := createProfileSession(t, router, "alice")

	w := doJSON(router, http.MethodPost, "/configs/toggle-improved", token, gin.H{"asset": "EUR/USD", "timeframe": "4h"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp ToggleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Value)
}

func TestConfigStatus_Defaults(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	token := createProfileSession(t, router, "alice")

	w := doJSON(router, http.MethodGet, "/configs/status?asset=BTC/USD&timeframe=1h", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status ConfigStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.False(t, status.Tested)
	assert.False(t, status.Improved)
	assert.False(t, status.HasNote)
	assert.Equal(t, 0, status.ScreenshotCount)
	assert.Empty(t, status.LastModified)
}

func TestConfigStatus_MissingQueryParams(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	token := createProfileSession(t, router, "alice")

	w := doJSON(router, http.MethodGet, "/configs/status?asset=BTC/USD", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNote_SaveAndGet(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	token := createProfileSession(t, router, "alice")

	w := doJSON(router, http.MethodPut, "/configs/note", token, gin.H{"asset": "BTC/USD", "timeframe": "1h", "note": "range bound"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/configs/note?asset=BTC/USD&timeframe=1h", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "range bound")
}

func TestParams_DefaultsThenReplace(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	token := createProfileSession(t, router, "alice")

	w := doJSON(router, http.MethodGet, "/configs/params?asset=BTC/USD&timeframe=1h", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var params map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &params))
	assert.Equal(t, "20", params["ADX Level"])
	assert.Len(t, params, len(models.DefaultParams()))

	w = doJSON(router, http.MethodPut, "/configs/params", token, gin.H{
		"asset": "BTC/USD", "timeframe": "1h",
		"params": map[string]string{"ADX Level": "35"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/configs/params?asset=BTC/USD&timeframe=1h", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	params = nil // json.Unmarshal merges into a non-nil map; start fresh
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &params))
	assert.Equal(t, map[string]string{"ADX Level": "35"}, params, "replace is wholesale, not a merge")
}

func TestScreenshots_UploadListAndCap(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	token := createProfileSession(t, router, "alice")

	for _, desc := range []string{"first", "second", "third"} {
		w := doJSON(router, http.MethodPost, "/configs/screenshots", token, gin.H{
			"asset": "BTC/USD", "timeframe": "1h",
			"description": desc, "image_data": "aW1hZ2U=",
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(router, http.MethodGet, "/configs/screenshots?asset=BTC/USD&timeframe=1h", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var screenshots []models.Screenshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &screenshots))
	require.Len(t, screenshots, models.MaxScreenshots)
	assert.Equal(t, "second", screenshots[0].Description, "oldest entry evicted first")
	assert.Equal(t, "third", screenshots[1].Description)
}

func TestScreenshots_InvalidBase64(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	token := createProfileSession(t, router, "alice")

	w := doJSON(router, http.MethodPost, "/configs/screenshots", token, gin.H{
		"asset": "BTC/USD", "timeframe": "1h",
		"description": "broken", "image_data": "not valid base64!!!",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScreenshots_EmptyListIsArray(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	token := createProfileSession(t, router, "alice")

	w := doJSON(router, http.MethodGet, "/configs/screenshots?asset=BTC/USD&timeframe=1h", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestDeleteScreenshot(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	token := createProfileSession(t, router, "alice")

	w := doJSON(router, http.MethodPost, "/configs/screenshots", token, gin.H{
		"asset": "BTC/USD", "timeframe": "1h",
		"description": "only", "image_data": "aW1hZ2U=",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodDelete, "/configs/screenshots/0?asset=BTC/USD&timeframe=1h", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodDelete, "/configs/screenshots/0?asset=BTC/USD&timeframe=1h", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteScreenshot_NonNumericIndex(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	token := createProfileSession(t, router, "alice")

	w := doJSON(router, http.MethodDelete, "/configs/screenshots/abc?asset=BTC/USD&timeframe=1h", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Profile override on config routes ---

func TestProfileOverride_RequiresAdmin(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	createProfileSession(t, router, "alice")
	bobToken := createProfileSession(t, router, "bob")

	w := doJSON(router, http.MethodGet, "/configs/status?asset=BTC/USD&timeframe=1h&profile=alice", bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProfileOverride_AdminModifiesOtherProfile(t *testing.T) {
	router, store, _ := setupTestAPI(t)
	admin := adminSession(t, router)
	createProfileSession(t, router, "alice")

	w := doJSON(router, http.MethodPost, "/configs/toggle-tested?profile=alice", admin, gin.H{"asset": "BTC/USD", "timeframe": "1h"})
	require.Equal(t, http.StatusOK, w.Code)

	doc := store.LoadProfileData("alice")
	assert.True(t, db.IsTested("BTC/USD", "1h", doc))
}

func TestProfileOverride_UnknownProfile(t *testing.T) {
	router, _, _ := setupTestAPI(t)
	admin := adminSession(t, router)

	w := doJSON(router, http.MethodGet, "/configs/status?asset=BTC/USD&timeframe=1h&profile=ghost", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConfigRoutes_RequireAuth(t *testing.T) {
	router, _, _ := setupTestAPI(t)

	w := doJSON(router, http.MethodGet, "/configs/status?asset=BTC/USD&timeframe=1h", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
