package api

import (
	"fmt"
	"net/http"
	"strconv"

	"tradedash/config"
	"tradedash/db"
	"tradedash/models"
	"tradedash/utils"

	"github.com/gin-gonic/gin"
)

// Asset symbols contain slashes ("BTC/USD"), so configuration endpoints
// take asset and timeframe as query parameters (reads) or body fields
// (mutations) rather than path segments.

// ConfigRef identifies one (asset, timeframe) configuration in a request
// body.
type ConfigRef struct {
	Asset     string `json:"asset" binding:"required"`
	Timeframe string `json:"timeframe" binding:"required"`
}

// NoteRequest stores a note for a configuration.
type NoteRequest struct {
	ConfigRef
	Note string `json:"note"`
}

// ParamsRequest overwrites the parameter set for a configuration.
type ParamsRequest struct {
	ConfigRef
	Params map[string]string `json:"params" binding:"required"`
}

// ScreenshotRequest uploads one screenshot for a configuration. ImageData
// is the base64 encoding of the raw image bytes produced by the upload
// layer; the server stores it as an opaque blob.
type ScreenshotRequest struct {
	ConfigRef
	Description string `json:"description"`
	ImageData   string `json:"image_data" binding:"required"`
}

// ConfigStatusResponse reports the tracked state of one configuration.
type ConfigStatusResponse struct {
	Asset           string `json:"asset"`
	Timeframe       string `json:"timeframe"`
	ConfigID        string `json:"config_id"`
	Tested          bool   `json:"tested"`
	Improved        bool   `json:"improved"`
	HasNote         bool   `json:"has_note"`
	HasScreenshots  bool   `json:"has_screenshots"`
	ScreenshotCount int    `json:"screenshot_count"`
	LastModified    string `json:"last_modified,omitempty"`
}

// ToggleResponse reports the new flag value after a toggle.
type ToggleResponse struct {
	ConfigID string `json:"config_id"`
	Value    bool   `json:"value"`
}

// resolveProfile determines which profile a configuration request operates
// on: the session's own profile, or - for super-admin sessions only - the
// profile named by the 'profile' query parameter. Returns "" after writing
// an error response when access is denied or the profile is unknown.
func resolveProfile(c *gin.Context, store *db.Store, appConf *models.AppConfig) string {
	name := utils.SessionProfile(c)
	if override := c.Query("profile"); override != "" && override != name {
		if !utils.IsSuperAdmin(c) {
			utils.GinForbidden(c, "Only a super admin may operate on another profile.")
			return ""
		}
		name = override
	}
	if !store.ProfileExists(name, appConf) {
		utils.GinNotFound(c, fmt.Sprintf("Profile '%s' does not exist.", name))
		return ""
	}
	return name
}

// queryConfigRef extracts the asset/timeframe pair from query parameters.
// Returns ok=false after writing an error response when either is missing.
func queryConfigRef(c *gin.Context) (asset, timeframe string, ok bool) {
	asset = c.Query("asset")
	timeframe = c.Query("timeframe")
	if asset == "" || timeframe == "" {
		utils.GinBadRequest(c, "Query parameters 'asset' and 'timeframe' are required.")
		return "", "", false
	}
	return asset, timeframe, true
}

// GetConfigStatusHandler reports the tracked state of a configuration.
// @Summary      Get Configuration Status
// @Description  Returns the tested/improved flags, note and screenshot presence, and last-modified timestamp for an (asset, timeframe) pair. A configuration that was never written reports all defaults. The document is loaded fresh from disk on every request.
// @Tags         Configurations
// @Produce      json
// @Security     BearerAuth
// @Param        asset query string true "Asset symbol, e.g. BTC/USD."
// @Param        timeframe query string true "Timeframe, e.g. 1h."
// @Param        profile query string false "Profile to inspect (super admin only; defaults to the session profile)."
// @Success      200  {object}  ConfigStatusResponse "Configuration status."
// @Failure      400  {object}  utils.APIError "Bad Request: missing asset or timeframe."
// @Failure      401  {object}  utils.APIError "Unauthorized: missing or invalid session token."
// @Failure      403  {object}  utils.APIError "Forbidden: profile override without super-admin role."
// @Failure      404  {object}  utils.APIError "Not Found: no such profile."
// @Router       /configs/status [get]
func GetConfigStatusHandler(c *gin.Context, store *db.Store, appConf *models.AppConfig, cfg *config.Config) {
	asset, timeframe, ok := queryConfigRef(c)
	if !ok {
		return
	}
	profile := resolveProfile(c, store, appConf)
	if profile == "" {
		return
	}

	doc := store.LoadProfileData(profile)
	screenshots := db.GetScreenshots(asset, timeframe, doc)

	c.JSON(http.StatusOK, ConfigStatusResponse{
		Asset:           asset,
		Timeframe:       timeframe,
		ConfigID:        db.ConfigID(asset, timeframe),
		Tested:          db.IsTested(asset, timeframe, doc),
		Improved:        db.IsImproved(asset, timeframe, doc),
		HasNote:         db.HasNote(asset, timeframe, doc),
		HasScreenshots:  db.HasScreenshots(asset, timeframe, doc),
		ScreenshotCount: len(screenshots),
		LastModified:    doc[db.ConfigID(asset, timeframe)].LastModified,
	})
}

// ToggleTestedHandler flips the tested flag of a configuration.
// @Summary      Toggle Tested
// @Description  Flips the tested flag for an (asset, timeframe) pair, creating the record on first write, stamps last_modified, persists the document, and returns the new value. Toggling twice restores the original value.
// @Tags         Configurations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        config body ConfigRef true "Configuration to toggle."
// @Param        profile query string false "Profile to modify (super admin only)."
// @Success      200  {object}  ToggleResponse "New flag value."
// @Failure      400  {object}  utils.APIError "Bad Request: missing or malformed body."
// @Failure      401  {object}  utils.APIError "Unauthorized: missing or invalid session token."
// @Failure      403  {object}  utils.APIError "Forbidden: profile override without super-admin role."
// @Failure      404  {object}  utils.APIError "Not Found: no such profile."
// @Failure      500  {object}  utils.APIError "Internal Server Error: the document could not be persisted; treat the change as unconfirmed."
// @Router       /configs/toggle-tested [post]
func ToggleTestedHandler(c *gin.Context, store *db.Store, appConf *models.AppConfig, cfg *config.Config) {
	var req ConfigRef
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	profile := resolveProfile(c, store, appConf)
	if profile == "" {
		return
	}

	doc := store.LoadProfileData(profile)
	doc, value := db.ToggleTested(req.Asset, req.Timeframe, doc)
	if err := store.SaveProfileData(profile, doc); err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to persist profile data: %v", err))
		return
	}

	c.JSON(http.StatusOK, ToggleResponse{ConfigID: db.ConfigID(req.Asset, req.Timeframe), Value: value})
}

// ToggleImprovedHandler flips the improved flag of a configuration.
// @Summary      Toggle Improved
// @Description  Flips the improved flag for an (asset, timeframe) pair, creating the record on first write, stamps last_modified, persists the document, and returns the new value.
// @Tags         Configurations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        config body ConfigRef true "Configuration to toggle."
// @Param        profile query string false "Profile to modify (super admin only)."
// @Success      200  {object}  ToggleResponse "New flag value."
// @Failure      400  {object}  utils.APIError "Bad Request: missing or malformed body."
// @Failure      401  {object}  utils.APIError "Unauthorized: missing or invalid session token."
// @Failure      403  {object}  utils.APIError "Forbidden: profile override without super-admin role."
// @Failure      404  {object}  utils.APIError "Not Found: no such profile."
// @Failure      500  {object}  utils.APIError "Internal Server Error: the document could not be persisted; treat the change as unconfirmed."
// @Router       /configs/toggle-improved [post]
func ToggleImprovedHandler(c *gin.Context, store *db.Store, appConf *models.AppConfig, cfg *config.Config) {
	var req ConfigRef
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	profile := resolveProfile(c, store, appConf)
	if profile == "" {
		return
	}

	doc := store.LoadProfileData(profile)
	doc, value := db.ToggleImproved(req.Asset, req.Timeframe, doc)
	if err := store.SaveProfileData(profile, doc); err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to persist profile data: %v", err))
		return
	}

	c.JSON(http.StatusOK, ToggleResponse{ConfigID: db.ConfigID(req.Asset, req.Timeframe), Value: value})
}

// GetNoteHandler returns the note for a configuration.
// @Summary      Get Note
// @Description  Returns the free-text note stored for an (asset, timeframe) pair, or an empty string when none is stored.
// @Tags         Configurations
// @Produce      json
// @Security     BearerAuth
// @Param        asset query string true "Asset symbol."
// @Param        timeframe query string true "Timeframe."
// @Param        profile query string false "Profile to inspect (super admin only)."
// @Success      200  {object}  map[string]string "The note text (possibly empty)."
// @Failure      400  {object}  utils.APIError "Bad Request: missing asset or timeframe."
// @Failure      401  {object}  utils.APIError "Unauthorized: missing or invalid session token."
// @Failure      403  {object}  utils.APIError "Forbidden: profile override without super-admin role."
// @Failure      404  {object}  utils.APIError "Not Found: no such profile."
// @Router       /configs/note [get]
func GetNoteHandler(c *gin.Context, store *db.Store, appConf *models.AppConfig, cfg *config.Config) {
	asset, timeframe, ok := queryConfigRef(c)
	if !ok {
		return
	}
	profile := resolveProfile(c, store, appConf)
	if profile == "" {
		return
	}

	doc := store.LoadProfileData(profile)
	c.JSON(http.StatusOK, gin.H{"note": db.GetNote(asset, timeframe, doc)})
}

// SaveNoteHandler stores the note for a configuration.
// @Summary      Save Note
// @Description  Overwrites the note for an (asset, timeframe) pair, stamps last_modified and persists the document. An empty note is allowed and clears the stored text.
// @Tags         Configurations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        note body NoteRequest true "Configuration and note text."
// @Param        profile query string false "Profile to modify (super admin only)."
// @Success      200  {object}  map[string]string "Note saved."
// @Failure      400  {object}  utils.APIError "Bad Request: missing or malformed body."
// @Failure      401  {object}  utils.APIError "Unauthorized: missing or invalid session token."
// @Failure      403  {object}  utils.APIError "Forbidden: profile override without super-admin role."
// @Failure      404  {object}  utils.APIError "Not Found: no such profile."
// @Failure      500  {object}  utils.APIError "Internal Server Error: the document could not be persisted; treat the change as unconfirmed."
// @Router       /configs/note [put]
func SaveNoteHandler(c *gin.Context, store *db.Store, appConf *models.AppConfig, cfg *config.Config) {
	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	profile := resolveProfile(c, store, appConf)
	if profile == "" {
		return
	}

	doc := store.LoadProfileData(profile)
	doc = db.SaveNote(req.Asset, req.Timeframe, req.Note, doc)
	if err := store.SaveProfileData(profile, doc); err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to persist profile data: %v", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Note saved."})
}

// GetParamsHandler returns the strategy parameters for a configuration.
// @Summary      Get Strategy Parameters
// @Description  Returns the stored parameter set for an (asset, timeframe) pair, or a copy of the default parameter set when none is stored. All values are strings; numeric-looking values are never parsed.
// @Tags         Configurations
// @Produce      json
// @Security     BearerAuth
// @Param        asset query string true "Asset symbol."
// @Param        timeframe query string true "Timeframe."
// @Param        profile query string false "Profile to inspect (super admin only)."
// @Success      200  {object}  map[string]string "The parameter set."
// @Failure      400  {object}  utils.APIError "Bad Request: missing asset or timeframe."
// @Failure      401  {object}  utils.APIError "Unauthorized: missing or invalid session token."
// @Failure      403  {object}  utils.APIError "Forbidden: profile override without super-admin role."
// @Failure      404  {object}  utils.APIError "Not Found: no such profile."
// @Router       /configs/params [get]
func GetParamsHandler(c *gin.Context, store *db.Store, appConf *models.AppConfig, cfg *config.Config) {
	asset, timeframe, ok := queryConfigRef(c)
	if !ok {
		return
	}
	profile := resolveProfile(c, store, appConf)
	if profile == "" {
		return
	}

	doc := store.LoadProfileData(profile)
	c.JSON(http.StatusOK, db.GetParams(asset, timeframe, doc))
}

// SaveParamsHandler overwrites the strategy parameters for a configuration.
// @Summary      Save Strategy Parameters
// @Description  Replaces the parameter set for an (asset, timeframe) pair wholesale (no field-level merge), stamps last_modified and persists the document.
// @Tags         Configurations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        params body ParamsRequest true "Configuration and full parameter set."
// @Param        profile query string false "Profile to modify (super admin only)."
// @Success      200  {object}  map[string]string "Parameters saved."
// @Failure      400  {object}  utils.APIError "Bad Request: missing or malformed body."
// @Failure      401  {object}  utils.APIError "Unauthorized: missing or invalid session token."
// @Failure      403  {object}  utils.APIError "Forbidden: profile override without super-admin role."
// @Failure      404  {object}  utils.APIError "Not Found: no such profile."
// @Failure      500  {object}  utils.APIError "Internal Server Error: the document could not be persisted; treat the change as unconfirmed."
// @Router       /configs/params [put]
func SaveParamsHandler(c *gin.Context, store *db.Store, appConf *models.AppConfig, cfg *config.Config) {
	var req ParamsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	profile := resolveProfile(c, store, appConf)
	if profile == "" {
		return
	}

	doc := store.LoadProfileData(profile)
	doc = db.SaveParams(req.Asset, req.Timeframe, req.Params, doc)
	if err := store.SaveProfileData(profile, doc); err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to persist profile data: %v", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Parameters saved."})
}

// GetScreenshotsHandler lists the screenshots of a configuration.
// @Summary      List Screenshots
// @Description  Returns the stored screenshots for an (asset, timeframe) pair in insertion order, or an empty list. Each entry carries its upload timestamp, description, and the opaque image blob.
// @Tags         Configurations
// @Produce      json
// @Security     BearerAuth
// @Param        asset query string true "Asset symbol."
// @Param        timeframe query string true "Timeframe."
// @Param        profile query string false "Profile to inspect (super admin only)."
// @Success      200  {array}  models.Screenshot "Stored screenshots."
// @Failure      400  {object}  utils.APIError "Bad Request: missing asset or timeframe."
// @Failure      401  {object}  utils.APIError "Unauthorized: missing or invalid session token."
// @Failure      403  {object}  utils.APIError "Forbidden: profile override without super-admin role."
// @Failure      404  {object}  utils.APIError "Not Found: no such profile."
// @Router       /configs/screenshots [get]
func GetScreenshotsHandler(c *gin.Context, store *db.Store, appConf *models.AppConfig, cfg *config.Config) {
	asset, timeframe, ok := queryConfigRef(c)
	if !ok {
		return
	}
	profile := resolveProfile(c, store, appConf)
	if profile == "" {
		return
	}

	doc := store.LoadProfileData(profile)
	screenshots := db.GetScreenshots(asset, timeframe, doc)
	if screenshots == nil {
		screenshots = []models.Screenshot{}
	}
	c.JSON(http.StatusOK, screenshots)
}

// SaveScreenshotHandler uploads a screenshot for a configuration.
// @Summary      Upload a Screenshot
// @Description  Appends a screenshot to an (asset, timeframe) pair. At most 2 screenshots are kept per configuration: when the cap is reached the oldest entry is evicted first (FIFO by insertion order). The image must be supplied as base64 text; it is validated and stored as an opaque blob.
// @Tags         Configurations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        screenshot body ScreenshotRequest true "Configuration, description and base64 image data."
// @Param        profile query string false "Profile to modify (super admin only)."
// @Success      201  {object}  map[string]string "Screenshot stored."
// @Failure      400  {object}  utils.APIError "Bad Request: malformed body or image data that is not valid base64."
// @Failure      401  {object}  utils.APIError "Unauthorized: missing or invalid session token."
// @Failure      403  {object}  utils.APIError "Forbidden: profile override without super-admin role."
// @Failure      404  {object}  utils.APIError "Not Found: no such profile."
// @Failure      500  {object}  utils.APIError "Internal Server Error: the document could not be persisted; treat the change as unconfirmed."
// @Router       /configs/screenshots [post]
func SaveScreenshotHandler(c *gin.Context, store *db.Store, appConf *models.AppConfig, cfg *config.Config) {
	var req ScreenshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	profile := resolveProfile(c, store, appConf)
	if profile == "" {
		return
	}

	// Round-trip the blob through decode+encode so only material that can
	// be decoded for display ever reaches the store.
	raw, err := utils.DecodeImageBlob(req.ImageData)
	if err != nil {
		utils.GinBadRequest(c, "image_data must be valid base64.")
		return
	}
	blob := utils.EncodeImageBlob(raw)

	doc := store.LoadProfileData(profile)
	doc = db.SaveScreenshot(req.Asset, req.Timeframe, blob, req.Description, doc)
	if err := store.SaveProfileData(profile, doc); err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to persist profile data: %v", err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Screenshot stored."})
}

// DeleteScreenshotHandler removes one screenshot by index.
// @Summary      Delete a Screenshot
// @Description  Removes the screenshot at the given index (0-based, insertion order) for an (asset, timeframe) pair. An out-of-range index leaves the document unchanged and returns 404.
// @Tags         Configurations
// @Produce      json
// @Security     BearerAuth
// @Param        index path int true "Screenshot index (0-based)."
// @Param        asset query string true "Asset symbol."
// @Param        timeframe query string true "Timeframe."
// @Param        profile query string false "Profile to modify (super admin only)."
// @Success      200  {object}  map[string]string "Screenshot deleted."
// @Failure      400  {object}  utils.APIError "Bad Request: missing asset/timeframe or non-numeric index."
// @Failure      401  {object}  utils.APIError "Unauthorized: missing or invalid session token."
// @Failure      403  {object}  utils.APIError "Forbidden: profile override without super-admin role."
// @Failure      404  {object}  utils.APIError "Not Found: no such profile, configuration, or index."
// @Failure      500  {object}  utils.APIError "Internal Server Error: the document could not be persisted; treat the change as unconfirmed."
// @Router       /configs/screenshots/{index} [delete]
func DeleteScreenshotHandler(c *gin.Context, store *db.Store, appConf *models.AppConfig, cfg *config.Config) {
	asset, timeframe, ok := queryConfigRef(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		utils.GinBadRequest(c, "Screenshot index must be an integer.")
		return
	}
	profile := resolveProfile(c, store, appConf)
	if profile == "" {
		return
	}

	doc := store.LoadProfileData(profile)
	doc, deleted := db.DeleteScreenshot(asset, timeframe, index, doc)
	if !deleted {
		utils.GinNotFound(c, fmt.Sprintf("No screenshot at index %d for %s.", index, db.ConfigID(asset, timeframe)))
		return
	}
	if err := store.SaveProfileData(profile, doc); err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to persist profile data: %v", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Screenshot deleted."})
}
