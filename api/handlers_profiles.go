package api

import (
	"errors"
	"fmt"
	"net/http"

	"tradedash/config"
	"tradedash/db"
	"tradedash/models"
	"tradedash/utils"

	"github.com/gin-gonic/gin"
)

// CreateProfileRequest registers a new profile.
type CreateProfileRequest struct {
	Name string `json:"name" binding:"required"`
}

// ImportRequest carries a profile document to import.
type ImportRequest struct {
	Data  string `json:"data" binding:"required"` // JSON text matching the profile document shape
	Merge bool   `json:"merge"`                   // Key-level replace into the existing document instead of wholesale replace
}

// ProfileListResponse is the registry listing.
type ProfileListResponse struct {
	Profiles       []string `json:"profiles"`
	CurrentProfile string   `json:"current_profile,omitempty"`
}

// canAccessProfile checks that the session may read or write the named
// profile: either it is the session's own profile or the session is
// super-admin.
func canAccessProfile(c *gin.Context, name string) bool {
	return utils.SessionProfile(c) == name || utils.IsSuperAdmin(c)
}

// ListProfilesHandler returns the registered profiles.
// @Summary      List Profiles
// @Description  Returns every profile name in the registry, in creation order, plus the advisory last-selected profile. The registry in the app config is the source of truth; the profiles directory is never scanned.
// @Tags         Profiles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ProfileListResponse "Registered profile names."
// @Failure      401  {object}  utils.APIError "Unauthorized: missing or invalid session token."
// @Router       /profiles [get]
func ListProfilesHandler(c *gin.Context, store *db.Store, appConf *models.AppConfig, cfg *config.Config) {
	c.JSON(http.StatusOK, ProfileListResponse{
		Profiles:       store.ListProfiles(appConf),
		CurrentProfile: store.CurrentProfile(appConf),
	})
}

// CreateProfileHandler registers a new profile and logs into it.
// @Summary      Create a Profile
// @Description  Registers a new profile name, persists the registry, creates the profile's empty document file, and returns a session token for the new profile (mirroring the create-and-log-in flow of the dashboard login screen).
// @Tags         Profiles
// @Accept       json
// @Produce      json
// @Param        profile body CreateProfileRequest true "Profile name. Letters, digits, spaces, '_' and '-' only."
// @Success      201  {object}  LoginResponse "Profile created, session started."
// @Failure      400  {object}  utils.APIError "Bad Request: empty or invalid profile name."
// @Failure      409  {object}  utils.APIError "Conflict: a profile with this name already exists."
// @Failure      500  {object}  utils.APIError "Internal Server Error: the registry or document file could not be written."
// @Router       /profiles [post]
func CreateProfileHandler(c *gin.Context, store *db.Store, appConf *models.AppConfig, cfg *config.Config) {
	var req CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := store.CreateProfile(req.Name, appConf); err != nil {
		switch {
		case errors.Is(err, db.ErrInvalidProfileName):
			utils.GinBadRequest(c, err.Error())
		case errors.Is(err, db.ErrDuplicateProfile):
			utils.GinError(c, http.StatusConflict, err.Error())
		default:
			utils.GinInternalServerError(c, fmt.Sprintf("Failed to create profile: %v", err))
		}
		return
	}

	token, err := utils.GenerateSessionToken(req.Name, false, cfg)
	if err != nil {
		utils.GinInternalServerError(c, "Profile created but session token generation failed.")
		return
	}

	store.SetCurrentProfile(req.Name, appConf)

	c.JSON(http.StatusCreated, LoginResponse{Token: token, Profile: req.Name, SuperAdmin: false})
}

// DeleteProfileHandler removes a profile.
// @Summary      Delete a Profile
// @Description  Unregisters a profile and deletes its document file. The default profile is protected and cannot be deleted. A missing document file is not an error. Requires an elevated session.
// @Tags         Profiles
// @Produce      json
// @Security     BearerAuth
// @Param        name path string true "Profile name."
// @Success      200  {object}  map[string]string "Profile deleted."
// @Failure      401  {object}  utils.APIError "Unauthorized: missing or invalid session token."
// @Failure      403  {object}  utils.APIError "Forbidden: session is not super-admin, or the profile is protected."
// @Failure      404  {object}  utils.APIError "Not Found: no such profile."
// @Failure      500  {object}  utils.APIError "Internal Server Error: the registry could not be persisted."
// @Router       /profiles/{name} [delete]
func DeleteProfileHandler(c *gin.Context, store *db.Store, appConf *models.AppConfig, cfg *config.Config) {
	name := c.Param("name")

	if err := store.DeleteProfile(name, appConf); err != nil {
		switch {
		case errors.Is(err, db.ErrProtectedProfile):
			utils.GinForbidden(c, err.Error())
		case errors.Is(err, db.ErrProfileNotFound):
			utils.GinNotFound(c, err.Error())
		default:
			utils.GinInternalServerError(c, fmt.Sprintf("Failed to delete profile: %v", err))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Profile '%s' deleted.", name)})
}

// ProfileStatsHandler computes dashboard statistics for a profile.
// @Summary      Get Profile Statistics
// @Description  Loads the profile's document fresh from disk and returns summary counts and percentages (configurations tested, improved, with notes, with screenshots). An empty document yields zero counts and 0.0 percentages. Sessions may read their own profile; super-admin sessions may read any profile.
// @Tags         Profiles
// @Produce      json
// @Security     BearerAuth
// @Param        name path string true "Profile name."
// @Success      200  {object}  models.ProfileStats "Summary statistics."
// @Failure      401  {object}  utils.APIError "Unauthorized: missing or invalid session token."
// @Failure      403  {object}  utils.APIError "Forbidden: the session may not inspect this profile."
// @Failure      404  {object}  utils.APIError "Not Found: no such profile."
// @Router       /profiles/{name}/stats [get]
func ProfileStatsHandler(c *gin.Context, store *db.Store, appConf *models.AppConfig, cfg *config.Config) {
	name := c.Param("name")

	if !canAccessProfile(c, name) {
		utils.GinForbidden(c, "You may only inspect your own profile.")
		return
	}
	if !store.ProfileExists(name, appConf) {
		utils.GinNotFound(c, fmt.Sprintf("Profile '%s' does not exist.", name))
		return
	}

	// Always a fresh load: an admin switching between profiles must never
	// see a stale in-memory copy.
	doc := store.LoadProfileData(name)
	c.JSON(http.StatusOK, db.ComputeProfileStats(doc))
}

// ExportProfileHandler serializes a profile document for download.
// @Summary      Export a Profile Document
// @Description  Returns the profile's document as JSON, verbatim from the store, with an attachment filename of '{name}_export.json'. Sessions may export their own profile; super-admin sessions may export any profile.
// @Tags         Profiles
// @Produce      json
// @Security     BearerAuth
// @Param        name path string true "Profile name."
// @Success      200  {object}  models.ProfileDocument "The profile document."
// @Failure      401  {object}  utils.APIError "Unauthorized: missing or invalid session token."
// @Failure      403  {object}  utils.APIError "Forbidden: the session may not export this profile."
// @Failure      404  {object}  utils.APIError "Not Found: no such profile."
// @Failure      500  {object}  utils.APIError "Internal Server Error: the document could not be serialized."
// @Router       /profiles/{name}/export [get]
func ExportProfileHandler(c *gin.Context, store *db.Store, appConf *models.AppConfig, cfg *config.Config) {
	name := c.Param("name")

	if !canAccessProfile(c, name) {
		utils.GinForbidden(c, "You may only export your own profile.")
		return
	}
	if !store.ProfileExists(name, appConf) {
		utils.GinNotFound(c, fmt.Sprintf("Profile '%s' does not exist.", name))
		return
	}

	exported, err := store.ExportProfileData(name)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to export profile: %v", err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_export.json", name))
	c.Data(http.StatusOK, "application/json", []byte(exported))
}

// ImportProfileHandler replaces or merges a profile document.
// @Summary      Import a Profile Document
// @Description  Parses the supplied JSON and persists it as the profile's document. The payload must be an object mapping config IDs to record objects; anything else is rejected and the stored document is left untouched. With merge=true, keys present in the import replace existing keys (key-level replace, not a deep merge); otherwise the document is replaced wholesale.
// @Tags         Profiles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        name path string true "Profile name."
// @Param        payload body ImportRequest true "Document JSON and merge flag."
// @Success      200  {object}  map[string]string "Import persisted."
// @Failure      400  {object}  utils.APIError "Bad Request: malformed body or malformed document payload."
// @Failure      401  {object}  utils.APIError "Unauthorized: missing or invalid session token."
// @Failure      403  {object}  utils.APIError "Forbidden: the session may not modify this profile."
// @Failure      404  {object}  utils.APIError "Not Found: no such profile."
// @Failure      500  {object}  utils.APIError "Internal Server Error: the document could not be persisted."
// @Router       /profiles/{name}/import [post]
func ImportProfileHandler(c *gin.Context, store *db.Store, appConf *models.AppConfig, cfg *config.Config) {
	name := c.Param("name")

	if !canAccessProfile(c, name) {
		utils.GinForbidden(c, "You may only import into your own profile.")
		return
	}
	if !store.ProfileExists(name, appConf) {
		utils.GinNotFound(c, fmt.Sprintf("Profile '%s' does not exist.", name))
		return
	}

	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := store.ImportProfileData(name, req.Data, req.Merge); err != nil {
		if errors.Is(err, db.ErrMalformedImport) {
			utils.GinBadRequest(c, err.Error())
		} else {
			utils.GinInternalServerError(c, fmt.Sprintf("Failed to import profile data: %v", err))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Data imported into profile '%s'.", name)})
}

// CatalogHandler returns the asset and timeframe catalog.
// @Summary      Get the Asset Catalog
// @Description  Returns the asset categories (crypto, forex, indices) and the available timeframes the dashboard tracks configurations for.
// @Tags         Catalog
// @Produce      json
// @Success      200  {object}  map[string]any "Asset categories and timeframes."
// @Router       /catalog [get]
func CatalogHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"asset_categories": models.AssetCategories,
		"timeframes":       models.Timeframes,
	})
}
