package api

import (
	"fmt"
	"net/http"

	"tradedash/config"
	"tradedash/db"
	"tradedash/models"
	"tradedash/utils"

	"github.com/gin-gonic/gin"
)

// LoginRequest selects an existing profile to work in. Profiles themselves
// are not password protected; only the super-admin role is.
type LoginRequest struct {
	Profile string `json:"profile" binding:"required"`
}

// LoginResponse carries the session token issued at login.
type LoginResponse struct {
	Token      string `json:"token"`
	Profile    string `json:"profile"`
	SuperAdmin bool   `json:"super_admin"`
}

// AdminLoginRequest authenticates the super-admin role.
type AdminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// LoginHandler starts a session for an existing profile.
// @Summary      Log In With a Profile
// @Description  Selects one of the registered profiles and returns a session token bound to it. Profiles are name-selection only; no password is required. The selected profile is recorded as the advisory "current profile" in the app config.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login body LoginRequest true "Profile to select."
// @Success      200  {object}  LoginResponse "Session started. Use the token as 'Bearer {token}' in the Authorization header."
// @Failure      400  {object}  utils.APIError "Bad Request: missing or malformed body."
// @Failure      404  {object}  utils.APIError "Not Found: no such profile is registered."
// @Router       /auth/login [post]
func LoginHandler(c *gin.Context, store *db.Store, appConf *models.AppConfig, cfg *config.Config) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if !store.ProfileExists(req.Profile, appConf) {
		utils.GinNotFound(c, fmt.Sprintf("Profile '%s' does not exist.", req.Profile))
		return
	}

	token, err := utils.GenerateSessionToken(req.Profile, false, cfg)
	if err != nil {
		utils.GinInternalServerError(c, "Failed to create session token.")
		return
	}

	store.SetCurrentProfile(req.Profile, appConf)

	c.JSON(http.StatusOK, LoginResponse{Token: token, Profile: req.Profile, SuperAdmin: false})
}

// AdminLoginHandler starts a super-admin session.
// @Summary      Log In as Super Admin
// @Description  Verifies the super-admin password and returns an elevated session token. The session is bound to the first registered profile (the default profile); admin requests may inspect any other profile explicitly. Fails when the admin credential has never been configured.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login body AdminLoginRequest true "Super admin password."
// @Success      200  {object}  LoginResponse "Elevated session started."
// @Failure      400  {object}  utils.APIError "Bad Request: missing or malformed body."
// @Failure      401  {object}  utils.APIError "Unauthorized: wrong password, or the admin role is not configured."
// @Router       /auth/admin/login [post]
func AdminLoginHandler(c *gin.Context, store *db.Store, appConf *models.AppConfig, cfg *config.Config) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if !store.VerifyAdmin(req.Password, appConf) {
		utils.GinUnauthorized(c, "Incorrect or unconfigured admin password.")
		return
	}

	profile := store.PrimaryProfile(appConf)

	token, err := utils.GenerateSessionToken(profile, true, cfg)
	if err != nil {
		utils.GinInternalServerError(c, "Failed to create session token.")
		return
	}

	store.SetCurrentProfile(profile, appConf)

	c.JSON(http.StatusOK, LoginResponse{Token: token, Profile: profile, SuperAdmin: true})
}

// AdminSetupHandler configures the super-admin password on first use.
// @Summary      Configure the Super Admin Password
// @Description  Sets the super-admin password when none is configured yet, persists the credential in the app config, and returns an elevated session token. Once a password exists this endpoint refuses to overwrite it; use the password-change endpoint with an admin session instead.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        setup body AdminLoginRequest true "Password to configure."
// @Success      200  {object}  LoginResponse "Admin credential configured, elevated session started."
// @Failure      400  {object}  utils.APIError "Bad Request: missing or malformed body."
// @Failure      409  {object}  utils.APIError "Conflict: an admin password is already configured."
// @Failure      500  {object}  utils.APIError "Internal Server Error: the credential could not be persisted."
// @Router       /auth/admin/setup [post]
func AdminSetupHandler(c *gin.Context, store *db.Store, appConf *models.AppConfig, cfg *config.Config) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if store.AdminConfigured(appConf) {
		utils.GinError(c, http.StatusConflict, "An admin password is already configured.")
		return
	}

	if err := store.SetAdminPassword(req.Password, appConf); err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to store admin credential: %v", err))
		return
	}

	profile := store.PrimaryProfile(appConf)

	token, err := utils.GenerateSessionToken(profile, true, cfg)
	if err != nil {
		utils.GinInternalServerError(c, "Failed to create session token.")
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: token, Profile: profile, SuperAdmin: true})
}

// ChangeAdminPasswordHandler rotates the super-admin password.
// @Summary      Change the Super Admin Password
// @Description  Replaces the configured super-admin credential. Requires an elevated session.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        password body AdminLoginRequest true "New password."
// @Success      200  {object}  map[string]string "Password updated."
// @Failure      400  {object}  utils.APIError "Bad Request: missing or malformed body."
// @Failure      401  {object}  utils.APIError "Unauthorized: missing or invalid session token."
// @Failure      403  {object}  utils.APIError "Forbidden: session is not super-admin."
// @Failure      500  {object}  utils.APIError "Internal Server Error: the credential could not be persisted."
// @Router       /auth/admin/password [post]
func ChangeAdminPasswordHandler(c *gin.Context, store *db.Store, appConf *models.AppConfig, cfg *config.Config) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := store.SetAdminPassword(req.Password, appConf); err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to store admin credential: %v", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Admin password updated."})
}

// LogoutHandler ends the current session.
// @Summary      Log Out
// @Description  Ends the session. Tokens are stateless, so this is advisory: the client must discard the token. Provided so the UI flow (created at login, destroyed at logout) has an explicit endpoint.
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string "Logged out."
// @Failure      401  {object}  utils.APIError "Unauthorized: missing or invalid session token."
// @Router       /auth/logout [post]
func LogoutHandler(c *gin.Context, store *db.Store, appConf *models.AppConfig, cfg *config.Config) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out. Discard the session token."})
}
