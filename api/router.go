package api

import (
	"tradedash/config"
	"tradedash/db"
	"tradedash/models"
	"tradedash/utils"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires every API route onto the router. Shared between
// main.go and the handler tests so both always exercise the same routing.
func RegisterRoutes(router *gin.Engine, store *db.Store, appConf *models.AppConfig, cfg *config.Config) {
	authMiddleware := utils.AuthMiddleware(cfg)

	// Public routes
	router.GET("/catalog", CatalogHandler)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", func(c *gin.Context) {
			LoginHandler(c, store, appConf, cfg)
		})
		authGroup.POST("/admin/login", func(c *gin.Context) {
			AdminLoginHandler(c, store, appConf, cfg)
		})
		authGroup.POST("/admin/setup", func(c *gin.Context) {
			AdminSetupHandler(c, store, appConf, cfg)
		})
		authGroup.POST("/admin/password", authMiddleware, utils.AdminOnly(), func(c *gin.Context) {
			ChangeAdminPasswordHandler(c, store, appConf, cfg)
		})
		authGroup.POST("/logout", authMiddleware, func(c *gin.Context) {
			LogoutHandler(c, store, appConf, cfg)
		})
	}

	// Profile lifecycle. Creation is public (the login screen offers
	// "create and log in"); deletion is admin only.
	profileGroup := router.Group("/profiles")
	{
		profileGroup.POST("", func(c *gin.Context) {
			CreateProfileHandler(c, store, appConf, cfg)
		})
		profileGroup.GET("", authMiddleware, func(c *gin.Context) {
			ListProfilesHandler(c, store, appConf, cfg)
		})
		profileGroup.DELETE("/:name", authMiddleware, utils.AdminOnly(), func(c *gin.Context) {
			DeleteProfileHandler(c, store, appConf, cfg)
		})
		profileGroup.GET("/:name/stats", authMiddleware, func(c *gin.Context) {
			ProfileStatsHandler(c, store, appConf, cfg)
		})
		profileGroup.GET("/:name/export", authMiddleware, func(c *gin.Context) {
			ExportProfileHandler(c, store, appConf, cfg)
		})
		profileGroup.POST("/:name/import", authMiddleware, func(c *gin.Context) {
			ImportProfileHandler(c, store, appConf, cfg)
		})
	}

	// Per-configuration routes. Asset and timeframe travel as query
	// parameters or body fields because asset symbols contain slashes.
	configGroup := router.Group("/configs")
	configGroup.Use(authMiddleware)
	{
		configGroup.GET("/status", func(c *gin.Context) {
			GetConfigStatusHandler(c, store, appConf, cfg)
		})
		configGroup.POST("/toggle-tested", func(c *gin.Context) {
			ToggleTestedHandler(c, store, appConf, cfg)
		})
		configGroup.POST("/toggle-improved", func(c *gin.Context) {
			ToggleImprovedHandler(c, store, appConf, cfg)
		})
		configGroup.GET("/note", func(c *gin.Context) {
			GetNoteHandler(c, store, appConf, cfg)
		})
		configGroup.PUT("/note", func(c *gin.Context) {
			SaveNoteHandler(c, store, appConf, cfg)
		})
		configGroup.GET("/params", func(c *gin.Context) {
			GetParamsHandler(c, store, appConf, cfg)
		})
		configGroup.PUT("/params", func(c *gin.Context) {
			SaveParamsHandler(c, store, appConf, cfg)
		})
		configGroup.GET("/screenshots", func(c *gin.Context) {
			GetScreenshotsHandler(c, store, appConf, cfg)
		})
		configGroup.POST("/screenshots", func(c *gin.Context) {
			SaveScreenshotHandler(c, store, appConf, cfg)
		})
		configGroup.DELETE("/screenshots/:index", func(c *gin.Context) {
			DeleteScreenshotHandler(c, store, appConf, cfg)
		})
	}
}
