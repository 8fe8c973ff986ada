package main

import (
	"fmt"
	"log"
	"net/http"

	"tradedash/api"
	"tradedash/config"
	"tradedash/db"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"     // swagger embed files
	ginSwagger "github.com/swaggo/gin-swagger" // gin-swagger middleware
)

// @title           TradeDash API
// @version         1.0.0

// @description     ## TradeDash API
// @description
// @description     **Purpose:** Backend for a single-user trading dashboard that tracks which asset/timeframe strategy configurations have been tested or improved, with notes, strategy parameters, and a capped screenshot list per configuration.
// @description
// @description     **High-Level Overview:**
// @description     TradeDash lets traders:
// @description     *   Manage named profiles, each backed by its own JSON document on disk.
// @description     *   Log into a profile (name selection) or as super admin (password) to get a session token.
// @description     *   Toggle tested/improved flags, edit notes and strategy parameters, and attach up to 2 screenshots per (asset, timeframe) pair.
// @description     *   Export and import profile documents as JSON, and read summary statistics per profile.
// @description
// @description     All state lives in small JSON documents that are read and rewritten wholesale on every mutation. There is no multi-writer coordination: the last save wins.

// @license.name  MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.jwt BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("CRITICAL: Failed to load configuration: %v", err)
	}

	// --- Stores ---
	store := db.NewStore(cfg)
	appConf, err := store.LoadOrInitConfig()
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize app config: %v", err)
	}

	// --- Gin Router Setup ---
	// gin.Default() attaches the Logger and Recovery middleware.
	router := gin.Default()

	api.RegisterRoutes(router, store, appConf, cfg)

	// --- Swagger Route ---
	// Serve the generated spec (run `swag init` to regenerate ./docs) and
	// the UI that renders it.
	router.StaticFS("/docs", http.Dir("docs"))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.json")))

	// --- Start Server ---
	listenAddr := fmt.Sprintf("%s:%s", cfg.ListenAddress, cfg.ListenPort)
	log.Printf("INFO: Starting server on %s", listenAddr)

	server := &http.Server{
		Addr:    listenAddr,
		Handler: router,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("CRITICAL: Server failed to start: %v", err)
	}
}
