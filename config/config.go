package config

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all process-level settings for the application.
type Config struct {
	// Server settings
	ListenAddress string
	ListenPort    string

	// Storage settings
	ConfigFilePath string // Path to the app config JSON document
	ProfilesDir    string // Directory holding per-profile JSON documents

	// Authentication settings
	JwtSecret     string // The actual secret key
	JwtSecretFile string // Path to the file containing the secret
	TokenLifetime time.Duration
}

const (
	defaultAddress        = "0.0.0.0"
	defaultPort           = "8080"
	defaultConfigFile     = "./data/app_config.json" // Relative to working dir
	defaultProfilesDir    = "./data/profiles"
	defaultJwtSecretFile  = "" // No default file
	defaultJwtKeyFile     = "./tradedash.key" // Default file if we generate a key
	defaultTokenLifetime  = 12 * time.Hour
)

// LoadConfig loads configuration from defaults, environment variables, and
// command-line flags. Flags take precedence over environment variables,
// which take precedence over defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	// Use TRADEDASH_ prefix for environment variables to avoid conflicts.
	flag.StringVar(&cfg.ListenAddress, "address", getEnv("TRADEDASH_LISTEN_ADDRESS", defaultAddress), "Server listen address (Env: TRADEDASH_LISTEN_ADDRESS)")
	flag.StringVar(&cfg.ListenPort, "port", defaultPort, "Server listen port (Env: TRADEDASH_LISTEN_PORT)")
	flag.StringVar(&cfg.ConfigFilePath, "config-file", getEnv("TRADEDASH_CONFIG_FILE", defaultConfigFile), "Path to the app config JSON file (Env: TRADEDASH_CONFIG_FILE)")
	flag.StringVar(&cfg.ProfilesDir, "profiles-dir", getEnv("TRADEDASH_PROFILES_DIR", defaultProfilesDir), "Directory for per-profile JSON files (Env: TRADEDASH_PROFILES_DIR)")
	flag.StringVar(&cfg.JwtSecretFile, "jwt-secret-file", getEnv("TRADEDASH_JWT_SECRET_FILE", defaultJwtSecretFile), "Path to file containing the JWT secret key (overrides TRADEDASH_JWT_SECRET env var) (Env: TRADEDASH_JWT_SECRET_FILE)")

	// Non-configurable defaults
	cfg.TokenLifetime = defaultTokenLifetime

	flag.Parse()

	// Explicitly check environment variables for flags that could not embed
	// the env default at definition time, so env still overrides defaults
	// when the flag was not provided.
	envPort := getEnv("TRADEDASH_LISTEN_PORT", "")
	if cfg.ListenPort == defaultPort && envPort != "" {
		cfg.ListenPort = envPort
	}

	// --- JWT Secret Handling ---
	// Priority: File (CLI/Env) > Env Var > Default Key File > Generate
	var secretSource string

	// 1. Check explicit file path
	if cfg.JwtSecretFile != "" {
		secretBytes, err := os.ReadFile(cfg.JwtSecretFile)
		if err == nil {
			cfg.JwtSecret = strings.TrimSpace(string(secretBytes))
			if cfg.JwtSecret != "" {
				log.Printf("INFO: Loaded JWT secret from specified file: %s", cfg.JwtSecretFile)
				secretSource = fmt.Sprintf("File (%s)", cfg.JwtSecretFile)
			} else {
				log.Printf("WARN: Specified JWT secret file '%s' is empty. Ignoring.", cfg.JwtSecretFile)
			}
		} else {
			log.Printf("WARN: Failed to read specified JWT secret file '%s': %v. Checking other sources.", cfg.JwtSecretFile, err)
		}
	}

	// 2. Check environment variable
	if cfg.JwtSecret == "" {
		cfg.JwtSecret = strings.TrimSpace(getEnv("TRADEDASH_JWT_SECRET", ""))
		if cfg.JwtSecret != "" {
			log.Printf("INFO: Loaded JWT secret from TRADEDASH_JWT_SECRET environment variable.")
			secretSource = "Environment Variable (TRADEDASH_JWT_SECRET)"
		}
	}

	// 3. Check default key file
	if cfg.JwtSecret == "" {
		secretBytes, err := os.ReadFile(defaultJwtKeyFile)
		if err == nil {
			cfg.JwtSecret = strings.TrimSpace(string(secretBytes))
			if cfg.JwtSecret != "" {
				log.Printf("INFO: Loaded JWT secret from default key file: %s", defaultJwtKeyFile)
				secretSource = fmt.Sprintf("Default Key File (%s)", defaultJwtKeyFile)
			}
		} else if !os.IsNotExist(err) {
			log.Printf("WARN: Failed to read default JWT key file '%s': %v. Will attempt generation.", defaultJwtKeyFile, err)
		}
	}

	// 4. Generate secret and save to the default key file
	if cfg.JwtSecret == "" {
		log.Printf("INFO: No JWT secret found. Generating a new secret...")
		newSecret, err := generateRandomKey(32) // 256-bit key
		if err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		cfg.JwtSecret = newSecret

		if err := os.WriteFile(defaultJwtKeyFile, []byte(newSecret), 0600); err != nil {
			// The server can still run with the in-memory key this session.
			log.Printf("WARN: Failed to save generated JWT secret to '%s': %v. Using it for this session only.", defaultJwtKeyFile, err)
			secretSource = "Generated (In Memory)"
		} else {
			log.Printf("INFO: Generated and saved new JWT secret to: %s", defaultJwtKeyFile)
			secretSource = fmt.Sprintf("Generated & Saved (%s)", defaultJwtKeyFile)
		}
	}

	if cfg.JwtSecret == "" {
		return nil, fmt.Errorf("failed to obtain a valid JWT secret after checking all sources")
	}

	// --- Path Validation ---
	absConfigPath, err := filepath.Abs(cfg.ConfigFilePath)
	if err != nil {
		return nil, fmt.Errorf("could not determine absolute path for config-file '%s': %w", cfg.ConfigFilePath, err)
	}
	cfg.ConfigFilePath = absConfigPath

	if fileInfo, err := os.Stat(cfg.ConfigFilePath); err == nil && fileInfo.IsDir() {
		return nil, fmt.Errorf("config path '%s' points to a directory, not a file", cfg.ConfigFilePath)
	}

	absProfilesDir, err := filepath.Abs(cfg.ProfilesDir)
	if err != nil {
		return nil, fmt.Errorf("could not determine absolute path for profiles-dir '%s': %w", cfg.ProfilesDir, err)
	}
	cfg.ProfilesDir = absProfilesDir

	if fileInfo, err := os.Stat(cfg.ProfilesDir); err == nil && !fileInfo.IsDir() {
		return nil, fmt.Errorf("profiles directory '%s' points to a file, not a directory", cfg.ProfilesDir)
	}

	logConfiguration(cfg, secretSource)

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// logConfiguration prints the loaded configuration settings.
func logConfiguration(cfg *Config, secretSource string) {
	log.Println("--- Configuration ---")
	log.Printf("Server Address: %s", cfg.ListenAddress)
	log.Printf("Server Port: %s", cfg.ListenPort)
	log.Printf("App Config File: %s", cfg.ConfigFilePath)
	log.Printf("Profiles Directory: %s", cfg.ProfilesDir)
	log.Printf("JWT Secret Source: %s", secretSource)
	log.Printf("JWT Token Lifetime: %s", cfg.TokenLifetime)
	log.Println("---------------------")
}

// generateRandomKey generates a cryptographically secure random key of the
// specified byte length and returns it as a hex-encoded string.
func generateRandomKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
