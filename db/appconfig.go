package db

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"tradedash/models"
	"tradedash/utils"
)

// LoadOrInitConfig loads the app config document, creating it with defaults
// on first run. A loaded document missing default keys is healed in place
// and rewritten. A malformed file is logged and replaced in memory by the
// defaults (fail-open): the dashboard must stay usable even with a corrupted
// config, and the broken file is left on disk untouched until the next
// structural mutation rewrites it.
func (s *Store) LoadOrInitConfig() (*models.AppConfig, error) {
	s.configMu.Lock()
	defer s.configMu.Unlock()

	fileData, err := os.ReadFile(s.cfg.ConfigFilePath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("WARN: Failed to read app config file '%s': %v. Using defaults.", s.cfg.ConfigFilePath, err)
			conf := models.DefaultAppConfig()
			return &conf, nil
		}

		// First run: persist the defaults so every later load sees them.
		log.Printf("INFO: App config file '%s' not found. Creating it with defaults.", s.cfg.ConfigFilePath)
		conf := models.DefaultAppConfig()
		if err := s.writeConfigFile(&conf); err != nil {
			return nil, fmt.Errorf("failed to create initial app config: %w", err)
		}
		return &conf, nil
	}

	var conf models.AppConfig
	if err := json.Unmarshal(fileData, &conf); err != nil {
		log.Printf("ERROR: Failed to parse app config file '%s': %v. Using defaults.", s.cfg.ConfigFilePath, err)
		fresh := models.DefaultAppConfig()
		return &fresh, nil
	}

	// Heal keys that are present in the defaults but absent in the file.
	dirty := false
	if conf.Profiles == nil {
		conf.Profiles = models.DefaultAppConfig().Profiles
		dirty = true
	}
	if dirty {
		log.Printf("INFO: App config was missing default keys. Rewriting '%s'.", s.cfg.ConfigFilePath)
		if err := s.writeConfigFile(&conf); err != nil {
			log.Printf("WARN: Failed to rewrite healed app config: %v", err)
		}
	}

	log.Printf("INFO: Loaded app config from %s. Profiles: %d", s.cfg.ConfigFilePath, len(conf.Profiles))
	return &conf, nil
}

// SaveConfig rewrites the whole app config file. Every registry mutation
// must call this immediately; there is no partial update.
func (s *Store) SaveConfig(conf *models.AppConfig) error {
	s.configMu.Lock()
	defer s.configMu.Unlock()
	return s.writeConfigFile(conf)
}

// writeConfigFile serializes and atomically replaces the config file.
// Callers must hold configMu.
func (s *Store) writeConfigFile(conf *models.AppConfig) error {
	jsonData, err := json.MarshalIndent(conf, "", "  ")
	if err != nil {
		log.Printf("ERROR: Failed to marshal app config: %v", err)
		return err
	}

	dir := filepath.Dir(s.cfg.ConfigFilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("ERROR: Failed to create config directory '%s': %v", dir, err)
		return err
	}

	// Write to a temporary file first, then rename into place so a failed
	// write never truncates the existing document.
	tempFilePath := s.cfg.ConfigFilePath + ".tmp"
	if err := os.WriteFile(tempFilePath, jsonData, 0644); err != nil {
		log.Printf("ERROR: Failed to write temporary config file '%s': %v", tempFilePath, err)
		return err
	}
	if err := os.Rename(tempFilePath, s.cfg.ConfigFilePath); err != nil {
		log.Printf("ERROR: Failed to rename '%s' to '%s': %v", tempFilePath, s.cfg.ConfigFilePath, err)
		_ = os.Remove(tempFilePath)
		return err
	}

	return nil
}

// SetAdminPassword hashes the given password with a fresh salt, stores the
// credential in conf and persists the whole config document. A failed
// write restores the previous credential.
func (s *Store) SetAdminPassword(password string, conf *models.AppConfig) error {
	hash, salt, err := utils.HashPassword(password, "")
	if err != nil {
		return err
	}

	s.configMu.Lock()
	defer s.configMu.Unlock()
	previousHash, previousSalt := conf.SuperAdminHash, conf.SuperAdminSalt
	conf.SuperAdminHash = hash
	conf.SuperAdminSalt = salt
	if err := s.writeConfigFile(conf); err != nil {
		conf.SuperAdminHash, conf.SuperAdminSalt = previousHash, previousSalt
		return err
	}
	log.Printf("INFO: Super admin password updated.")
	return nil
}

// AdminConfigured reports whether a super-admin credential is stored.
func (s *Store) AdminConfigured(conf *models.AppConfig) bool {
	s.configMu.RLock()
	defer s.configMu.RUnlock()
	return conf.SuperAdminHash != ""
}

// VerifyAdmin checks a password against the configured super-admin
// credential. Always false when no credential is configured.
func (s *Store) VerifyAdmin(password string, conf *models.AppConfig) bool {
	s.configMu.RLock()
	hash, salt := conf.SuperAdminHash, conf.SuperAdminSalt
	s.configMu.RUnlock()

	if hash == "" || salt == "" {
		return false
	}
	return utils.VerifyPassword(password, hash, salt)
}

// CurrentProfile returns the advisory last-selected profile name.
func (s *Store) CurrentProfile(conf *models.AppConfig) string {
	s.configMu.RLock()
	defer s.configMu.RUnlock()
	return conf.CurrentProfile
}

// SetCurrentProfile records the last selected profile. Advisory only: a
// failed write is logged but does not fail the login that triggered it.
func (s *Store) SetCurrentProfile(name string, conf *models.AppConfig) {
	s.configMu.Lock()
	conf.CurrentProfile = name
	err := s.writeConfigFile(conf)
	s.configMu.Unlock()

	if err != nil {
		log.Printf("WARN: Failed to persist current profile '%s': %v", name, err)
	}
}
