package db

import (
	"fmt"
	"log"
	"os"
	"regexp"

	"tradedash/models"
)

// Profile names become file names, so restrict them to a safe character
// set. This keeps ProfilePath injective and traversal-free.
var validProfileName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _-]*$`)

func validateProfileName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidProfileName)
	}
	if !validProfileName.MatchString(name) {
		return fmt.Errorf("%w: '%s' contains unsupported characters", ErrInvalidProfileName, name)
	}
	return nil
}

// listProfiles copies the registry. Caller must hold configMu.
func listProfiles(conf *models.AppConfig) []string {
	if conf.Profiles == nil {
		return []string{}
	}
	names := make([]string, len(conf.Profiles))
	copy(names, conf.Profiles)
	return names
}

// profileExists reports whether a name is registered. Caller must hold
// configMu.
func profileExists(name string, conf *models.AppConfig) bool {
	for _, existing := range conf.Profiles {
		if existing == name {
			return true
		}
	}
	return false
}

// ListProfiles returns a copy of the registered profile names. The app
// config registry is the source of truth; the profiles directory is never
// scanned.
func (s *Store) ListProfiles(conf *models.AppConfig) []string {
	s.configMu.RLock()
	defer s.configMu.RUnlock()
	return listProfiles(conf)
}

// ProfileExists reports whether a name is in the registry.
func (s *Store) ProfileExists(name string, conf *models.AppConfig) bool {
	s.configMu.RLock()
	defer s.configMu.RUnlock()
	return profileExists(name, conf)
}

// PrimaryProfile returns the first registered profile, the one admin
// sessions are bound to. Falls back to the default profile name when the
// registry is empty.
func (s *Store) PrimaryProfile(conf *models.AppConfig) string {
	s.configMu.RLock()
	defer s.configMu.RUnlock()
	if len(conf.Profiles) > 0 {
		return conf.Profiles[0]
	}
	return models.DefaultProfile
}

// CreateProfile registers a new profile and creates its empty document
// file. Fail-closed: validation or persistence failures leave the registry
// unchanged.
func (s *Store) CreateProfile(name string, conf *models.AppConfig) error {
	if err := validateProfileName(name); err != nil {
		return err
	}

	s.configMu.Lock()
	if profileExists(name, conf) {
		s.configMu.Unlock()
		return fmt.Errorf("%w: '%s'", ErrDuplicateProfile, name)
	}
	previous := conf.Profiles
	conf.Profiles = append(append([]string{}, conf.Profiles...), name)
	if err := s.writeConfigFile(conf); err != nil {
		conf.Profiles = previous
		s.configMu.Unlock()
		return fmt.Errorf("failed to persist profile registry: %w", err)
	}
	s.configMu.Unlock()

	// An empty document so the profile is immediately loadable.
	if err := s.SaveProfileData(name, models.ProfileDocument{}); err != nil {
		log.Printf("WARN: Profile '%s' registered but its document file could not be created: %v", name, err)
		return err
	}

	log.Printf("INFO: Created profile '%s'", name)
	return nil
}

// DeleteProfile removes a profile from the registry and deletes its
// document file. The default profile is protected; a missing document file
// is not an error.
func (s *Store) DeleteProfile(name string, conf *models.AppConfig) error {
	if name == models.DefaultProfile {
		return ErrProtectedProfile
	}

	s.configMu.Lock()
	if !profileExists(name, conf) {
		s.configMu.Unlock()
		return fmt.Errorf("%w: '%s'", ErrProfileNotFound, name)
	}

	previous := conf.Profiles
	previousCurrent := conf.CurrentProfile
	remaining := make([]string, 0, len(conf.Profiles)-1)
	for _, existing := range conf.Profiles {
		if existing != name {
			remaining = append(remaining, existing)
		}
	}
	conf.Profiles = remaining
	if conf.CurrentProfile == name {
		conf.CurrentProfile = ""
	}
	if err := s.writeConfigFile(conf); err != nil {
		conf.Profiles = previous
		conf.CurrentProfile = previousCurrent
		s.configMu.Unlock()
		return fmt.Errorf("failed to persist profile registry: %w", err)
	}
	s.configMu.Unlock()

	if err := os.Remove(s.ProfilePath(name)); err != nil && !os.IsNotExist(err) {
		log.Printf("WARN: Profile '%s' unregistered but its document file could not be removed: %v", name, err)
	}

	log.Printf("INFO: Deleted profile '%s'", name)
	return nil
}
