package db

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"tradedash/models"

	"github.com/tidwall/gjson"
)

// ConfigID derives the document key for an (asset, timeframe) pair,
// e.g. "BTC/USD_1h". Deterministic; callers treat the result as opaque.
func ConfigID(asset, timeframe string) string {
	return asset + "_" + timeframe
}

// ProfilePath returns the backing file for a profile's document.
// Injective over valid profile names (see validateProfileName).
func (s *Store) ProfilePath(name string) string {
	return filepath.Join(s.cfg.ProfilesDir, name+"_data.json")
}

// LoadProfileData reads and parses a profile's document. Fail-open: a
// missing or unparseable file yields an empty document so the dashboard
// stays usable; the condition is logged, never raised.
func (s *Store) LoadProfileData(name string) models.ProfileDocument {
	profilePath := s.ProfilePath(name)

	fileData, err := os.ReadFile(profilePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("INFO: Profile file not found: %s. Starting with an empty document.", profilePath)
		} else {
			log.Printf("ERROR: Failed to read profile file '%s': %v. Starting with an empty document.", profilePath, err)
		}
		return models.ProfileDocument{}
	}

	var doc models.ProfileDocument
	if err := json.Unmarshal(fileData, &doc); err != nil {
		log.Printf("ERROR: Failed to parse profile file '%s': %v. Starting with an empty document.", profilePath, err)
		return models.ProfileDocument{}
	}
	if doc == nil {
		doc = models.ProfileDocument{}
	}

	log.Printf("INFO: Loaded profile '%s' with %d configurations", name, len(doc))
	return doc
}

// SaveProfileData serializes and overwrites the profile's backing file
// entirely. This is the single commit point: the pure document operations
// below never touch disk, callers persist explicitly after mutations.
func (s *Store) SaveProfileData(name string, doc models.ProfileDocument) error {
	profilePath := s.ProfilePath(name)

	jsonData, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		log.Printf("ERROR: Failed to marshal profile '%s': %v", name, err)
		return err
	}

	if err := os.MkdirAll(s.cfg.ProfilesDir, 0755); err != nil {
		log.Printf("ERROR: Failed to create profiles directory '%s': %v", s.cfg.ProfilesDir, err)
		return err
	}

	tempFilePath := profilePath + ".tmp"
	if err := os.WriteFile(tempFilePath, jsonData, 0644); err != nil {
		log.Printf("ERROR: Failed to write temporary profile file '%s': %v", tempFilePath, err)
		return err
	}
	if err := os.Rename(tempFilePath, profilePath); err != nil {
		log.Printf("ERROR: Failed to rename '%s' to '%s': %v", tempFilePath, profilePath, err)
		_ = os.Remove(tempFilePath)
		return err
	}

	log.Printf("INFO: Saved profile '%s' (%d configurations)", name, len(doc))
	return nil
}

// --- Pure document queries ---
// All of these default to false/empty when the key is absent; a record is
// never materialized by a read.

// IsTested reports whether the configuration is marked as tested.
func IsTested(asset, timeframe string, doc models.ProfileDocument) bool {
	return doc[ConfigID(asset, timeframe)].Tested
}

// IsImproved reports whether the configuration is marked as improved.
func IsImproved(asset, timeframe string, doc models.ProfileDocument) bool {
	return doc[ConfigID(asset, timeframe)].Improved
}

// HasNote reports whether the configuration has a non-empty note.
func HasNote(asset, timeframe string, doc models.ProfileDocument) bool {
	return doc[ConfigID(asset, timeframe)].Note != ""
}

// HasScreenshots reports whether the configuration has any screenshots.
func HasScreenshots(asset, timeframe string, doc models.ProfileDocument) bool {
	return len(doc[ConfigID(asset, timeframe)].Screenshots) > 0
}

// GetNote returns the note for a configuration, or "" when absent.
func GetNote(asset, timeframe string, doc models.ProfileDocument) string {
	return doc[ConfigID(asset, timeframe)].Note
}

// GetScreenshots returns the stored screenshots, or an empty list.
func GetScreenshots(asset, timeframe string, doc models.ProfileDocument) []models.Screenshot {
	return doc[ConfigID(asset, timeframe)].Screenshots
}

// GetParams returns the stored parameters for a configuration, or a copy of
// the default set when none are stored. Never the shared default itself.
func GetParams(asset, timeframe string, doc models.ProfileDocument) map[string]string {
	if rec, ok := doc[ConfigID(asset, timeframe)]; ok && rec.Params != nil {
		return rec.Params
	}
	return models.DefaultParams()
}

// --- Pure document mutations ---
// Mutations update the record in place and stamp last_modified. Persisting
// the result is the caller's job (SaveProfileData).

func now() string {
	return time.Now().Format(models.TimestampLayout)
}

// ToggleTested flips the tested flag, creating the record if needed.
// Returns the updated document and the new flag value.
func ToggleTested(asset, timeframe string, doc models.ProfileDocument) (models.ProfileDocument, bool) {
	id := ConfigID(asset, timeframe)
	rec := doc[id]
	rec.Tested = !rec.Tested
	rec.LastModified = now()
	doc[id] = rec
	return doc, rec.Tested
}

// ToggleImproved flips the improved flag, creating the record if needed.
// Returns the updated document and the new flag value.
func ToggleImproved(asset, timeframe string, doc models.ProfileDocument) (models.ProfileDocument, bool) {
	id := ConfigID(asset, timeframe)
	rec := doc[id]
	rec.Improved = !rec.Improved
	rec.LastModified = now()
	doc[id] = rec
	return doc, rec.Improved
}

// SaveParams overwrites the record's parameter set wholesale. No field-level
// merge is performed.
func SaveParams(asset, timeframe string, params map[string]string, doc models.ProfileDocument) models.ProfileDocument {
	id := ConfigID(asset, timeframe)
	rec := doc[id]
	rec.Params = params
	rec.LastModified = now()
	doc[id] = rec
	return doc
}

// SaveNote stores the note for a configuration.
func SaveNote(asset, timeframe, note string, doc models.ProfileDocument) models.ProfileDocument {
	id := ConfigID(asset, timeframe)
	rec := doc[id]
	rec.Note = note
	rec.LastModified = now()
	doc[id] = rec
	return doc
}

// SaveScreenshot appends a screenshot with the current timestamp. When the
// record is already at capacity the oldest entry (index 0) is evicted first:
// eviction is FIFO by insertion order, not LRU.
func SaveScreenshot(asset, timeframe, imageData, description string, doc models.ProfileDocument) models.ProfileDocument {
	id := ConfigID(asset, timeframe)
	rec := doc[id]

	if len(rec.Screenshots) >= models.MaxScreenshots {
		rec.Screenshots = rec.Screenshots[1:]
	}
	rec.Screenshots = append(rec.Screenshots, models.Screenshot{
		Date:        now(),
		Description: description,
		ImageData:   imageData,
	})
	rec.LastModified = now()
	doc[id] = rec
	return doc
}

// DeleteScreenshot removes the screenshot at the given index. Returns false,
// leaving the document unchanged, when the record or index does not exist.
func DeleteScreenshot(asset, timeframe string, index int, doc models.ProfileDocument) (models.ProfileDocument, bool) {
	id := ConfigID(asset, timeframe)
	rec, ok := doc[id]
	if !ok || index < 0 || index >= len(rec.Screenshots) {
		return doc, false
	}

	rec.Screenshots = append(rec.Screenshots[:index], rec.Screenshots[index+1:]...)
	rec.LastModified = now()
	doc[id] = rec
	return doc, true
}

// --- Import / Export ---

// ExportProfileData serializes a profile's loaded document verbatim.
func (s *Store) ExportProfileData(name string) (string, error) {
	doc := s.LoadProfileData(name)
	jsonData, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize profile '%s': %w", name, err)
	}
	return string(jsonData), nil
}

// ImportProfileData parses rawJSON and persists it as the profile's
// document. Fail-closed: any shape problem returns ErrMalformedImport and
// leaves the stored document untouched. With merge, keys present in the
// import replace the existing keys wholesale (key-level replace, no
// deep-merge of record fields); without it, the document is replaced.
func (s *Store) ImportProfileData(name, rawJSON string, merge bool) error {
	// Inspect the payload before unmarshalling: it must be a JSON object
	// whose values are all objects (config records).
	if !gjson.Valid(rawJSON) {
		return fmt.Errorf("%w: not valid JSON", ErrMalformedImport)
	}
	parsed := gjson.Parse(rawJSON)
	if !parsed.IsObject() {
		return fmt.Errorf("%w: expected an object mapping config IDs to records", ErrMalformedImport)
	}
	shapeOK := true
	parsed.ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() {
			shapeOK = false
			return false
		}
		return true
	})
	if !shapeOK {
		return fmt.Errorf("%w: every value must be a config record object", ErrMalformedImport)
	}

	var imported models.ProfileDocument
	if err := json.Unmarshal([]byte(rawJSON), &imported); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedImport, err)
	}
	if imported == nil {
		imported = models.ProfileDocument{}
	}

	doc := imported
	if merge {
		doc = s.LoadProfileData(name)
		for id, rec := range imported {
			doc[id] = rec
		}
	}

	if err := s.SaveProfileData(name, doc); err != nil {
		return err
	}
	log.Printf("INFO: Imported %d configurations into profile '%s' (merge=%t)", len(imported), name, merge)
	return nil
}
