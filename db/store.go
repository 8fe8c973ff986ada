package db

import (
	"errors"
	"sync"

	"tradedash/config"
)

// Sentinel errors for profile lifecycle and import failures. Handlers map
// these to HTTP statuses with errors.Is.
var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrDuplicateProfile   = errors.New("profile already exists")
	ErrProtectedProfile   = errors.New("the default profile cannot be deleted")
	ErrInvalidProfileName = errors.New("invalid profile name")
	ErrMalformedImport    = errors.New("malformed import payload")
)

// Store provides access to the two kinds of JSON documents backing the
// dashboard: the single app config file (profile registry + admin
// credential) and one document per profile under the profiles directory.
//
// Documents are read and rewritten wholesale; the backing files are the
// only synchronization point across sessions and the last writer wins.
// One AppConfig is shared by every request goroutine, so the mutex guards
// both its in-memory fields and the config file rewrites. All registry and
// credential access goes through Store methods that take the lock; the
// package-level helpers below assume the caller holds it.
type Store struct {
	cfg      *config.Config
	configMu sync.RWMutex
}

// NewStore creates a Store bound to the paths in cfg. No I/O happens here;
// the app config file is created lazily by LoadOrInitConfig.
func NewStore(cfg *config.Config) *Store {
	return &Store{cfg: cfg}
}
