// Package settings persists the token and feature-flag state as a flat
// key-value JSON document at a fixed path.
//
// Every setter is a synchronous write-through: the full document is saved to
// disk before the call returns. The store serializes concurrent writers with
// a single lock so partial writes never interleave.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/nightq/nightq/internal/models"
)

// Defaults for the auto-refresh feature flags.
const (
	DefaultAutoRefreshEnabled  = true
	DefaultAutoRefreshInterval = 5 // seconds
)

// document is the on-disk shape of the settings file.
type document struct {
	AccessToken         string `json:"access_token"`
	RefreshToken        string `json:"refresh_token"`
	UserName            string `json:"user_name"`
	AutoRefreshEnabled  bool   `json:"auto_refresh_enabled"`
	AutoRefreshInterval int    `json:"auto_refresh_interval"`
}

// Store is the durable holder of the credential triple and the small set of
// feature flags the client needs. A missing or unreadable file is treated as
// "not authenticated", never as a fatal error.
type Store struct {
	mu     sync.Mutex
	path   string
	doc    document
	logger *log.Logger
}

// DefaultPath returns the settings file location under the user's home
// directory (~/.nightq/settings.json).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "settings.json"
	}
	return filepath.Join(home, ".nightq", "settings.json")
}

// NewStore creates a Store bound to path and loads any persisted state.
func NewStore(path string, logger *log.Logger) *Store {
	s := &Store{path: path, logger: logger}
	s.load()
	return s
}

// load reads the persisted document. Absent or corrupt files yield defaults.
func (s *Store) load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc = document{
		AutoRefreshEnabled:  DefaultAutoRefreshEnabled,
		AutoRefreshInterval: DefaultAutoRefreshInterval,
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) && s.logger != nil {
			s.logger.Warn("settings file unreadable, starting fresh", "path", s.path)
		}
		return
	}

	if err := json.Unmarshal(data, &s.doc); err != nil {
		if s.logger != nil {
			s.logger.Warn("settings file corrupt, starting fresh", "path", s.path)
		}
		s.doc = document{
			AutoRefreshEnabled:  DefaultAutoRefreshEnabled,
			AutoRefreshInterval: DefaultAutoRefreshInterval,
		}
	}
	if s.doc.AutoRefreshInterval <= 0 {
		s.doc.AutoRefreshInterval = DefaultAutoRefreshInterval
	}
}

// save persists the full document. Callers must hold s.mu.
func (s *Store) save() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	return nil
}

// persist saves under lock and logs failures; setters never surface them.
func (s *Store) persist() {
	if err := s.save(); err != nil && s.logger != nil {
		s.logger.Error("failed to persist settings", "err", err)
	}
}

// Token returns the current credential triple.
func (s *Store) Token() models.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Token{
		AccessToken:  s.doc.AccessToken,
		RefreshToken: s.doc.RefreshToken,
		UserName:     s.doc.UserName,
	}
}

// AccessToken returns the stored access token, empty when unauthenticated.
func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.AccessToken
}

// RefreshToken returns the stored refresh token.
func (s *Store) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.RefreshToken
}

// UserName returns the authenticated account's display name.
func (s *Store) UserName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.UserName
}

// IsAuthenticated reports whether an access token is stored.
func (s *Store) IsAuthenticated() bool {
	return s.AccessToken() != ""
}

// SetAccessToken stores the access token and persists immediately.
func (s *Store) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.AccessToken = token
	s.persist()
}

// SetRefreshToken stores the refresh token and persists immediately.
func (s *Store) SetRefreshToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.RefreshToken = token
	s.persist()
}

// SetTokens stores both tokens in a single write.
func (s *Store) SetTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.AccessToken = access
	s.doc.RefreshToken = refresh
	s.persist()
}

// SetUserName stores the account display name and persists immediately.
func (s *Store) SetUserName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.UserName = name
	s.persist()
}

// Clear wipes the credential triple atomically and persists.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.AccessToken = ""
	s.doc.RefreshToken = ""
	s.doc.UserName = ""
	s.persist()
}

// AutoRefreshEnabled reports whether periodic queue refresh is on.
func (s *Store) AutoRefreshEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.AutoRefreshEnabled
}

// SetAutoRefreshEnabled toggles periodic queue refresh and persists.
func (s *Store) SetAutoRefreshEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.AutoRefreshEnabled = enabled
	s.persist()
}

// AutoRefreshInterval returns the queue refresh cadence in seconds.
func (s *Store) AutoRefreshInterval() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.AutoRefreshInterval
}

// SetAutoRefreshInterval stores the refresh cadence and persists.
func (s *Store) SetAutoRefreshInterval(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seconds < 1 {
		seconds = 1
	}
	s.doc.AutoRefreshInterval = seconds
	s.persist()
}
