package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"food-ordering/internal/model"

	"github.com/pelletier/go-toml/v2"
)

// SessionFileEnv overrides the default session file location.
const SessionFileEnv = "FOODCTL_SESSION_FILE"

// ErrNotSignedIn is returned by commands that need a stored session.
var ErrNotSignedIn = errors.New("not signed in, run foodctl signin first")

// StoredSession is the session persisted between invocations.
type StoredSession struct {
	Endpoint  string    `toml:"endpoint"`
	ProjectID string    `toml:"project_id"`
	SessionID string    `toml:"session_id"`
	AccountID string    `toml:"account_id"`
	Email     string    `toml:"email"`
	Secret    string    `toml:"secret"`
	Expire    string    `toml:"expire,omitempty"`
	SavedAt   time.Time `toml:"saved_at"`
}

// SessionStore keeps the signed-in session in a TOML file.
type SessionStore struct {
	path string
}

// NewSessionStore creates a store at path. An empty path uses
// $FOODCTL_SESSION_FILE, then ~/.foodctl/session.toml.
func NewSessionStore(path string) (*SessionStore, error) {
	if path == "" {
		path = os.Getenv(SessionFileEnv)
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate home directory: %w", err)
		}
		path = filepath.Join(home, ".foodctl", "session.toml")
	}
	return &SessionStore{path: path}, nil
}

// Path returns the session file path.
func (s *SessionStore) Path() string {
	return s.path
}

// Load returns the stored session, or nil when there is none.
func (s *SessionStore) Load() (*StoredSession, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var stored StoredSession
	if err := toml.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse session file %s: %w", s.path, err)
	}
	return &stored, nil
}

// Save writes the session with owner-only permissions.
func (s *SessionStore) Save(stored *StoredSession) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := toml.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Clear removes the stored session. Clearing an absent session is not an
// error.
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

func newStoredSession(e *env, email string, session *model.Session) *StoredSession {
	return &StoredSession{
		Endpoint:  e.cfg.Appwrite.Endpoint,
		ProjectID: e.cfg.Appwrite.ProjectID,
		SessionID: session.ID,
		AccountID: session.UserID,
		Email:     email,
		Secret:    session.Secret,
		Expire:    session.Expire,
		SavedAt:   time.Now().UTC(),
	}
}
