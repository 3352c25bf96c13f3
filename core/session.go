package core

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrNoSession is returned when an authenticated call is attempted without any stored credentials.
var ErrNoSession = errors.New("not logged in")

// Session holds the credentials used to talk to the Record Store.
// It is passed explicitly to whoever needs it and persisted as a JSON file.
type Session struct {
	path string
	mu   sync.RWMutex
	data sessionData
}

type sessionData struct {
	Username     string    `json:"username,omitempty"`
	AccessToken  string    `json:"access,omitempty"`
	RefreshToken string    `json:"refresh,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// NewSession returns an empty session persisted at path.
// An empty path keeps the session in memory only.
func NewSession(path string) *Session {
	return &Session{path: path}
}

// Load reads the session file. A missing file leaves the session empty.
func (s *Session) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return nil
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = sessionData{}
			return nil
		}
		return errors.Wrap(err, "reading session file")
	}
	var data sessionData
	if err = json.Unmarshal(b, &data); err != nil {
		return errors.Wrap(err, "decoding session file")
	}
	s.data = data
	return nil
}

// Save writes the session file with owner-only permissions.
func (s *Session) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.path == "" {
		return nil
	}
	b, err := json.Marshal(s.data)
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	if err = os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "creating session dir")
	}
	return errors.Wrap(os.WriteFile(s.path, b, 0o600), "writing session file")
}

// Clear forgets the credentials and removes the session file.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = sessionData{}
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing session file")
	}
	return nil
}

func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Username
}

// Tokens returns the current access and refresh tokens.
func (s *Session) Tokens() (access, refresh string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.AccessToken, s.data.RefreshToken
}

// SetTokens replaces the stored tokens. An empty refresh keeps the current one.
func (s *Session) SetTokens(username, access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if username != "" {
		s.data.Username = username
	}
	s.data.AccessToken = access
	if refresh != "" {
		s.data.RefreshToken = refresh
	}
	s.data.UpdatedAt = time.Now().UTC()
}

func (s *Session) IsAuthenticated() bool {
	access, _ := s.Tokens()
	return access != ""
}
