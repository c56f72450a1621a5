package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	SessionFileName = "session.json"
	// TokenEnv overrides the session file with a bare access token.
	TokenEnv = "DONEZO_TOKEN"
)

// FileStore keeps the session in <Dir>/session.json, owner-only.
type FileStore struct {
	Dir string
}

func (f FileStore) Path() string { return filepath.Join(f.Dir, SessionFileName) }

// Load returns the persisted session. DONEZO_TOKEN wins over the file.
// A missing file is (nil, nil): not signed in.
func (f FileStore) Load() (*Session, error) {
	if env := strings.TrimSpace(os.Getenv(TokenEnv)); env != "" {
		s, err := sessionFromToken(env, SourceEnv)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", TokenEnv, err)
		}
		return s, nil
	}
	b, err := os.ReadFile(f.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	s.AccessToken = stripBearer(s.AccessToken)
	if s.AccessToken == "" {
		return nil, nil
	}
	s.Source = SourceFile
	return &s, nil
}

func (f FileStore) Save(s *Session) error {
	if s == nil || strings.TrimSpace(s.AccessToken) == "" {
		return fmt.Errorf("empty token")
	}
	if err := os.MkdirAll(f.Dir, 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	out := *s
	out.AccessToken = stripBearer(out.AccessToken)
	out.Source = SourceFile
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(f.Path(), b, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	// WriteFile keeps the mode of an existing file
	return os.Chmod(f.Path(), 0o600)
}

func (f FileStore) Delete() error {
	if err := os.Remove(f.Path()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}
