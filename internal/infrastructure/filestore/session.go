// Package filestore persists the session in a single YAML file. Writes go to
// a temporary file in the same directory that is then renamed over the
// target, so the token and the identity always change together.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ibtissamelhani/induspress/internal/core/ports"
)

const fileName = "session.yaml"

// SessionStorage is a file-backed ports.SessionStorage.
type SessionStorage struct {
	path string
}

// document mirrors the two durable keys.
type document struct {
	Token string `yaml:"token"`
	User  string `yaml:"user"`
}

// NewSessionStorage stores the session at path. An empty path resolves to
// session.yaml under the user's config directory.
func NewSessionStorage(path string) (*SessionStorage, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		path = filepath.Join(dir, "induspress", fileName)
	}
	return &SessionStorage{path: path}, nil
}

// Path returns the session file location.
func (s *SessionStorage) Path() string { return s.path }

func (s *SessionStorage) Load(_ context.Context) (string, []byte, bool, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, fmt.Errorf("read session file: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		// A corrupt file is treated as no session; Restore clears it.
		return "", nil, false, nil
	}
	if doc.Token == "" || doc.User == "" {
		return "", nil, false, nil
	}
	return doc.Token, []byte(doc.User), true, nil
}

func (s *SessionStorage) Save(_ context.Context, token string, identity []byte) error {
	raw, err := yaml.Marshal(document{Token: token, User: string(identity)})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (s *SessionStorage) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

var _ ports.SessionStorage = (*SessionStorage)(nil)
