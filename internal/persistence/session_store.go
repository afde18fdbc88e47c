package persistence

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// FileSessionStore keeps the session id of a CLI profile in a small yaml file,
// the way a browser keeps it in local storage.
type FileSessionStore struct {
	Path string
}

type sessionFile struct {
	SessionId string `yaml:"sessionId"`
}

// SessionId returns the stored id, generating and writing one on first use.
func (s FileSessionStore) SessionId() (string, error) {
	content, err := os.ReadFile(s.Path)
	if err == nil {
		var f sessionFile
		if err := yaml.Unmarshal(content, &f); err != nil {
			return "", err
		}
		if f.SessionId != "" {
			return f.SessionId, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	f := sessionFile{SessionId: uuid.New().String()}
	content, err = yaml.Marshal(f)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return "", err
	}
	if err := os.WriteFile(s.Path, content, 0o600); err != nil {
		return "", err
	}

	return f.SessionId, nil
}
