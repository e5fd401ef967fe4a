package client

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/session"
)

const keyringFile = "session.json"

// FileKeyring persists the session entry as a JSON file in the user state
// dir so the session survives a restart.
type FileKeyring struct {
	path string
}

var _ session.Keyring = (*FileKeyring)(nil)

func NewFileKeyring(stateDir string) (*FileKeyring, error) {
	if stateDir == "" {
		confDir, err := os.UserConfigDir()
		if err != nil {
			return nil, errors.Wrap(err, "resolving user config dir")
		}
		stateDir = filepath.Join(confDir, "darasa")
	}
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return nil, errors.Wrap(err, "creating state dir")
	}
	return &FileKeyring{path: filepath.Join(stateDir, keyringFile)}, nil
}

func (k *FileKeyring) Save(entry session.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "encoding session entry")
	}
	return errors.Wrap(os.WriteFile(k.path, data, 0o600), "writing session file")
}

func (k *FileKeyring) Load() (session.Entry, bool, error) {
	data, err := os.ReadFile(k.path)
	if err != nil {
		if os.IsNotExist(err) {
			return session.Entry{}, false, nil
		}
		return session.Entry{}, false, errors.Wrap(err, "reading session file")
	}

	var entry session.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// a corrupt file reads as an absent session
		return session.Entry{}, false, nil
	}
	return entry, true, nil
}

func (k *FileKeyring) Clear() error {
	if err := os.Remove(k.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing session file")
	}
	return nil
}
