package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/nerrad567/notice-client/internal/connection"
)

// File names and permissions inside the data directory.
const (
	ConfigFile   = "config.json"
	MessagesFile = "messages.json"

	dirPermissions  = 0750
	filePermissions = 0600
)

// ConfigStore reads and writes config.json.
type ConfigStore struct {
	path   string
	logger Logger
	mu     sync.Mutex
}

// NewConfigStore returns a store for <dir>/config.json.
func NewConfigStore(dir string, logger Logger) *ConfigStore {
	return &ConfigStore{
		path:   filepath.Join(dir, ConfigFile),
		logger: orNoop(logger),
	}
}

// Path returns the config file location.
func (s *ConfigStore) Path() string {
	return s.path
}

// Load returns the saved record, or connection.DefaultClientConfig when the
// file is missing or unreadable.
func (s *ConfigStore) Load() connection.ClientConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("reading client config, using defaults", "path", s.path, "error", err)
		}
		return connection.DefaultClientConfig()
	}

	var cfg connection.ClientConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		s.logger.Warn("parsing client config, using defaults", "path", s.path, "error", err)
		return connection.DefaultClientConfig()
	}
	return cfg
}

// Save writes the record as indented JSON, creating the directory if needed.
func (s *ConfigStore) Save(cfg connection.ClientConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding config: %w", ErrPersistence, err)
	}
	return writeFile(s.path, data)
}

// writeFile replaces path atomically via a temporary file in the same directory.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrPersistence, dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Chmod(tmpName, filePermissions)
	}
	if werr == nil {
		werr = os.Rename(tmpName, path)
	}
	if werr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: writing %s: %w", ErrPersistence, path, werr)
	}
	return nil
}
