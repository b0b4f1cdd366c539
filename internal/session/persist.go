package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"taskman/internal/config"
	"taskman/internal/service"
)

// Persister stores the session record between processes.
// Save replaces the whole record; there is no read-modify-write.
type Persister interface {
	// Load returns the persisted token and user. A missing or malformed
	// entry yields an empty token or nil user, not an error.
	Load() (token string, user *service.User, err error)

	// Save replaces the persisted record.
	Save(token string, user service.User) error

	// Clear removes the persisted record. Clearing an empty store is not an error.
	Clear() error
}

// FileStore persists the session as two files in the config directory:
// the raw token string and the JSON user record, both mode 0600.
type FileStore struct {
	cfg *config.Config
}

// NewFileStore creates a FileStore rooted at cfg.Dir.
func NewFileStore(cfg *config.Config) *FileStore {
	return &FileStore{cfg: cfg}
}

// Load implements Persister.
func (f *FileStore) Load() (string, *service.User, error) {
	tokenData, err := os.ReadFile(f.cfg.TokenPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("failed to read token: %w", err)
	}
	token := strings.TrimSpace(string(tokenData))

	userData, err := os.ReadFile(f.cfg.UserPath())
	if err != nil {
		if os.IsNotExist(err) {
			return token, nil, nil
		}
		return "", nil, fmt.Errorf("failed to read user: %w", err)
	}

	var user service.User
	if err := json.Unmarshal(userData, &user); err != nil {
		// Malformed record counts as absent.
		return token, nil, nil
	}
	return token, &user, nil
}

// Save implements Persister.
func (f *FileStore) Save(token string, user service.User) error {
	if err := f.cfg.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.cfg.TokenPath(), []byte(token), 0600); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if err := os.WriteFile(f.cfg.UserPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// Clear implements Persister.
func (f *FileStore) Clear() error {
	var errs []error
	for _, path := range []string{f.cfg.TokenPath(), f.cfg.UserPath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MemoryStore is an in-process Persister. It is safe for concurrent use;
// read the exported fields directly only when no session call is running.
type MemoryStore struct {
	mu    sync.Mutex
	Token string
	User  *service.User
}

// Load implements Persister.
func (m *MemoryStore) Load() (string, *service.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Token, m.User, nil
}

// Save implements Persister.
func (m *MemoryStore) Save(token string, user service.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Token = token
	m.User = &user
	return nil
}

// Clear implements Persister.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Token = ""
	m.User = nil
	return nil
}

// Saved returns the persisted pair.
func (m *MemoryStore) Saved() (string, *service.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Token, m.User
}
