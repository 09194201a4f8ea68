package credential

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store is the persistent credential layer, partitioned by user.
type Store interface {
	Get(user, id string) (string, bool, error)
	Set(user, id, value string) error
	Remove(user, id string) error
	Keys(user string) ([]string, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]map[string]string)}
}

// Get implements Store.
func (s *MemoryStore) Get(user, id string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[user][id]
	return v, ok, nil
}

// Set implements Store.
func (s *MemoryStore) Set(user, id, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[user] == nil {
		s.values[user] = make(map[string]string)
	}
	s.values[user][id] = value
	return nil
}

// Remove implements Store.
func (s *MemoryStore) Remove(user, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values[user], id)
	return nil
}

// Keys implements Store.
func (s *MemoryStore) Keys(user string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.values[user]))
	for k := range s.values[user] {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// FileStore persists credentials in a YAML file readable only by the
// owner. The file maps user → credential id → value.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultFileStorePath returns ~/.config/<appDir>/credentials.yaml.
func DefaultFileStorePath(appDir string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".config", appDir, "credentials.yaml"), nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) load() (map[string]map[string]string, error) {
	existing := make(map[string]map[string]string)
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return existing, nil
		}
		return nil, fmt.Errorf("read credential cache: %w", err)
	}
	if err := yaml.Unmarshal(data, &existing); err != nil {
		return nil, fmt.Errorf("parse credential cache %s: %w", s.path, err)
	}
	if existing == nil {
		existing = make(map[string]map[string]string)
	}
	return existing, nil
}

func (s *FileStore) save(values map[string]map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(values)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Get implements Store.
func (s *FileStore) Get(user, id string) (string, bool, error) {
	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[user][id]
	return v, ok, nil
}

// Set implements Store.
func (s *FileStore) Set(user, id, value string) error {
	values, err := s.load()
	if err != nil {
		return err
	}
	if values[user] == nil {
		values[user] = make(map[string]string)
	}
	values[user][id] = value
	return s.save(values)
}

// Remove implements Store.
func (s *FileStore) Remove(user, id string) error {
	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[user][id]; !ok {
		return nil
	}
	delete(values[user], id)
	if len(values[user]) == 0 {
		delete(values, user)
	}
	return s.save(values)
}

// Keys implements Store.
func (s *FileStore) Keys(user string) ([]string, error) {
	values, err := s.load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(values[user]))
	for k := range values[user] {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}
