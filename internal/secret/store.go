package secret

import (
	"path/filepath"
	"runtime"
	"sync"
)

// SecretStore holds mirror passwords keyed by sync target ID.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// Default picks the macOS Keychain when available and a private file in
// dataDir elsewhere.
func Default(dataDir string) SecretStore {
	if runtime.GOOS == "darwin" {
		return NewKeychainStore()
	}
	return NewFileStore(filepath.Join(dataDir, "secrets.json"))
}

// MemoryStore keeps secrets in process memory. Used by tests and the
// standalone MCP process when no persistent store is wanted.
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: make(map[string][]byte)}
}

func (m *MemoryStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.secrets[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, key)
	return nil
}
