// Package snapshot provides the persisted-state layer for the portal's
// state containers. Each container serializes its full state into a
// named blob wrapped in a versioned envelope; a stored snapshot whose
// schema version does not match the running code is treated as absent
// rather than migrated.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when no snapshot exists under a given name,
// or when a stored snapshot was written by an older schema version.
var ErrNotFound = errors.New("snapshot not found")

// Store is the opaque key-value blob store a state container persists
// through. Implementations must be safe for concurrent use.
type Store interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
}

// Envelope wraps a serialized state blob with its schema version.
type Envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// LoadState loads the named snapshot and unmarshals it into out.
// A missing snapshot or a version mismatch yields ErrNotFound so the
// caller starts from empty state.
func LoadState(ctx context.Context, s Store, name string, version int, out interface{}) error {
	raw, err := s.Load(ctx, name)
	if err != nil {
		return err
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode snapshot %q: %w", name, err)
	}
	if env.Version != version {
		return ErrNotFound
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode snapshot %q state: %w", name, err)
	}
	return nil
}

// SaveState marshals in and stores it under name with the given
// schema version.
func SaveState(ctx context.Context, s Store, name string, version int, in interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode snapshot %q state: %w", name, err)
	}
	raw, err := json.Marshal(Envelope{Version: version, Data: data})
	if err != nil {
		return fmt.Errorf("encode snapshot %q: %w", name, err)
	}
	return s.Save(ctx, name, raw)
}

// MemoryStore is an in-memory Store used in tests and for ephemeral
// single-process deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[name]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp, nil
}

func (m *MemoryStore) Save(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blobs[name] = cp
	return nil
}
