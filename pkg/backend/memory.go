package backend

import (
	"context"
	"sync"
)

// MemoryBackend keeps encoded documents in process memory. Documents are stored
// encoded so callers never share state with the backend.
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[string][]byte

	// failSaves makes every Save return the given error
	failSaves error
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string][]byte)}
}

// Name implements Backend.Name
func (b *MemoryBackend) Name() string { return "memory" }

// Load implements Backend.Load
func (b *MemoryBackend) Load(ctx context.Context, name string, out any) (bool, error) {
	b.mu.RLock()
	data, ok := b.docs[name]
	b.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return decode(data, out)
}

// Save implements Backend.Save
func (b *MemoryBackend) Save(ctx context.Context, name string, v any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failSaves != nil {
		return b.failSaves
	}

	data, err := Encode(v)
	if err != nil {
		return err
	}
	b.docs[name] = data
	return nil
}

// SetFailSaves toggles save failures; nil restores normal operation
func (b *MemoryBackend) SetFailSaves(err error) {
	b.mu.Lock()
	b.failSaves = err
	b.mu.Unlock()
}

// Raw returns the stored encoding of a document
func (b *MemoryBackend) Raw(name string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.docs[name]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

// Put stores raw document bytes, bypassing encoding
func (b *MemoryBackend) Put(name string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs[name] = append([]byte(nil), data...)
}
