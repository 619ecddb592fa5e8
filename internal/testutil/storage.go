package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"worklink/internal/models"
)

// MemoryStorage is an in-memory ObjectStorage with failure injection.
type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	// FailPuts makes the next N uploads fail with a transient error.
	FailPuts int
	// PutCalls counts Upload invocations, successful or not.
	PutCalls int
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

// Upload stores the object unless a failure is scheduled.
func (m *MemoryStorage) Upload(_ context.Context, path string, body io.Reader, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutCalls++
	if m.FailPuts > 0 {
		m.FailPuts--
		return models.NewTransientError(fmt.Errorf("injected storage failure"))
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[path] = data
	return nil
}

// Delete removes the object if present.
func (m *MemoryStorage) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
	return nil
}

// PublicURL returns a deterministic fake URL.
func (m *MemoryStorage) PublicURL(path string) string {
	return "https://storage.test/" + path
}

// Object returns the stored bytes for path.
func (m *MemoryStorage) Object(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[path]
	return data, ok
}

// Len returns the number of stored objects.
func (m *MemoryStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
