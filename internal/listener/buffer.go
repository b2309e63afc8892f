package listener

import (
	"context"
	"sync"
)

// Buffer is a Scraper fed over HTTP instead of reading the UI tree
// directly. The desktop agent pushes whole snapshots; the listener
// polls the latest one. Re-reading an unchanged snapshot is harmless
// because the reconciler drops already-seen states.
type Buffer struct {
	mu     sync.RWMutex
	labels []string
}

// NewBuffer creates an empty snapshot buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Push replaces the buffered snapshot.
func (b *Buffer) Push(labels []string) {
	copied := append([]string(nil), labels...)
	b.mu.Lock()
	b.labels = copied
	b.mu.Unlock()
}

// Snapshot returns the most recent snapshot.
func (b *Buffer) Snapshot(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.labels...), nil
}
