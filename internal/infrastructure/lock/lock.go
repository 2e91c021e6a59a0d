// Package lock serializes the sync write phase per external spreadsheet.
// The sum mode's read-modify-write cycle loses updates if two writers touch
// the same ledger concurrently, so a single-writer-per-spreadsheet
// discipline is mandatory. The in-process locker covers single-instance
// deployments; the Redis-backed locker extends the guarantee across
// instances.
package lock

import (
	"context"
	"sync"
)

// Handle represents a held lock
type Handle interface {
	// Release gives the lock back
	Release(ctx context.Context) error
}

// SheetLocker acquires the single-writer lock for one spreadsheet identity
type SheetLocker interface {
	// Acquire blocks until the lock for the given spreadsheet is held or
	// the context is cancelled
	Acquire(ctx context.Context, spreadsheetID string) (Handle, error)
}

// KeyedMutex is an in-process SheetLocker keyed by spreadsheet ID
type KeyedMutex struct {
	mu    sync.Mutex
	chans map[string]chan struct{}
}

// NewKeyedMutex creates a new in-process locker
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{chans: make(map[string]chan struct{})}
}

// Acquire blocks until the per-key lock is held or ctx is done
func (m *KeyedMutex) Acquire(ctx context.Context, spreadsheetID string) (Handle, error) {
	for {
		m.mu.Lock()
		ch, held := m.chans[spreadsheetID]
		if !held {
			m.chans[spreadsheetID] = make(chan struct{})
			m.mu.Unlock()
			return &keyedHandle{m: m, key: spreadsheetID}, nil
		}
		m.mu.Unlock()

		select {
		case <-ch:
			// lock released, try again
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

type keyedHandle struct {
	m    *KeyedMutex
	key  string
	once sync.Once
}

// Release gives the per-key lock back
func (h *keyedHandle) Release(_ context.Context) error {
	h.once.Do(func() {
		h.m.mu.Lock()
		ch := h.m.chans[h.key]
		delete(h.m.chans, h.key)
		h.m.mu.Unlock()
		if ch != nil {
			close(ch)
		}
	})
	return nil
}
