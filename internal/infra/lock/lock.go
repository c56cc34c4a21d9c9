// Package lock provides named, non-blocking advisory locks with a bounded
// hold time.
package lock

import (
	"context"
	"sync"
	"time"

	"layoutpub/pkg/domain"
)

// Lock names used by the publication core.
const (
	Publication           = "publication"
	GeometryChangeRemarks = "geometry-change-remarks"
)

// Locker runs fn while holding the named lock. It never waits: when the lock
// is held elsewhere it returns an error with code LOCK_UNAVAILABLE. fn receives
// a context that expires after hold.
type Locker interface {
	RunWithLock(ctx context.Context, name string, hold time.Duration, fn func(context.Context) error) error
}

func unavailable(name string) error {
	return domain.NewErrorf(domain.CodeLockUnavailable, domain.ErrLockUnavailable, "lock %q", name)
}

func bounded(ctx context.Context, hold time.Duration) (context.Context, context.CancelFunc) {
	if hold <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, hold)
}

// Memory is an in-process Locker.
type Memory struct {
	mu   sync.Mutex
	held map[string]bool
}

var _ Locker = (*Memory)(nil)

// NewMemory returns an in-process locker.
func NewMemory() *Memory {
	return &Memory{held: make(map[string]bool)}
}

// RunWithLock implements Locker.
func (m *Memory) RunWithLock(ctx context.Context, name string, hold time.Duration, fn func(context.Context) error) error {
	m.mu.Lock()
	if m.held[name] {
		m.mu.Unlock()
		return unavailable(name)
	}
	m.held[name] = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.held, name)
		m.mu.Unlock()
	}()

	lctx, cancel := bounded(ctx, hold)
	defer cancel()
	return fn(lctx)
}
