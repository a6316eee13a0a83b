// Package cache holds computed views keyed by their query parameters.
// Entries are dropped when a change event touches a table they depend on,
// and recomputed on the next read.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T, deps ...Dep)
	Delete(key string)
	// Invalidate drops every entry depending on dep and returns how many went.
	Invalidate(dep Dep) int
	Size() int
}

// Dep names a table a cached view was computed from. An empty UserID
// on an invalidation matches entries of every user.
type Dep struct {
	Table  string
	UserID string
}

func (d Dep) matches(inv Dep) bool {
	return d.Table == inv.Table && (inv.UserID == "" || d.UserID == inv.UserID)
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps expired entries of registered caches on an interval.
type Manager struct {
	mu          sync.Mutex
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	logger      *slog.Logger
	stopOnce    sync.Once
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
		logger:      logger,
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.sweep(); n > 0 {
				m.logger.Debug("Expired cache entries removed", "count", n)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

func (m *Manager) sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup routine. Safe to call when StartCleanup never ran.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCleanup)
	})
}

// Wait blocks until a started cleanup routine has exited.
func (m *Manager) Wait() {
	<-m.cleanupDone
}
