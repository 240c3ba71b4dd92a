// Package lifecycle implements the File Lifecycle Manager (C11):
// reference-counted cleanup of processed files without fixed delays,
// grounded on
// original_source/backend/infotransform/utils/file_lifecycle.py
// (acquire/release/batch_context, mark_stream_complete's
// age-not-immediate semantics, the background sweeper).
package lifecycle

import (
	"os"
	"sync"
	"time"

	"github.com/owenffff/infotransform-engine/internal/logging"
)

// Strategy selects when release() actually deletes a file.
type Strategy string

const (
	// StrategyReferenceCounting deletes a file as soon as its refcount
	// reaches zero.
	StrategyReferenceCounting Strategy = "reference_counting"
	// StrategyStreamComplete retains a file past refcount==0 until it
	// ages past MaxRetention, so a downstream review session can still
	// reference it.
	StrategyStreamComplete Strategy = "stream_complete"
)

type entry struct {
	mu      sync.Mutex
	refs    int
	created time.Time
	tracked bool
}

// Manager is the File Lifecycle Manager (C11).
type Manager struct {
	strategy          Strategy
	maxRetention      time.Duration
	cleanupInterval   time.Duration
	log               *logging.Logger

	mu      sync.Mutex
	entries map[string]*entry

	stopCh chan struct{}
	doneCh chan struct{}
}

func New(strategy Strategy, maxRetention, cleanupInterval time.Duration, log *logging.Logger) *Manager {
	return &Manager{
		strategy:        strategy,
		maxRetention:    maxRetention,
		cleanupInterval: cleanupInterval,
		log:             log,
		entries:         make(map[string]*entry),
	}
}

// Start launches the background sweeper.
func (m *Manager) Start() {
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.sweepLoop()
	m.log.Info("file lifecycle manager started", "strategy", m.strategy, "max_retention", m.maxRetention)
}

// Stop halts the background sweeper.
func (m *Manager) Stop() {
	if m.stopCh != nil {
		close(m.stopCh)
		<-m.doneCh
	}
}

func (m *Manager) getOrCreate(path string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[path]
	if !ok {
		e = &entry{}
		m.entries[path] = e
	}
	return e
}

// Acquire increments path's reference count, tracking its creation
// time on first acquisition.
func (m *Manager) Acquire(path string) {
	e := m.getOrCreate(path)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refs++
	if e.refs == 1 && e.created.IsZero() {
		e.created = time.Now()
	}
	e.tracked = true
}

// Release decrements path's reference count. When it drops to zero,
// StrategyReferenceCounting deletes immediately; StrategyStreamComplete
// leaves the file for the sweeper to age out. Releasing an untracked
// path logs a warning and is a no-op.
func (m *Manager) Release(path string) {
	m.mu.Lock()
	e, ok := m.entries[path]
	m.mu.Unlock()
	if !ok {
		m.log.Warn("attempting to release untracked file", "path", path)
		return
	}

	e.mu.Lock()
	e.refs--
	refs := e.refs
	e.mu.Unlock()

	if refs <= 0 && m.strategy == StrategyReferenceCounting {
		m.cleanupFile(path)
	}
}

// BatchContext acquires every path in paths, runs fn, then releases
// all of them on every exit path including a panic or error from fn —
// the Go analogue of the original's scoped async-context-manager
// acquire-all/release-all.
func (m *Manager) BatchContext(paths []string, fn func() error) error {
	for _, p := range paths {
		m.Acquire(p)
	}
	defer func() {
		for _, p := range paths {
			m.Release(p)
		}
	}()
	return fn()
}

// MarkStreamComplete records paths for age-based cleanup without
// deleting them immediately — retained for max_retention so a
// downstream review session can still reference them.
func (m *Manager) MarkStreamComplete(paths []string) {
	for _, path := range paths {
		e := m.getOrCreate(path)
		e.mu.Lock()
		if e.created.IsZero() {
			e.created = time.Now()
			m.log.Info("file tracked for retention", "path", path, "retention", m.maxRetention)
		}
		e.mu.Unlock()
	}
}

func (m *Manager) cleanupFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		m.log.Warn("error cleaning up file", "path", path, "err", err)
	} else {
		m.log.Info("cleaned up file", "path", path)
	}
	m.mu.Lock()
	delete(m.entries, path)
	m.mu.Unlock()
}

func (m *Manager) sweepLoop() {
	defer close(m.doneCh)
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sweepOnce()
		}
	}
}

func (m *Manager) sweepOnce() {
	now := time.Now()
	var toClean []string

	m.mu.Lock()
	for path, e := range m.entries {
		e.mu.Lock()
		age := now.Sub(e.created)
		refs := e.refs
		e.mu.Unlock()
		if !e.created.IsZero() && age > m.maxRetention && refs <= 0 {
			toClean = append(toClean, path)
		}
	}
	m.mu.Unlock()

	for _, path := range toClean {
		m.cleanupFile(path)
	}
	if len(toClean) > 0 {
		m.log.Info("sweep cleaned up old files", "count", len(toClean))
	}
}

// Stats reports point-in-time lifecycle statistics for operational
// visibility.
type Stats struct {
	TrackedFiles     int
	ActiveReferences int
	OldestFileAge    time.Duration
}

func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stats Stats
	now := time.Now()
	stats.TrackedFiles = len(m.entries)
	for _, e := range m.entries {
		e.mu.Lock()
		stats.ActiveReferences += e.refs
		if !e.created.IsZero() {
			if age := now.Sub(e.created); age > stats.OldestFileAge {
				stats.OldestFileAge = age
			}
		}
		e.mu.Unlock()
	}
	return stats
}
