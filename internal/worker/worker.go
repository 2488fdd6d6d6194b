// Package worker drains buffered flag writes to the storage backend on a
// fixed interval, keeping the evaluation loop free of DB latency.
package worker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fitvtt/attrition/internal/flagstore"
)

// Manager owns the flush goroutine for a buffering backend.
type Manager struct {
	flusher  flagstore.Flusher
	interval time.Duration
	log      *slog.Logger

	stopChan chan struct{}
	done     sync.WaitGroup

	mu            sync.Mutex
	lastWriteTook time.Duration
}

// NewManager creates a new worker manager. flusher may be nil when the
// configured backend writes synchronously; Start is then a no-op.
func NewManager(flusher flagstore.Flusher, interval time.Duration, log *slog.Logger) *Manager {
	return &Manager{
		flusher:  flusher,
		interval: interval,
		log:      log,
		stopChan: make(chan struct{}),
	}
}

// Start launches the flush goroutine.
func (m *Manager) Start() {
	if m.flusher == nil || m.interval <= 0 {
		return
	}
	m.done.Add(1)
	go m.flushLoop()
}

// Stop halts the goroutine and runs one final flush.
func (m *Manager) Stop() {
	close(m.stopChan)
	m.done.Wait()
	if m.flusher != nil {
		if err := m.flusher.Flush(); err != nil {
			m.log.Error("final flush failed", "error", err)
		}
	}
}

// PendingWrites returns the backend's queued write count.
func (m *Manager) PendingWrites() int {
	if m.flusher == nil {
		return 0
	}
	return m.flusher.PendingWrites()
}

// GetLastDBWriteDuration returns the duration of the last flush cycle.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastWriteTook
}

func (m *Manager) flushLoop() {
	defer m.done.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := m.flusher.Flush(); err != nil {
				m.log.Error("flush failed, writes requeued", "error", err,
					"pending", m.flusher.PendingWrites())
				continue
			}
			took := time.Since(start)
			m.mu.Lock()
			m.lastWriteTook = took
			m.mu.Unlock()
		}
	}
}
