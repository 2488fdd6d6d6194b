package worker

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFlusher struct {
	mu      sync.Mutex
	flushes int
	pending int
	err     error
}

func (f *fakeFlusher) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	if f.err != nil {
		return f.err
	}
	f.pending = 0
	return nil
}

func (f *fakeFlusher) PendingWrites() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

func (f *fakeFlusher) flushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushes
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManager_FlushesOnInterval(t *testing.T) {
	f := &fakeFlusher{pending: 5}
	m := NewManager(f, 10*time.Millisecond, discardLogger())

	m.Start()
	time.Sleep(50 * time.Millisecond)
	m.Stop()

	require.GreaterOrEqual(t, f.flushCount(), 2)
	assert.Equal(t, 0, m.PendingWrites())
}

func TestManager_StopRunsFinalFlush(t *testing.T) {
	f := &fakeFlusher{pending: 3}
	m := NewManager(f, time.Hour, discardLogger())

	m.Start()
	m.Stop()

	assert.Equal(t, 1, f.flushCount(), "final flush only, interval never fired")
}

func TestManager_FlushErrorKeepsRunning(t *testing.T) {
	f := &fakeFlusher{pending: 2, err: errors.New("db gone")}
	m := NewManager(f, 10*time.Millisecond, discardLogger())

	m.Start()
	time.Sleep(40 * time.Millisecond)
	m.Stop()

	assert.GreaterOrEqual(t, f.flushCount(), 2, "errors must not stop the loop")
	assert.Equal(t, 2, m.PendingWrites(), "failed flush leaves writes pending")
}

func TestManager_NilFlusher(t *testing.T) {
	m := NewManager(nil, 10*time.Millisecond, discardLogger())

	m.Start()
	m.Stop()

	assert.Equal(t, 0, m.PendingWrites())
	assert.Equal(t, time.Duration(0), m.GetLastDBWriteDuration())
}
