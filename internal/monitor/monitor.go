// Package monitor periodically snapshots engine health to a status file and
// optionally to InfluxDB, so a GM can check what the engine is doing without
// attaching a debugger to a live session.
package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fitvtt/attrition/internal/influx"
	"github.com/fitvtt/attrition/internal/scheduler"
	"github.com/fitvtt/attrition/internal/worker"
)

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	Scheduler *scheduler.Scheduler
	Worker    *worker.Manager
	Influx    *influx.Manager // nil when influx is disabled
	Log       *slog.Logger
	StatusDir string
	Interval  time.Duration
}

// Status is one snapshot of engine health.
type Status struct {
	Time                time.Time `json:"time"`
	EvalCycles          int       `json:"evalCycles"`
	LastEvalWorldTime   int64     `json:"lastEvalWorldTime"`
	LastEvalDurationMs  float64   `json:"lastEvalDurationMs"`
	PendingWrites       int       `json:"pendingWrites"`
	LastWriteDurationMs float64   `json:"lastWriteDurationMs"`
}

// Service manages status monitoring.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus returns the current engine status.
func (s *Service) GetStatus() Status {
	cycles, lastAt, lastTook := s.deps.Scheduler.Stats()
	return Status{
		Time:                time.Now(),
		EvalCycles:          cycles,
		LastEvalWorldTime:   lastAt,
		LastEvalDurationMs:  float64(lastTook.Microseconds()) / 1000.0,
		PendingWrites:       s.deps.Worker.PendingWrites(),
		LastWriteDurationMs: float64(s.deps.Worker.GetLastDBWriteDuration().Microseconds()) / 1000.0,
	}
}

// Start starts the status monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		var statusFile *os.File
		if s.deps.StatusDir != "" {
			var err error
			statusFile, err = os.Create(filepath.Join(s.deps.StatusDir, "status.json"))
			if err != nil {
				s.deps.Log.Error("creating status file", "error", err)
			}
		}
		if statusFile != nil {
			defer statusFile.Close()
		}

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				status := s.GetStatus()

				if statusFile != nil {
					statusFile.Truncate(0)
					statusFile.Seek(0, 0)
					enc := json.NewEncoder(statusFile)
					enc.SetIndent("", "  ")
					if err := enc.Encode(status); err != nil {
						s.deps.Log.Error("writing status file", "error", err)
					}
				}

				if s.deps.Influx != nil {
					point := influx.EvaluationPoint(
						status.EvalCycles,
						status.LastEvalWorldTime,
						time.Duration(status.LastEvalDurationMs*float64(time.Millisecond)),
						status.PendingWrites,
					)
					if err := s.deps.Influx.WritePoint(context.Background(), influx.BucketPerformance, point); err != nil {
						s.deps.Log.Error("writing performance point", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
