package worker

import (
	"sync"
	"time"
)

const (
	WorkerStatusHealthy = "healthy"
	WorkerStatusFailed  = "failed"
)

// WorkerHealth is the recorded state of a single worker. Error details are
// deliberately not kept here; health output may be exposed publicly.
type WorkerHealth struct {
	Status    string    `json:"status"`
	LastCheck time.Time `json:"last_check"`
}

// HealthStatus is an aggregate snapshot across all workers.
type HealthStatus struct {
	Status    string                  `json:"status"`
	Timestamp time.Time               `json:"timestamp"`
	Workers   map[string]WorkerHealth `json:"workers"`
}

// HealthTracker records per-worker health. Safe for concurrent use.
type HealthTracker struct {
	mu      sync.RWMutex
	workers map[string]WorkerHealth
}

func NewHealthTracker() *HealthTracker {
	return &HealthTracker{
		workers: make(map[string]WorkerHealth),
	}
}

func (h *HealthTracker) MarkHealthy(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.workers[name] = WorkerHealth{
		Status:    WorkerStatusHealthy,
		LastCheck: time.Now(),
	}
}

func (h *HealthTracker) MarkFailed(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.workers[name] = WorkerHealth{
		Status:    WorkerStatusFailed,
		LastCheck: time.Now(),
	}
}

// IsHealthy reports whether every tracked worker is healthy.
func (h *HealthTracker) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.isHealthyLocked()
}

// GetStatus returns the aggregate snapshot with a copy of the per-worker
// map, stamped with the time of the check.
func (h *HealthTracker) GetStatus() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	workers := make(map[string]WorkerHealth, len(h.workers))
	for name, w := range h.workers {
		workers[name] = w
	}

	status := WorkerStatusHealthy
	if !h.isHealthyLocked() {
		status = WorkerStatusFailed
	}

	return HealthStatus{
		Status:    status,
		Timestamp: time.Now(),
		Workers:   workers,
	}
}

func (h *HealthTracker) isHealthyLocked() bool {
	for _, w := range h.workers {
		if w.Status != WorkerStatusHealthy {
			return false
		}
	}
	return true
}
