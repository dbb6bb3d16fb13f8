package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager runs registered checkers and aggregates their results.
type Manager struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	logger   *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{checkers: make(map[string]Checker), logger: logger}
}

// Register adds a checker. Names must be unique.
func (m *Manager) Register(c Checker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.checkers[c.Name()]; exists {
		return fmt.Errorf("health: checker %q already registered", c.Name())
	}
	m.checkers[c.Name()] = c
	return nil
}

// Unregister removes a checker by name.
func (m *Manager) Unregister(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.checkers, name)
}

// Check runs every checker concurrently with its own timeout and aggregates
// the results. Critical failures make the service unhealthy and not ready;
// non-critical failures only degrade it.
func (m *Manager) Check(ctx context.Context) Overall {
	m.mu.RLock()
	checkers := make([]Checker, 0, len(m.checkers))
	for _, c := range m.checkers {
		checkers = append(checkers, c)
	}
	m.mu.RUnlock()

	results := make(map[string]CheckResult, len(checkers))
	var wg sync.WaitGroup
	var resMu sync.Mutex

	for _, c := range checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			timeout := c.Timeout()
			if timeout <= 0 {
				timeout = 5 * time.Second
			}
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			res := c.Check(cctx)
			res.Component = c.Name()
			res.Critical = c.IsCritical()
			res.Duration = time.Since(start)
			res.Timestamp = time.Now()

			resMu.Lock()
			results[c.Name()] = res
			resMu.Unlock()
		}(c)
	}
	wg.Wait()

	overall := Overall{
		Status:     StatusHealthy,
		Ready:      true,
		Timestamp:  time.Now(),
		Components: results,
	}
	for _, res := range results {
		if res.Status == StatusHealthy {
			continue
		}
		if res.Critical {
			overall.Status = StatusUnhealthy
			overall.Ready = false
			m.logger.Warn("Critical component unhealthy",
				zap.String("component", res.Component),
				zap.String("error", res.Error))
		} else if overall.Status == StatusHealthy {
			overall.Status = StatusDegraded
		}
	}
	return overall
}

// Ready reports whether the service can serve requests.
func (m *Manager) Ready(ctx context.Context) bool {
	return m.Check(ctx).Ready
}
