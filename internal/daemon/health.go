package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/version"
)

// HealthStatus represents the overall health of the daemon
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck represents a single health check
type HealthCheck struct {
	Name        string        `json:"name"`
	Status      HealthStatus  `json:"status"`
	Message     string        `json:"message,omitempty"`
	Duration    time.Duration `json:"duration"`
	LastChecked time.Time     `json:"last_checked"`
}

// HealthResponse represents the complete health check response
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Uptime    string        `json:"uptime"`
	Version   string        `json:"version"`
	Checks    []HealthCheck `json:"checks"`
}

// PerformHealthChecks executes all health checks and returns the overall status
func (d *Daemon) PerformHealthChecks(ctx context.Context) *HealthResponse {
	checks := []HealthCheck{
		d.checkDaemonHealth(),
		d.checkStoreHealth(ctx),
		d.checkMaterialsHealth(),
	}

	overall := HealthStatusHealthy
	for _, c := range checks {
		switch c.Status {
		case HealthStatusUnhealthy:
			overall = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if overall == HealthStatusHealthy {
				overall = HealthStatusDegraded
			}
		}
	}

	return &HealthResponse{
		Status:    overall,
		Timestamp: time.Now(),
		Uptime:    d.uptime().String(),
		Version:   version.Version,
		Checks:    checks,
	}
}

func (d *Daemon) uptime() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.startTime.IsZero() {
		return 0
	}
	return time.Since(d.startTime).Truncate(time.Second)
}

func (d *Daemon) checkDaemonHealth() HealthCheck {
	start := time.Now()
	check := HealthCheck{Name: "daemon_status", LastChecked: start}

	switch d.GetStatus() {
	case StatusRunning:
		check.Status = HealthStatusHealthy
		check.Message = "Daemon is running normally"
	case StatusStarting:
		check.Status = HealthStatusDegraded
		check.Message = "Daemon is still starting up"
	case StatusStopping:
		check.Status = HealthStatusDegraded
		check.Message = "Daemon is shutting down"
	case StatusError:
		check.Status = HealthStatusUnhealthy
		check.Message = "Daemon is in error state"
	default:
		check.Status = HealthStatusUnhealthy
		check.Message = "Daemon is not running"
	}

	check.Duration = time.Since(start)
	return check
}

// checkStoreHealth issues a cheap query against the event store.
func (d *Daemon) checkStoreHealth(ctx context.Context) HealthCheck {
	start := time.Now()
	check := HealthCheck{Name: "event_store", LastChecked: start}

	if _, err := d.store.GetByMaterial(ctx, ""); err != nil {
		check.Status = HealthStatusUnhealthy
		check.Message = fmt.Sprintf("Event store query failed: %v", err)
	} else {
		check.Status = HealthStatusHealthy
		check.Message = "Event store is accessible"
	}

	check.Duration = time.Since(start)
	return check
}

// checkMaterialsHealth is degraded while any material's latest poll failed.
func (d *Daemon) checkMaterialsHealth() HealthCheck {
	start := time.Now()
	check := HealthCheck{Name: "materials", LastChecked: start}

	var failing []string
	for _, s := range d.projection.All() {
		if s.ConsecutiveFailures > 0 {
			failing = append(failing, s.Material)
		}
	}
	if len(failing) == 0 {
		check.Status = HealthStatusHealthy
		check.Message = fmt.Sprintf("%d material(s) configured", len(d.GetConfig().Materials))
	} else {
		check.Status = HealthStatusDegraded
		check.Message = fmt.Sprintf("Failing materials: %v", failing)
	}

	check.Duration = time.Since(start)
	return check
}
