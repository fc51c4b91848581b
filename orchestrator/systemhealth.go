package orchestrator

import (
	"math"
	"time"

	"github.com/justiceautomation/legalops/health"
	"github.com/justiceautomation/legalops/resilience"
)

// OverallHealth summarizes the whole system.
type OverallHealth struct {
	Status                  string `json:"status"`
	HealthPercentage        int    `json:"healthPercentage"`
	ActiveOperations        int    `json:"activeOperations"`
	MaxConcurrentOperations int    `json:"maxConcurrentOperations"`
}

// SystemHealth aggregates per-dependency health and circuit snapshots.
type SystemHealth struct {
	Overall          OverallHealth                         `json:"overall"`
	Services         map[string]health.Report              `json:"services"`
	CircuitBreakers  map[string]resilience.CircuitSnapshot `json:"circuitBreakers"`
	DegradationLevel string                                `json:"degradationLevel"`
	Timestamp        time.Time                             `json:"timestamp"`
}

// SystemHealth returns the aggregate view: per-dependency prober reports,
// circuit snapshots, and an overall status derived from the healthy
// fraction (critical below 50%, degraded below 80%). Dependencies that
// have not been probed yet count as healthy.
func (o *Orchestrator) SystemHealth() SystemHealth {
	reports := o.prober.Reports()

	o.mu.Lock()
	circuits := make(map[string]resilience.CircuitSnapshot, len(o.services))
	for name, reg := range o.services {
		circuits[name] = reg.service.Breaker().Snapshot()
	}
	total := len(o.services)
	activeCount := len(o.active)
	maxConcurrent := o.settings.MaxConcurrentOperations
	level := o.level
	o.mu.Unlock()

	healthy := 0
	for name := range circuits {
		report, probed := reports[name]
		if !probed || report.Status == health.StatusHealthy || report.Status == health.StatusUnknown {
			healthy++
		}
	}

	percentage := 100
	if total > 0 {
		percentage = int(math.Round(100 * float64(healthy) / float64(total)))
	}

	status := "healthy"
	switch {
	case percentage < 50:
		status = "critical"
	case percentage < 80:
		status = "degraded"
	}

	return SystemHealth{
		Overall: OverallHealth{
			Status:                  status,
			HealthPercentage:        percentage,
			ActiveOperations:        activeCount,
			MaxConcurrentOperations: maxConcurrent,
		},
		Services:         reports,
		CircuitBreakers:  circuits,
		DegradationLevel: level.String(),
		Timestamp:        time.Now(),
	}
}
