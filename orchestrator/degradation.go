package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/justiceautomation/legalops/observe"
)

// DegradationLevel is a named, graduated operating mode that trades
// functionality and capacity for stability.
type DegradationLevel int

const (
	// LevelNormal is full functionality.
	LevelNormal DegradationLevel = iota
	// LevelLight shortens dependency timeouts.
	LevelLight
	// LevelModerate also stops health probing and sheds capacity.
	LevelModerate
	// LevelSevere narrows the system to an emergency floor and bypasses
	// circuit breaking entirely.
	LevelSevere
)

// String returns the string representation of the level.
func (l DegradationLevel) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelLight:
		return "light"
	case LevelModerate:
		return "moderate"
	case LevelSevere:
		return "severe"
	default:
		return "unknown"
	}
}

// ParseLevel parses a degradation level name.
func ParseLevel(s string) (DegradationLevel, error) {
	switch s {
	case "normal":
		return LevelNormal, nil
	case "light":
		return LevelLight, nil
	case "moderate":
		return LevelModerate, nil
	case "severe":
		return LevelSevere, nil
	default:
		return LevelNormal, fmt.Errorf("orchestrator: unknown degradation level %q", s)
	}
}

// emergencyMaxConcurrent is the admission floor under severe degradation.
const emergencyMaxConcurrent = 10

// GlobalSettings is the working copy of the process-wide knobs that
// degradation scales and recovery restores.
type GlobalSettings struct {
	MaxConcurrentOperations int
	TimeoutMultiplier       float64
	CircuitBreakersEnabled  bool
	HealthChecksEnabled     bool
}

// HandleSystemDegradation applies a degradation level. Every application
// is one-shot, computed from the configured baseline, never stacked on a
// previous level. The transition is caller-triggered; nothing inside the
// orchestrator degrades on its own.
func (o *Orchestrator) HandleSystemDegradation(level DegradationLevel) {
	if level == LevelNormal {
		o.RecoverFromDegradation()
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	switch level {
	case LevelLight:
		o.scaleTimeoutsLocked(0.9)

	case LevelModerate:
		o.scaleTimeoutsLocked(0.7)
		o.prober.Stop()
		o.settings.HealthChecksEnabled = false
		o.settings.MaxConcurrentOperations = shrink(o.baseline.MaxConcurrentOperations, 0.7)

	case LevelSevere:
		o.scaleTimeoutsLocked(0.5)
		o.prober.Stop()
		o.settings.HealthChecksEnabled = false
		o.settings.MaxConcurrentOperations = emergencyMaxConcurrent
		o.settings.CircuitBreakersEnabled = false
		for _, reg := range o.services {
			breaker := reg.service.Breaker()
			breaker.Disable()
			breaker.ForceReset()
		}
	}

	o.level = level
	o.logger.Warn(context.Background(), "system degradation applied",
		observe.F("level", level.String()),
		observe.F("max_concurrent_operations", o.settings.MaxConcurrentOperations),
		observe.F("timeout_multiplier", o.settings.TimeoutMultiplier),
	)
}

// RecoverFromDegradation resets the system to the configured baseline:
// working timeouts, admission ceiling, circuit breakers and health
// probing all return to their registered values, regardless of which
// level was active. This is an absolute reset, not a walk back through
// intermediate levels.
func (o *Orchestrator) RecoverFromDegradation() {
	o.mu.Lock()

	for _, reg := range o.services {
		reg.service.SetTimeout(reg.baseline.Timeout)
		if o.baseline.CircuitBreakersEnabled {
			reg.service.Breaker().Enable()
		}
	}
	o.settings = o.baseline
	o.level = LevelNormal

	restartProber := o.initialized && o.baseline.HealthChecksEnabled
	interval := o.probeIntervalLocked()
	o.mu.Unlock()

	if restartProber {
		o.prober.Start(interval)
	}

	o.logger.Info(context.Background(), "system recovered to normal operation")
}

// Level returns the currently applied degradation level.
func (o *Orchestrator) Level() DegradationLevel {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.level
}

// scaleTimeoutsLocked sets every dependency's working timeout to its
// baseline scaled by factor.
func (o *Orchestrator) scaleTimeoutsLocked(factor float64) {
	o.settings.TimeoutMultiplier = factor
	for _, reg := range o.services {
		scaled := time.Duration(float64(reg.baseline.Timeout) * factor)
		reg.service.SetTimeout(scaled)
	}
}

func shrink(n int, factor float64) int {
	scaled := int(float64(n) * factor)
	if scaled < 1 {
		return 1
	}
	return scaled
}
