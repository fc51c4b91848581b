package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/justiceautomation/legalops/config"
)

func newHealthFixture(t *testing.T, total, unhealthy int) *Orchestrator {
	t.Helper()

	names := []string{"document-generation", "ai-inference", "blockchain", "templates", "notifications"}
	deps := make([]config.Dependency, 0, total)
	for i := 0; i < total; i++ {
		dep := testDependency(names[i])
		dep.MaxProbeFailures = 1
		deps = append(deps, dep)
	}

	o := New(testConfig(deps...))
	for i := 0; i < unhealthy; i++ {
		name := names[i]
		if err := o.SetProbe(name, func(ctx context.Context) error {
			return errors.New("unreachable")
		}); err != nil {
			t.Fatalf("SetProbe(%s) error = %v", name, err)
		}
	}

	o.Prober().CheckAll(context.Background())
	return o
}

func TestSystemHealth_AllHealthy(t *testing.T) {
	o := newHealthFixture(t, 5, 0)
	sh := o.SystemHealth()

	if sh.Overall.HealthPercentage != 100 {
		t.Errorf("HealthPercentage = %d, want 100", sh.Overall.HealthPercentage)
	}
	if sh.Overall.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", sh.Overall.Status)
	}
	if len(sh.Services) != 5 {
		t.Errorf("Services = %d entries, want 5", len(sh.Services))
	}
	if len(sh.CircuitBreakers) != 5 {
		t.Errorf("CircuitBreakers = %d entries, want 5", len(sh.CircuitBreakers))
	}
	if sh.DegradationLevel != "normal" {
		t.Errorf("DegradationLevel = %q, want normal", sh.DegradationLevel)
	}
	if sh.Timestamp.IsZero() {
		t.Error("Timestamp is zero")
	}
}

func TestSystemHealth_TwoOfFiveUnhealthy(t *testing.T) {
	o := newHealthFixture(t, 5, 2)
	sh := o.SystemHealth()

	if sh.Overall.HealthPercentage != 60 {
		t.Errorf("HealthPercentage = %d, want 60", sh.Overall.HealthPercentage)
	}
	if sh.Overall.Status != "degraded" {
		t.Errorf("Status = %q, want degraded", sh.Overall.Status)
	}
}

func TestSystemHealth_ThreeOfFiveUnhealthy(t *testing.T) {
	o := newHealthFixture(t, 5, 3)
	sh := o.SystemHealth()

	if sh.Overall.HealthPercentage != 40 {
		t.Errorf("HealthPercentage = %d, want 40", sh.Overall.HealthPercentage)
	}
	if sh.Overall.Status != "critical" {
		t.Errorf("Status = %q, want critical", sh.Overall.Status)
	}
}

func TestSystemHealth_UnprobedCountsHealthy(t *testing.T) {
	// No CheckAll: every dependency still has unknown status.
	o := New(testConfig(testDependency("database"), testDependency("templates")))
	sh := o.SystemHealth()

	if sh.Overall.HealthPercentage != 100 {
		t.Errorf("HealthPercentage = %d, want 100 with no probes run", sh.Overall.HealthPercentage)
	}
	if sh.Overall.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", sh.Overall.Status)
	}
}

func TestSystemHealth_NoDependencies(t *testing.T) {
	o := New(testConfig())
	sh := o.SystemHealth()

	if sh.Overall.HealthPercentage != 100 {
		t.Errorf("HealthPercentage = %d, want 100 with nothing registered", sh.Overall.HealthPercentage)
	}
}

func TestSystemHealth_ActiveOperationCounts(t *testing.T) {
	cfg := testConfig(testDependency("database"))
	cfg.Global.MaxConcurrentOperations = 25
	o := New(cfg)

	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = o.ExecuteOperation(context.Background(), "database",
			func(ctx context.Context) (any, error) {
				<-release
				return nil, nil
			})
	}()
	waitForActive(t, o, 1)

	sh := o.SystemHealth()
	if sh.Overall.ActiveOperations != 1 {
		t.Errorf("ActiveOperations = %d, want 1", sh.Overall.ActiveOperations)
	}
	if sh.Overall.MaxConcurrentOperations != 25 {
		t.Errorf("MaxConcurrentOperations = %d, want 25", sh.Overall.MaxConcurrentOperations)
	}

	close(release)
	<-done
}
