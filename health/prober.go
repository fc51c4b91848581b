package health

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status classifies a dependency's current availability.
type Status int

const (
	// StatusUnknown means the dependency has not been probed yet.
	StatusUnknown Status = iota
	// StatusHealthy means the last probe succeeded.
	StatusHealthy
	// StatusDegraded means recent probes failed but fewer than the limit.
	StatusDegraded
	// StatusUnhealthy means consecutive failures reached the limit.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the status as its string form.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Probe is a lightweight availability check for one dependency.
type Probe func(ctx context.Context) error

// ProbeConfig configures a registered probe.
type ProbeConfig struct {
	// Timeout bounds a single probe invocation.
	// Default: 5 seconds
	Timeout time.Duration

	// MaxFailures is the consecutive-failure count at which the
	// dependency is classified unhealthy.
	// Default: 3
	MaxFailures int
}

// Report is the rolling classification for one dependency.
type Report struct {
	Name                string        `json:"name"`
	Status              Status        `json:"status"`
	LastCheck           time.Time     `json:"lastCheck,omitzero"`
	ConsecutiveFailures int           `json:"consecutiveFailures"`
	MaxFailures         int           `json:"maxFailures"`
	Duration            time.Duration `json:"-"`
	Err                 error         `json:"-"`
}

// probeState is the mutable record behind a registered probe.
type probeState struct {
	probe  Probe
	config ProbeConfig

	status      Status
	lastCheck   time.Time
	consecutive int
	duration    time.Duration
	lastErr     error
}

// Prober periodically invokes a lightweight probe per registered
// dependency and maintains a rolling healthy/degraded/unhealthy view.
type Prober struct {
	mu     sync.Mutex
	probes map[string]*probeState
	order  []string // registration order

	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewProber creates an empty prober.
func NewProber() *Prober {
	return &Prober{
		probes: make(map[string]*probeState),
	}
}

// Register adds a probe for a dependency, replacing any previous one.
func (p *Prober) Register(name string, probe Probe, config ProbeConfig) {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.MaxFailures <= 0 {
		config.MaxFailures = 3
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.probes[name]; !exists {
		p.order = append(p.order, name)
	}
	p.probes[name] = &probeState{
		probe:  probe,
		config: config,
		status: StatusUnknown,
	}
}

// Unregister removes a probe.
func (p *Prober) Unregister(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.probes, name)
	for i, n := range p.order {
		if n == name {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Names returns the registered dependency names in registration order.
func (p *Prober) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, len(p.order))
	copy(names, p.order)
	return names
}

// CheckOne probes a single dependency now and updates its report.
func (p *Prober) CheckOne(ctx context.Context, name string) (Report, error) {
	p.mu.Lock()
	state, ok := p.probes[name]
	p.mu.Unlock()

	if !ok {
		return Report{}, ErrProbeNotFound
	}

	err, elapsed := runProbe(ctx, state.probe, state.config.Timeout)

	p.mu.Lock()
	defer p.mu.Unlock()

	// The probe may have been unregistered while running.
	if current, still := p.probes[name]; !still || current != state {
		return Report{}, ErrProbeNotFound
	}

	state.lastCheck = time.Now()
	state.duration = elapsed
	state.lastErr = err

	if err == nil {
		state.consecutive = 0
		state.status = StatusHealthy
	} else {
		state.consecutive++
		if state.consecutive >= state.config.MaxFailures {
			state.status = StatusUnhealthy
		} else {
			state.status = StatusDegraded
		}
	}

	return reportLocked(name, state), nil
}

// CheckAll probes every registered dependency with bounded parallelism
// and returns the fresh reports.
func (p *Prober) CheckAll(ctx context.Context) map[string]Report {
	names := p.Names()

	reports := make(map[string]Report, len(names))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for _, name := range names {
		g.Go(func() error {
			report, err := p.CheckOne(ctx, name)
			if err != nil {
				return nil // unregistered mid-flight
			}
			mu.Lock()
			reports[name] = report
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return reports
}

// Reports returns the current classifications without probing.
func (p *Prober) Reports() map[string]Report {
	p.mu.Lock()
	defer p.mu.Unlock()

	reports := make(map[string]Report, len(p.probes))
	for name, state := range p.probes {
		reports[name] = reportLocked(name, state)
	}
	return reports
}

// Start begins periodic probing on a single timer. Calling Start while
// already running is a no-op.
func (p *Prober) Start(interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	stop, done := p.stop, p.done
	p.mu.Unlock()

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.CheckAll(context.Background())
			case <-stop:
				return
			}
		}
	}()
}

// Stop halts periodic probing and waits for the loop to exit. Calling
// Stop while already stopped is a no-op.
func (p *Prober) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stop, done := p.stop, p.done
	p.mu.Unlock()

	close(stop)
	<-done
}

// Running reports whether periodic probing is active.
func (p *Prober) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func reportLocked(name string, state *probeState) Report {
	return Report{
		Name:                name,
		Status:              state.status,
		LastCheck:           state.lastCheck,
		ConsecutiveFailures: state.consecutive,
		MaxFailures:         state.config.MaxFailures,
		Duration:            state.duration,
		Err:                 state.lastErr,
	}
}

// runProbe races the probe against its timeout. A probe that overruns is
// counted as a failure; its late result is discarded.
func runProbe(ctx context.Context, probe Probe, timeout time.Duration) (error, time.Duration) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- probe(ctx)
	}()

	select {
	case err := <-errCh:
		return err, time.Since(start)
	case <-ctx.Done():
		return ErrProbeTimeout, time.Since(start)
	}
}
