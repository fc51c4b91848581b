package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/justiceautomation/legalops/catalog"
	"github.com/justiceautomation/legalops/config"
	"github.com/justiceautomation/legalops/health"
	"github.com/justiceautomation/legalops/observe"
	"github.com/justiceautomation/legalops/resilience"
)

// OperationRecord tracks one in-flight operation. Records exist only for
// the duration of a single call and are removed on every exit path.
type OperationRecord struct {
	OperationID string
	Dependency  string
	StartTime   time.Time
}

// registration binds a façade to its immutable baseline config.
type registration struct {
	service  *resilience.Service
	baseline config.Dependency
	probe    health.Probe
}

// Orchestrator owns the dependency registry, the health prober, global
// admission control and graduated degradation/recovery. It is the entry
// point the rest of the application calls into.
type Orchestrator struct {
	logger  observe.Logger
	tracer  trace.Tracer
	metrics *metrics
	catalog *catalog.Catalog

	global    config.Global
	baseline  GlobalSettings
	fallbacks *resilience.FallbackRegistry
	stale     *resilience.StaleCache
	prober    *health.Prober

	mu          sync.Mutex
	initialized bool
	services    map[string]*registration
	order       []string
	active      map[string]OperationRecord
	settings    GlobalSettings
	level       DegradationLevel

	opSeq atomic.Uint64
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger observe.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMeter installs OpenTelemetry instruments on the given meter.
func WithMeter(meter metric.Meter) Option {
	return func(o *Orchestrator) {
		m, err := newMetrics(meter)
		if err == nil {
			o.metrics = m
		}
	}
}

// WithTracer sets the tracer used to span each operation.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = tracer }
}

// WithObserver wires logger, meter and tracer from one Observer.
func WithObserver(obs *observe.Observer) Option {
	return func(o *Orchestrator) {
		WithLogger(obs.Logger())(o)
		WithMeter(obs.Meter())(o)
		WithTracer(obs.Tracer())(o)
	}
}

// WithCatalog sets the message catalog used to localize outgoing errors.
func WithCatalog(c *catalog.Catalog) Option {
	return func(o *Orchestrator) { o.catalog = c }
}

// WithStaleCache lets façades record successful results for stale-
// serving fallbacks.
func WithStaleCache(c *resilience.StaleCache) Option {
	return func(o *Orchestrator) { o.stale = c }
}

// New creates an orchestrator from global settings. Dependencies
// declared in cfg are registered immediately, without probes; attach
// probes via RegisterService or SetProbe before Initialize.
func New(cfg config.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:    observe.NopLogger(),
		tracer:    tracenoop.NewTracerProvider().Tracer("noop"),
		catalog:   catalog.Default(),
		global:    cfg.Global,
		fallbacks: resilience.NewFallbackRegistry(),
		prober:    health.NewProber(),
		services:  make(map[string]*registration),
		active:    make(map[string]OperationRecord),
	}

	o.baseline = GlobalSettings{
		MaxConcurrentOperations: cfg.Global.MaxConcurrentOperations,
		TimeoutMultiplier:       1.0,
		CircuitBreakersEnabled:  cfg.Global.EnableCircuitBreakers,
		HealthChecksEnabled:     cfg.Global.EnableHealthChecks,
	}
	o.settings = o.baseline

	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		if m, err := newMetrics(metricnoop.NewMeterProvider().Meter("noop")); err == nil {
			o.metrics = m
		}
	}

	for _, dep := range cfg.Dependencies {
		_ = o.RegisterService(dep, nil)
	}

	return o
}

// RegisterService builds a façade for a dependency, records its baseline
// config, registers its probe, and appends any fallbacks to the
// dependency's chain. A nil probe is treated as always-reachable.
func (o *Orchestrator) RegisterService(dep config.Dependency, probe health.Probe, fallbacks ...resilience.Fallback) error {
	if dep.Name == "" {
		return resilience.NewError(resilience.KindValidation, "dependency name is required")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.services[dep.Name]; exists {
		return resilience.NewError(resilience.KindValidation, "dependency %s already registered", dep.Name)
	}

	if len(fallbacks) > 0 {
		o.fallbacks.Register(dep.Name, fallbacks...)
	}

	name := dep.Name
	svc := resilience.NewService(resilience.ServiceConfig{
		Name:             name,
		Timeout:          dep.Timeout,
		MaxRetries:       dep.MaxRetries,
		FailureThreshold: dep.CircuitBreakerThreshold,
		ResetTimeout:     dep.CircuitBreakerResetTimeout,
		EnableRetries:    o.global.EnableRetries,
		EnableFallbacks:  o.global.EnableFallbacks,
		Fallbacks:        o.fallbacks,
		Stale:            o.stale,
		OnStateChange: func(from, to resilience.State) {
			o.metrics.recordTransition(name, from.String(), to.String())
			o.logger.Warn(context.Background(), "circuit state changed",
				observe.F("dependency", name),
				observe.F("from", from.String()),
				observe.F("to", to.String()),
			)
		},
		OnRetry: func(attempt int, err error, delay time.Duration) {
			o.logger.Debug(context.Background(), "retrying operation",
				observe.F("dependency", name),
				observe.F("attempt", attempt),
				observe.F("delay", delay.String()),
				observe.F("error", err.Error()),
			)
		},
	})

	if !o.global.EnableCircuitBreakers {
		svc.Breaker().Disable()
	}

	if probe == nil {
		probe = func(ctx context.Context) error { return nil }
	}
	o.prober.Register(name, probe, health.ProbeConfig{
		Timeout:     dep.Timeout,
		MaxFailures: dep.MaxProbeFailures,
	})

	o.services[name] = &registration{service: svc, baseline: dep, probe: probe}
	o.order = append(o.order, name)
	return nil
}

// SetProbe replaces the probe for an already-registered dependency.
func (o *Orchestrator) SetProbe(name string, probe health.Probe) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	reg, ok := o.services[name]
	if !ok {
		return resilience.NewError(resilience.KindValidation, "unknown dependency %s", name)
	}
	reg.probe = probe
	o.prober.Register(name, probe, health.ProbeConfig{
		Timeout:     reg.baseline.Timeout,
		MaxFailures: reg.baseline.MaxProbeFailures,
	})
	return nil
}

// GetService returns the façade for a dependency.
func (o *Orchestrator) GetService(name string) (*resilience.Service, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	reg, ok := o.services[name]
	if !ok {
		return nil, false
	}
	return reg.service, true
}

// AllServices returns the registered dependency names in registration
// order.
func (o *Orchestrator) AllServices() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	names := make([]string, len(o.order))
	copy(names, o.order)
	return names
}

// Initialize starts periodic health probing when configured on. Calling
// it again is a no-op.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.mu.Lock()
	if o.initialized {
		o.mu.Unlock()
		return nil
	}
	o.initialized = true
	start := o.baseline.HealthChecksEnabled
	interval := o.probeIntervalLocked()
	count := len(o.services)
	o.mu.Unlock()

	if start {
		o.prober.Start(interval)
	}

	o.logger.Info(ctx, "resilience orchestrator initialized",
		observe.F("dependencies", count),
		observe.F("health_checks", start),
	)
	return nil
}

// probeIntervalLocked picks the periodic probing interval: the minimum
// configured per-dependency interval, since the prober runs one timer.
func (o *Orchestrator) probeIntervalLocked() time.Duration {
	interval := 30 * time.Second
	for _, reg := range o.services {
		if reg.baseline.HealthCheckInterval > 0 && reg.baseline.HealthCheckInterval < interval {
			interval = reg.baseline.HealthCheckInterval
		}
	}
	return interval
}

// ExecuteOperation runs an operation against a named dependency through
// its resilience façade. Calls beyond the concurrency ceiling are
// rejected immediately, before the operation or any façade machinery is
// touched. The in-flight record is removed on every exit path.
func (o *Orchestrator) ExecuteOperation(ctx context.Context, name string, op resilience.Operation, opts ...resilience.ExecOption) (resilience.Result, error) {
	execOpts := resilience.NewExecOptions(opts...)

	o.mu.Lock()
	reg, ok := o.services[name]
	if !ok {
		o.mu.Unlock()
		err := resilience.NewError(resilience.KindValidation, "unknown dependency %s", name)
		err.Dependency = name
		return resilience.Result{}, o.localize(err, execOpts.Language)
	}

	if len(o.active) >= o.settings.MaxConcurrentOperations {
		limit := o.settings.MaxConcurrentOperations
		o.mu.Unlock()
		o.metrics.recordRejection(ctx, name)
		o.logger.Warn(ctx, "operation rejected at admission",
			observe.F("dependency", name),
			observe.F("max_concurrent_operations", limit),
		)
		err := resilience.NewError(resilience.KindCapacityExceeded,
			"system at capacity (%d operations in flight)", limit)
		err.Dependency = name
		return resilience.Result{}, o.localize(err, execOpts.Language)
	}

	opID := fmt.Sprintf("%s-%d-%d", name, o.opSeq.Add(1), time.Now().UnixMilli())
	o.active[opID] = OperationRecord{
		OperationID: opID,
		Dependency:  name,
		StartTime:   time.Now(),
	}
	o.mu.Unlock()

	o.metrics.addActive(ctx, 1)
	defer func() {
		// Unconditional cleanup: the record must not outlive the call.
		o.mu.Lock()
		delete(o.active, opID)
		o.mu.Unlock()
		o.metrics.addActive(ctx, -1)
	}()

	ctx, span := o.tracer.Start(ctx, "legalops.execute",
		trace.WithAttributes(
			attribute.String("dependency", name),
			attribute.String("operation.id", opID),
		))
	defer span.End()

	start := time.Now()
	result, err := reg.service.ExecuteOpts(ctx, op, execOpts)
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
		o.metrics.recordOperation(ctx, name, "error", elapsed)
		o.logger.Error(ctx, "operation failed",
			observe.F("dependency", name),
			observe.F("operation_id", opID),
			observe.F("duration_seconds", elapsed.Seconds()),
			observe.F("error", err.Error()),
		)
		return resilience.Result{}, o.localize(err, execOpts.Language)
	}

	status := "ok"
	if result.FallbackUsed {
		status = "fallback"
	}
	o.metrics.recordOperation(ctx, name, status, elapsed)
	o.logger.Debug(ctx, "operation completed",
		observe.F("dependency", name),
		observe.F("operation_id", opID),
		observe.F("duration_seconds", elapsed.Seconds()),
		observe.F("fallback_used", result.FallbackUsed),
	)
	return result, nil
}

// ActiveOperations returns the number of in-flight operations.
func (o *Orchestrator) ActiveOperations() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.active)
}

// Prober exposes the health prober, e.g. for mounting HTTP handlers.
func (o *Orchestrator) Prober() *health.Prober {
	return o.prober
}

// Fallbacks exposes the fallback chain registry.
func (o *Orchestrator) Fallbacks() *resilience.FallbackRegistry {
	return o.fallbacks
}

// localize attaches user-facing text for the requested language to an
// outgoing error.
func (o *Orchestrator) localize(err error, lang string) error {
	e, ok := err.(*resilience.Error)
	if !ok || o.catalog == nil {
		return err
	}
	if lang == "" {
		lang = catalog.DefaultLanguage
	}
	msg := o.catalog.Lookup(e.Kind, lang)
	e.Localized = &msg
	return e
}

// Shutdown stops health probing and waits, bounded by the configured
// shutdown timeout, for in-flight operations to drain. Remaining
// operations are logged and abandoned.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.prober.Stop()

	timeout := o.global.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		remaining := o.ActiveOperations()
		if remaining == 0 {
			o.logger.Info(ctx, "orchestrator shut down cleanly")
			return nil
		}
		if time.Now().After(deadline) {
			o.logger.Warn(ctx, "shutdown timeout reached with operations in flight",
				observe.F("remaining", remaining))
			return nil
		}

		select {
		case <-ctx.Done():
			o.logger.Warn(ctx, "shutdown context cancelled with operations in flight",
				observe.F("remaining", remaining))
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
