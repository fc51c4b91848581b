// Package observe provides structured logging and OpenTelemetry
// bootstrap for the resilience layer.
//
// Logging is zerolog-backed behind a small Logger interface; entries are
// automatically correlated with the active trace span. Tracing and
// metrics are standard OpenTelemetry providers with selectable exporters
// (otlp, prometheus, stdout, none).
//
//	obs, err := observe.NewObserver(ctx, observe.Config{
//	    ServiceName: "legalops",
//	    Version:     "1.4.0",
//	    Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
//	    Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
//	})
package observe
