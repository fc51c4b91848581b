// Package health probes external dependencies on a timer and keeps a
// rolling healthy/degraded/unhealthy classification per dependency.
//
// A probe is any lightweight availability check:
//
//	prober := health.NewProber()
//	prober.Register("database", func(ctx context.Context) error {
//	    return db.PingContext(ctx)
//	}, health.ProbeConfig{Timeout: 2 * time.Second, MaxFailures: 3})
//
//	prober.Start(30 * time.Second)
//	defer prober.Stop()
//
// Every probe run is deadline-enforced. A success resets the consecutive
// failure count; failures first degrade and then, at the configured
// limit, mark the dependency unhealthy. Start and Stop are idempotent.
//
// SnapshotHandler exposes the current view over HTTP for ops tooling.
package health
