// Package orchestrator is the control plane of the resilience layer. It
// owns the registry of per-dependency façades, the health prober, global
// admission control and graduated system degradation and recovery.
//
// Other subsystems call into ExecuteOperation:
//
//	orc := orchestrator.New(cfg, orchestrator.WithObserver(obs))
//	orc.RegisterService(config.DefaultDependency("ai-inference"), pingAI)
//	orc.Initialize(ctx)
//
//	res, err := orc.ExecuteOperation(ctx, "ai-inference",
//	    func(ctx context.Context) (any, error) {
//	        return client.Generate(ctx, prompt)
//	    },
//	    resilience.WithLanguage("es"),
//	)
//
// Operations beyond the concurrency ceiling are rejected before any
// façade machinery runs. Degradation levels are applied on request, each
// as a one-shot computed from the configured baseline; recovery is an
// absolute reset to that baseline.
package orchestrator
