package health

import (
	"context"
	"fmt"
	"runtime"
)

// MemoryProbeConfig configures the built-in process memory probe.
type MemoryProbeConfig struct {
	// MaxAllocBytes is the allocation level treated as failure.
	// Default: 0 (derive from runtime-reported system memory)
	MaxAllocBytes uint64

	// FailureRatio is the fraction of MaxAllocBytes at which the probe
	// fails. Value between 0 and 1. Default: 0.95
	FailureRatio float64
}

// MemoryProbe returns a Probe that fails once the process heap crosses
// the configured ratio. Useful as a lightweight self-dependency probe.
func MemoryProbe(config MemoryProbeConfig) Probe {
	if config.FailureRatio <= 0 || config.FailureRatio >= 1 {
		config.FailureRatio = 0.95
	}

	return func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)

		maxAlloc := config.MaxAllocBytes
		if maxAlloc == 0 {
			maxAlloc = stats.Sys
		}
		if maxAlloc == 0 {
			return nil
		}

		ratio := float64(stats.Alloc) / float64(maxAlloc)
		if ratio >= config.FailureRatio {
			return fmt.Errorf("%w: heap at %.1f%% of %d bytes", ErrProbeFailed, ratio*100, maxAlloc)
		}
		return nil
	}
}
