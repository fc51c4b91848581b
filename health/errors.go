package health

import "errors"

var (
	// ErrProbeFailed indicates a probe reported failure.
	ErrProbeFailed = errors.New("health: probe failed")

	// ErrProbeTimeout indicates a probe overran its timeout.
	ErrProbeTimeout = errors.New("health: probe timeout")

	// ErrProbeNotFound indicates no probe is registered under the name.
	ErrProbeNotFound = errors.New("health: probe not found")
)
