package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// LivenessHandler returns an HTTP handler for liveness probes. It only
// proves the process is running.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// SnapshotResponse is the JSON body of the detailed health endpoint.
type SnapshotResponse struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Probes    map[string]ProbeResponse `json:"probes,omitempty"`
}

// ProbeResponse is the JSON view of one dependency's report.
type ProbeResponse struct {
	Status              string `json:"status"`
	LastCheck           string `json:"lastCheck,omitempty"`
	ConsecutiveFailures int    `json:"consecutiveFailures"`
	MaxFailures         int    `json:"maxFailures"`
	Error               string `json:"error,omitempty"`
}

// SnapshotHandler returns an HTTP handler serving the prober's current
// classifications. It reports state; it does not trigger probes.
func SnapshotHandler(p *Prober) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reports := p.Reports()

		response := SnapshotResponse{
			Status:    Overall(reports).String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Probes:    make(map[string]ProbeResponse, len(reports)),
		}

		for name, report := range reports {
			pr := ProbeResponse{
				Status:              report.Status.String(),
				ConsecutiveFailures: report.ConsecutiveFailures,
				MaxFailures:         report.MaxFailures,
			}
			if !report.LastCheck.IsZero() {
				pr.LastCheck = report.LastCheck.UTC().Format(time.RFC3339)
			}
			if report.Err != nil {
				pr.Error = report.Err.Error()
			}
			response.Probes[name] = pr
		}

		w.Header().Set("Content-Type", "application/json")
		if Overall(reports) == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(response)
	}
}

// Overall folds per-dependency reports into one status: unhealthy beats
// degraded beats healthy; dependencies never probed count as healthy.
func Overall(reports map[string]Report) Status {
	status := StatusHealthy
	for _, report := range reports {
		switch report.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// RegisterHandlers mounts the health endpoints on the given mux.
func RegisterHandlers(mux *http.ServeMux, p *Prober) {
	mux.HandleFunc("/healthz", LivenessHandler())
	mux.HandleFunc("/health", SnapshotHandler(p))
}
