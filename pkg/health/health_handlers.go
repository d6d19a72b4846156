package health

import (
	"encoding/json"
	"net/http"
)

// ReadinessHandler serves readiness. Only a fully healthy response is ready.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, c.CheckReadiness(), false)
	}
}

// LivenessHandler serves liveness. A degraded process is still alive.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, c.CheckLiveness(), true)
	}
}

func writeResponse(w http.ResponseWriter, response Response, allowDegraded bool) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case response.Status == StatusHealthy:
		w.WriteHeader(http.StatusOK)
	case response.Status == StatusDegraded && allowDegraded:
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(response) //nolint:errcheck
}
