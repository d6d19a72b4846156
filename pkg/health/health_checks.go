package health

import (
	"context"
	"runtime"
	"time"
)

// ReportCheck is healthy once a report is loaded. runID returns the loaded
// run's ID, or "" when none is available.
func ReportCheck(runID func() string) CheckFunc {
	return func() Check {
		check := Check{Name: "report"}
		id := runID()
		if id == "" {
			check.Status = StatusUnhealthy
			check.Message = "No report loaded"
			return check
		}
		check.Status = StatusHealthy
		check.Details = map[string]any{"run_id": id}
		return check
	}
}

// DatabaseCheck pings the result store, failing after timeout
func DatabaseCheck(ping func(context.Context) error, timeout time.Duration) CheckFunc {
	return func() Check {
		check := Check{Name: "database"}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := ping(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Connected"
		}
		return check
	}
}

// MemoryCheck degrades when the heap exceeds limitBytes
func MemoryCheck(limitBytes uint64) CheckFunc {
	return func() Check {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)
		return memoryCheck(stats.HeapAlloc, limitBytes)
	}
}

func memoryCheck(heapAlloc, limitBytes uint64) Check {
	check := Check{
		Name: "memory",
		Details: map[string]any{
			"heap_alloc_bytes": heapAlloc,
			"limit_bytes":      limitBytes,
		},
	}
	if limitBytes > 0 && heapAlloc > limitBytes {
		check.Status = StatusDegraded
		check.Message = "High memory usage"
	} else {
		check.Status = StatusHealthy
		check.Message = "Memory usage normal"
	}
	return check
}
