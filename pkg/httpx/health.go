package httpx

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// HealthChecker is satisfied by any infrastructure dependency that exposes
// a Ping method: Database, RedisClient, EventBus and TemporalClient.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthChecks maps a dependency name, as reported in the response body, to
// its checker. Only configured dependencies are registered, so a memory-mode
// process reports an empty set and is always healthy.
type HealthChecks map[string]HealthChecker

// HealthTimeout bounds a whole /health probe. Checks run concurrently, so a
// slow dependency does not eat the budget of the others.
const HealthTimeout = 2 * time.Second

// HealthHandler probes every registered checker and answers 503 when any of
// them fails. The body is flat:
// {"status":"degraded","database":"ok","redis":"unreachable"}.
func HealthHandler(checks HealthChecks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), HealthTimeout)
		defer cancel()

		var (
			mu   sync.Mutex
			wg   sync.WaitGroup
			resp = map[string]string{"status": "ok"}
		)
		for name, check := range checks {
			if check == nil {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				state := "ok"
				if err := check.Ping(ctx); err != nil {
					state = "unreachable"
				}
				mu.Lock()
				resp[name] = state
				if state != "ok" {
					resp["status"] = "degraded"
				}
				mu.Unlock()
			}()
		}
		wg.Wait()

		status := http.StatusOK
		if resp["status"] != "ok" {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Cache-Control", "no-store")
		JSON(w, status, resp)
	}
}
