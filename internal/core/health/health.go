// Package health exposes liveness and readiness handlers.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

// Pinger reports whether a dependency answers; the cache store qualifies.
type Pinger interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

// Readiness reports ready when every named dependency answers a probe
// read within the timeout.
func Readiness(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type resp struct {
			Status string            `json:"status"`
			Deps   map[string]string `json:"deps,omitempty"`
		}
		out := resp{Status: "ready", Deps: map[string]string{}}
		ready := true
		for name, p := range deps {
			ctx, cancel := context.WithTimeout(r.Context(), time.Second)
			_, _, err := p.Get(ctx, "healthcheck")
			cancel()
			if err != nil {
				out.Deps[name] = err.Error()
				ready = false
			} else {
				out.Deps[name] = "ok"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if !ready {
			out.Status = "not_ready"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
