// Package invalidation defines the cache invalidation event contract.
//
// Events arrive on a message topic whenever the cadastre upstream
// re-publishes data for a zone. Consumers evict every cached query
// scoped to that zone.
package invalidation

import (
	"fmt"
	"strings"
	"time"
)

type Event struct {
	// Version is the event schema version, currently 1.
	Version int `json:"version"`
	// Op is the upstream change kind: "update", "republish" or "delete".
	Op string `json:"op"`
	// Register selects the cadastral register, "C" or "E".
	Register string `json:"register"`
	// Zone is the six digit cadastral zone code the change applies to.
	Zone string `json:"zone"`
	// Seq orders events per (register, zone); stale sequence numbers are
	// dropped by consumers.
	Seq    uint64    `json:"seq"`
	TS     time.Time `json:"ts"`
	Source string    `json:"source,omitempty"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	switch e.Op {
	case "update", "republish", "delete":
	default:
		return fmt.Errorf("op must be update|republish|delete")
	}
	switch e.Register {
	case "C", "E":
	default:
		return fmt.Errorf("register must be C or E")
	}
	zone := strings.TrimSpace(e.Zone)
	if zone == "" {
		return fmt.Errorf("zone is required")
	}
	for _, r := range zone {
		if r < '0' || r > '9' {
			return fmt.Errorf("zone must be numeric, got %q", e.Zone)
		}
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	return nil
}

// DedupeKey scopes sequence ordering to one zone in one register.
func (e Event) DedupeKey() string {
	return e.Register + ":" + e.Zone
}
