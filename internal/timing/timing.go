// Package timing defines an injectable sink for per-step durations.
// Callers that do not care pass Nop; the service wires a prometheus-backed
// sink in observability.
package timing

import "time"

// Sink receives one observation per completed step.
type Sink interface {
	Observe(step string, d time.Duration)
}

// Func adapts a plain function to a Sink.
type Func func(step string, d time.Duration)

func (f Func) Observe(step string, d time.Duration) { f(step, d) }

// Nop discards all observations.
var Nop Sink = Func(func(string, time.Duration) {})

// Track measures a step from its call until the returned func runs.
//
//	defer timing.Track(sink, "wfs_gml")()
func Track(s Sink, step string) func() {
	if s == nil {
		s = Nop
	}
	t0 := time.Now()
	return func() { s.Observe(step, time.Since(t0)) }
}
