package invalidation

import (
	"encoding/json"
	"testing"
	"time"
)

func validEvent() Event {
	return Event{
		Version:  1,
		Op:       "update",
		Register: "C",
		Zone:     "800001",
		Seq:      7,
		TS:       time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
	}
}

func TestEventValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Event)
		wantOK bool
	}{
		{"valid", func(*Event) {}, true},
		{"republish op", func(e *Event) { e.Op = "republish" }, true},
		{"register E", func(e *Event) { e.Register = "E" }, true},
		{"bad version", func(e *Event) { e.Version = 2 }, false},
		{"bad op", func(e *Event) { e.Op = "upsert" }, false},
		{"bad register", func(e *Event) { e.Register = "X" }, false},
		{"empty zone", func(e *Event) { e.Zone = "  " }, false},
		{"non numeric zone", func(e *Event) { e.Zone = "80x001" }, false},
		{"zero ts", func(e *Event) { e.TS = time.Time{} }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := validEvent()
			tc.mutate(&ev)
			err := ev.Validate()
			if tc.wantOK && err != nil {
				t.Fatalf("want valid, got %v", err)
			}
			if !tc.wantOK && err == nil {
				t.Fatal("want validation error")
			}
		})
	}
}

func TestEventJSONRoundTrip(t *testing.T) {
	ev := validEvent()
	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Event
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != ev {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, ev)
	}
}

func TestDedupeKeyScopesRegisterAndZone(t *testing.T) {
	a := validEvent()
	b := validEvent()
	b.Register = "E"
	if a.DedupeKey() == b.DedupeKey() {
		t.Fatal("registers must not share a dedupe key")
	}
}
