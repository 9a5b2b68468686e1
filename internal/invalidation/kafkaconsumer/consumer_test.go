package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"

	"parcelone/internal/core/model"
	"parcelone/internal/invalidation"
)

type fakeTarget struct {
	mu    sync.Mutex
	calls []string
	fail  bool
}

func (f *fakeTarget) InvalidateZone(_ context.Context, r model.Register, zone string) (int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, string(r)+":"+zone)
	f.mu.Unlock()
	if f.fail {
		return 0, errors.New("boom")
	}
	return 3, nil
}

func (f *fakeTarget) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestConsumer(target ZoneInvalidator) *Consumer {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(Config{Brokers: []string{"unused:9092"}}, log, target)
}

func msgFor(t *testing.T, ev invalidation.Event) *sarama.ConsumerMessage {
	t.Helper()
	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &sarama.ConsumerMessage{Topic: "cadastre-updates", Value: raw}
}

func event(zone string, seq uint64) invalidation.Event {
	return invalidation.Event{
		Version:  1,
		Op:       "update",
		Register: "C",
		Zone:     zone,
		Seq:      seq,
		TS:       time.Now(),
	}
}

func TestProcessOne_EvictsZone(t *testing.T) {
	target := &fakeTarget{}
	c := newTestConsumer(target)

	if err := c.ProcessOne(context.Background(), msgFor(t, event("800001", 1))); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}
	got := target.seen()
	if len(got) != 1 || got[0] != "C:800001" {
		t.Fatalf("calls got %v", got)
	}
}

func TestProcessOne_MalformedAndInvalidEventsAreDropped(t *testing.T) {
	target := &fakeTarget{}
	c := newTestConsumer(target)

	bad := &sarama.ConsumerMessage{Topic: "cadastre-updates", Value: []byte("not json")}
	if err := c.ProcessOne(context.Background(), bad); err != nil {
		t.Fatalf("malformed message must not error: %v", err)
	}

	ev := event("800001", 1)
	ev.Op = "upsert"
	if err := c.ProcessOne(context.Background(), msgFor(t, ev)); err != nil {
		t.Fatalf("invalid event must not error: %v", err)
	}

	if got := target.seen(); len(got) != 0 {
		t.Fatalf("dropped events must not evict, got %v", got)
	}
}

func TestProcessOne_StaleSequenceSkipped(t *testing.T) {
	target := &fakeTarget{}
	c := newTestConsumer(target)

	ctx := context.Background()
	_ = c.ProcessOne(ctx, msgFor(t, event("800001", 5)))
	_ = c.ProcessOne(ctx, msgFor(t, event("800001", 5)))
	_ = c.ProcessOne(ctx, msgFor(t, event("800001", 3)))
	_ = c.ProcessOne(ctx, msgFor(t, event("800001", 6)))

	if got := target.seen(); len(got) != 2 {
		t.Fatalf("want 2 applied events, got %v", got)
	}
}

func TestProcessOne_SequencesAreZoneScoped(t *testing.T) {
	target := &fakeTarget{}
	c := newTestConsumer(target)

	ctx := context.Background()
	_ = c.ProcessOne(ctx, msgFor(t, event("800001", 5)))
	_ = c.ProcessOne(ctx, msgFor(t, event("800002", 1)))

	if got := target.seen(); len(got) != 2 {
		t.Fatalf("zones must not share sequence state, got %v", got)
	}
}

func TestProcessOne_EvictionFailurePropagates(t *testing.T) {
	target := &fakeTarget{fail: true}
	c := newTestConsumer(target)

	if err := c.ProcessOne(context.Background(), msgFor(t, event("800001", 1))); err == nil {
		t.Fatal("eviction failure must surface for redelivery")
	}
}
