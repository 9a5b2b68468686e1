package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"parcelone/internal/cache/memstore"
	"parcelone/internal/core/model"
)

type fakeBackend struct {
	fetchCalls   int
	previewCalls int
	bboxCalls    int
	result       model.FetchResult
	bbox         model.BBox
	bboxOK       bool
}

func (f *fakeBackend) FetchGML(context.Context, model.Query) model.FetchResult {
	f.fetchCalls++
	return f.result
}

func (f *fakeBackend) FetchGeoJSON(context.Context, model.Query, int) model.FetchResult {
	f.fetchCalls++
	return f.result
}

func (f *fakeBackend) PreviewAutoFallback(context.Context, model.Query, int) model.FetchResult {
	f.previewCalls++
	return f.result
}

func (f *fakeBackend) ZoneBBox(context.Context, model.Register, string) (model.BBox, bool) {
	f.bboxCalls++
	return f.bbox, f.bboxOK
}

func newCached(t *testing.T, b *fakeBackend) *CachedFetcher {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ttl := func(string) time.Duration { return time.Minute }
	return NewCachedFetcher(b, memstore.New(64), ttl, log, 250*time.Millisecond, 1000, 500)
}

func TestFetchGML_SecondCallServedFromCache(t *testing.T) {
	b := &fakeBackend{result: model.FetchResult{
		OK:          true,
		Note:        "pages: 2",
		Pages:       [][]byte{[]byte("<a/>"), []byte("<b/>")},
		FirstURL:    "http://example/wfs?x=1",
		DetectedCRS: "EPSG:5514",
	}}
	cf := newCached(t, b)
	q := model.Query{Register: model.RegisterC, ZoneCode: "800001"}

	first := cf.FetchGML(context.Background(), q)
	second := cf.FetchGML(context.Background(), q)

	if b.fetchCalls != 1 {
		t.Fatalf("backend calls got %d want 1", b.fetchCalls)
	}
	if !second.OK || second.Note != first.Note || second.DetectedCRS != "EPSG:5514" {
		t.Fatalf("cached result mismatch: %+v", second)
	}
	if len(second.Pages) != 2 || string(second.Pages[1]) != "<b/>" {
		t.Fatalf("cached pages mismatch: %d", len(second.Pages))
	}
}

func TestFetchGML_FailuresAreNotCached(t *testing.T) {
	b := &fakeBackend{result: model.FetchResult{OK: false, Note: "error: boom"}}
	cf := newCached(t, b)
	q := model.Query{Register: model.RegisterC, ZoneCode: "800001"}

	cf.FetchGML(context.Background(), q)
	cf.FetchGML(context.Background(), q)

	if b.fetchCalls != 2 {
		t.Fatalf("failed results must bypass cache, backend calls got %d", b.fetchCalls)
	}
}

func TestFetchGML_DifferentQueriesDoNotCollide(t *testing.T) {
	b := &fakeBackend{result: model.FetchResult{OK: true, Note: "pages: 1"}}
	cf := newCached(t, b)

	cf.FetchGML(context.Background(), model.Query{Register: model.RegisterC, ZoneCode: "800001"})
	cf.FetchGML(context.Background(), model.Query{Register: model.RegisterE, ZoneCode: "800001"})

	if b.fetchCalls != 2 {
		t.Fatalf("distinct queries must each hit the backend, got %d calls", b.fetchCalls)
	}
}

func TestZoneBBox_CachesFoundBoxes(t *testing.T) {
	b := &fakeBackend{bbox: model.BBox{MinX: 17, MinY: 48, MaxX: 18, MaxY: 49}, bboxOK: true}
	cf := newCached(t, b)

	bb1, ok1 := cf.ZoneBBox(context.Background(), model.RegisterC, "800001")
	bb2, ok2 := cf.ZoneBBox(context.Background(), model.RegisterC, "800001")

	if !ok1 || !ok2 || bb1 != bb2 {
		t.Fatalf("bbox mismatch: %v/%v %v/%v", bb1, ok1, bb2, ok2)
	}
	if b.bboxCalls != 1 {
		t.Fatalf("backend calls got %d want 1", b.bboxCalls)
	}
}

func TestZoneBBox_NotFoundIsNotCached(t *testing.T) {
	b := &fakeBackend{bboxOK: false}
	cf := newCached(t, b)

	cf.ZoneBBox(context.Background(), model.RegisterC, "800001")
	cf.ZoneBBox(context.Background(), model.RegisterC, "800001")

	if b.bboxCalls != 2 {
		t.Fatalf("not-found must bypass cache, got %d calls", b.bboxCalls)
	}
}

func TestInvalidateZone_EvictsAllClassesForZone(t *testing.T) {
	b := &fakeBackend{
		result: model.FetchResult{OK: true, Note: "pages: 1"},
		bbox:   model.BBox{MinX: 1, MinY: 2, MaxX: 3, MaxY: 4},
		bboxOK: true,
	}
	cf := newCached(t, b)
	q := model.Query{Register: model.RegisterC, ZoneCode: "800001"}

	cf.FetchGML(context.Background(), q)
	cf.PreviewAutoFallback(context.Background(), q, 500)
	cf.ZoneBBox(context.Background(), model.RegisterC, "800001")

	n, err := cf.InvalidateZone(context.Background(), model.RegisterC, "800001")
	if err != nil {
		t.Fatalf("InvalidateZone: %v", err)
	}
	if n != 3 {
		t.Fatalf("evicted got %d want 3", n)
	}

	cf.FetchGML(context.Background(), q)
	if b.fetchCalls != 2 {
		t.Fatalf("post-invalidation fetch must hit the backend, got %d calls", b.fetchCalls)
	}
}
