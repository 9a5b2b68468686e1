package wfs

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"parcelone/internal/core/model"
	"parcelone/internal/core/observability"
	"parcelone/internal/core/ogc"
	"parcelone/internal/timing"
)

// FetchGMLParallel fetches page one sequentially (letting the fallback
// ladder settle the SRS and dialect state), then fans the remaining pages
// out concurrently when the server declared a reliable total. Pages are
// reassembled in startIndex order regardless of completion order. Without
// a declared total it degrades to the sequential loop.
func (f *Fetcher) FetchGMLParallel(ctx context.Context, q model.Query, workers int) model.FetchResult {
	defer timing.Track(f.sink, "wfs_gml_parallel")()

	if workers <= 1 {
		return f.FetchGML(ctx, q)
	}
	if err := q.Validate(); err != nil {
		return model.FetchResult{Note: err.Error()}
	}

	pageSize := f.opts.PageSize
	first, st := f.fetchGML(ctx, q, pageSize, 1)
	if !first.OK || len(first.Pages) == 0 {
		return first
	}
	if strings.Contains(first.Note, "split-by-one") {
		// Split results are final by construction.
		return first
	}
	total, ok := DeclaredMatched(first.Pages[0])
	if !ok {
		// No reliable total up front; fan-out is not valid, run the
		// strictly sequential loop instead.
		return f.FetchGML(ctx, q)
	}
	if total <= pageSize {
		return first
	}

	// The first fetch settled the per-query downgrades; replay them so
	// concurrent requests carry a consistent parameter set.
	srs := ""
	if q.SRS != "" && !st.droppedSRS {
		srs = q.SRS
	}
	fes := ogc.BuildFESFilter(q.ZoneCode, q.Parcels)
	cql := ""
	if st.useCQL {
		fes = ""
		cql = ogc.BuildCQLFilter(q.ZoneCode, q.Parcels)
	}
	base := f.base(q.Register)
	layer := ogc.ParcelLayer(q.Register)
	client := f.client.WithRegister(string(q.Register))

	starts := make([]int, 0, total/pageSize)
	for s := pageSize; s < total && s <= f.opts.StartIndexCeiling; s += pageSize {
		starts = append(starts, s)
	}

	type slot struct {
		body []byte
		err  error
	}
	slots := make([]slot, len(starts))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, s := range starts {
		wg.Add(1)
		go func(i, startIndex int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			params := ogc.GetFeatureParams{
				Layer:      layer,
				Count:      pageSize,
				StartIndex: startIndex,
				FESFilter:  fes,
				CQLFilter:  cql,
				SRS:        srs,
			}
			body, err := client.GetBytes(ctx, params.URL(base))
			slots[i] = slot{body: body, err: err}
		}(i, s)
	}
	wg.Wait()

	pages := first.Pages
	for i := range slots {
		if slots[i].err != nil {
			// A failed tail page invalidates the fan-out plan; the
			// sequential path would have surfaced or absorbed this via
			// the fallback ladder, so report it rather than return a
			// result with holes.
			return model.FetchResult{
				Note:     fmt.Sprintf("parallel page %d failed: %v", i+2, slots[i].err),
				FirstURL: first.FirstURL,
			}
		}
		if !HasAnyFeature(slots[i].body) {
			break
		}
		pages = append(pages, slots[i].body)
	}

	observability.AddPages("gml", len(pages)-len(first.Pages))
	return model.FetchResult{
		OK:          true,
		Note:        fmt.Sprintf("pages: %d (parallel)", len(pages)),
		Pages:       pages,
		FirstURL:    first.FirstURL,
		DetectedCRS: first.DetectedCRS,
	}
}
