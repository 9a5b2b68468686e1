package wfs

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"parcelone/internal/core/model"
	"parcelone/internal/core/observability"
	"parcelone/internal/core/ogc"
	"parcelone/internal/timing"
)

// Options are the pagination guards. Zero values take the observed
// defaults; both limits are tunable because their magic values come from
// server behavior, not from any documented contract.
type Options struct {
	PageSize          int
	PreviewPageSize   int
	StartIndexCeiling int
	MinPlausibleBytes int
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = 1000
	}
	if o.PreviewPageSize <= 0 {
		o.PreviewPageSize = 500
	}
	if o.StartIndexCeiling <= 0 {
		o.StartIndexCeiling = 500_000
	}
	if o.MinPlausibleBytes <= 0 {
		o.MinPlausibleBytes = 10_000
	}
	return o
}

// Fetcher drives the accumulation loop and the fallback state machine.
// It is a pure function of its query: no hidden cache, no globals. One
// Fetcher is safe for concurrent use.
type Fetcher struct {
	client *Client
	baseC  string
	baseE  string
	opts   Options
	sink   timing.Sink
}

func NewFetcher(client *Client, baseC, baseE string, opts Options, sink timing.Sink) *Fetcher {
	if sink == nil {
		sink = timing.Nop
	}
	return &Fetcher{
		client: client,
		baseC:  baseC,
		baseE:  baseE,
		opts:   opts.withDefaults(),
		sink:   sink,
	}
}

func (f *Fetcher) base(r model.Register) string {
	if r == model.RegisterE {
		return f.baseE
	}
	return f.baseC
}

// queryState is the per-query mutable state of the orchestrator. The SRS
// drop and the CQL switch are one-time, query-scoped downgrades: once
// taken they hold for every later page of the same query.
type queryState struct {
	droppedSRS bool
	useCQL     bool
}

// FetchGML pages through GML responses with the full fallback ladder.
func (f *Fetcher) FetchGML(ctx context.Context, q model.Query) model.FetchResult {
	res, _ := f.fetchGML(ctx, q, f.opts.PageSize, 0)
	return res
}

// FetchGMLPaged is FetchGML with an explicit page size (the bbox resolver
// uses size 1).
func (f *Fetcher) FetchGMLPaged(ctx context.Context, q model.Query, pageSize int) model.FetchResult {
	if pageSize <= 0 {
		pageSize = f.opts.PageSize
	}
	res, _ := f.fetchGML(ctx, q, pageSize, 0)
	return res
}

// fetchGML runs the accumulation loop. maxPages > 0 stops early after that
// many pages (the parallel planner fetches page one this way); 0 means
// run to completion. The returned queryState tells the caller which
// downgrades the ladder took.
func (f *Fetcher) fetchGML(ctx context.Context, q model.Query, pageSize, maxPages int) (model.FetchResult, queryState) {
	defer timing.Track(f.sink, "wfs_gml")()

	if err := q.Validate(); err != nil {
		return model.FetchResult{Note: err.Error()}, queryState{}
	}
	fes := ogc.BuildFESFilter(q.ZoneCode, q.Parcels)
	if fes == "" {
		return model.FetchResult{Note: "invalid filter: no zone code and no parcels"}, queryState{}
	}

	base := f.base(q.Register)
	layer := ogc.ParcelLayer(q.Register)
	client := f.client.WithRegister(string(q.Register))

	var (
		st       queryState
		pages    [][]byte
		firstURL string
		start    int
		cql      string
	)

loop:
	for {
		params := ogc.GetFeatureParams{
			Layer:      layer,
			Count:      pageSize,
			StartIndex: start,
		}
		if st.useCQL {
			params.CQLFilter = cql
		} else {
			params.FESFilter = fes
		}
		if q.SRS != "" && !st.droppedSRS {
			params.SRS = q.SRS
		}
		url := params.URL(base)
		if firstURL == "" {
			firstURL = url
		}

		body, err := client.GetBytes(ctx, url)
		if err != nil {
			var he *HTTPError
			is400 := errors.As(err, &he) && he.Status == http.StatusBadRequest

			// Checks fire in fixed order; exactly one transition per
			// failure.
			switch {
			case is400 && len(pages) > 0:
				// Out-of-range startIndex commonly comes back as 400
				// rather than an empty page. End of pagination, not a
				// failure.
				observability.IncFallback("end_on_400")
				break loop

			case is400 && q.SRS != "" && !st.droppedSRS:
				// Query-scoped one-time downgrade: retry this page and
				// all later ones without srsName.
				observability.IncFallback("drop_srs")
				st.droppedSRS = true
				continue

			case is400 && len(q.Parcels) > 0:
				observability.IncFallback("split_by_one")
				if res, ok := f.splitByOne(ctx, client, base, layer, q, st); ok {
					res.FirstURL = firstURL
					return res, st
				}
				// No single-label query produced features; fall through
				// to the CQL dialect.
				fallthrough

			case errors.As(err, &he):
				cql = ogc.BuildCQLFilter(q.ZoneCode, q.Parcels)
				if cql == "" {
					return model.FetchResult{Note: fmt.Sprintf("HTTP error: %v", err), FirstURL: firstURL}, st
				}
				observability.IncFallback("cql")
				cqlParams := params
				cqlParams.FESFilter = ""
				cqlParams.CQLFilter = cql
				cqlURL := cqlParams.URL(base)
				body, err = client.GetBytes(ctx, cqlURL)
				if err != nil {
					return model.FetchResult{
						Note:     fmt.Sprintf("HTTP error: %v\nCQL fallback failed: %v", he, err),
						FirstURL: firstURL,
					}, st
				}
				// The CQL dialect sticks for the rest of this query so
				// every later page does not re-trigger the same 400.
				st.useCQL = true

			default:
				// Transport failure that survived the retry budget, or
				// anything else unclassified. Terminal.
				return model.FetchResult{Note: fmt.Sprintf("error: %v", err), FirstURL: firstURL}, st
			}
		}

		nr, hasCount := DeclaredCount(body)
		if (hasCount && nr == 0) || !HasAnyFeature(body) {
			break
		}
		pages = append(pages, body)
		if maxPages > 0 && len(pages) >= maxPages {
			break
		}

		if hasCount {
			if nr < pageSize {
				break
			}
			start += nr
		} else {
			// No count metadata: a short body is taken as the last page.
			if len(body) < f.opts.MinPlausibleBytes {
				break
			}
			start += pageSize
		}
		if start > f.opts.StartIndexCeiling {
			break
		}
	}

	if len(pages) == 0 {
		return model.FetchResult{Note: "server returned 0 features for this filter", FirstURL: firstURL}, st
	}
	observability.AddPages("gml", len(pages))
	return model.FetchResult{
		OK:          true,
		Note:        fmt.Sprintf("pages: %d", len(pages)),
		Pages:       pages,
		FirstURL:    firstURL,
		DetectedCRS: f.effectiveCRS(q, st, pages[0]),
	}, st
}

// splitByOne issues one independent single-label query per parcel and
// keeps the bodies that contain features. Each sub-query is a fresh
// single page (size 1000, startIndex 0); the normal pagination loop is
// bypassed entirely.
func (f *Fetcher) splitByOne(ctx context.Context, client *Client, base, layer string, q model.Query, st queryState) (model.FetchResult, bool) {
	var singles [][]byte
	for _, label := range q.Parcels {
		params := ogc.GetFeatureParams{
			Layer:      layer,
			Count:      1000,
			StartIndex: 0,
			FESFilter:  ogc.BuildFESFilter(q.ZoneCode, []string{label}),
		}
		if q.SRS != "" && !st.droppedSRS {
			params.SRS = q.SRS
		}
		body, err := client.GetBytes(ctx, params.URL(base))
		if err != nil {
			continue
		}
		if HasAnyFeature(body) {
			singles = append(singles, body)
		}
	}
	if len(singles) == 0 {
		return model.FetchResult{}, false
	}
	observability.AddPages("gml", len(singles))
	return model.FetchResult{
		OK:          true,
		Note:        fmt.Sprintf("pages: %d (split-by-one)", len(singles)),
		Pages:       singles,
		DetectedCRS: f.effectiveCRS(q, st, singles[0]),
	}, true
}

func (f *Fetcher) effectiveCRS(q model.Query, st queryState, firstPage []byte) string {
	if q.SRS != "" && !st.droppedSRS {
		return q.SRS
	}
	return DetectCRS(firstPage)
}

// FetchGeoJSON pages through GeoJSON responses. This path keeps only the
// end-on-400 shortcut from the fallback ladder; previews that need more
// resilience go through PreviewAutoFallback instead.
func (f *Fetcher) FetchGeoJSON(ctx context.Context, q model.Query, pageSize int) model.FetchResult {
	defer timing.Track(f.sink, "wfs_geojson")()

	if pageSize <= 0 {
		pageSize = f.opts.PreviewPageSize
	}
	if err := q.Validate(); err != nil {
		return model.FetchResult{Note: err.Error()}
	}
	fes := ogc.BuildFESFilter(q.ZoneCode, q.Parcels)
	if fes == "" {
		return model.FetchResult{Note: "invalid filter: no zone code and no parcels"}
	}

	base := f.base(q.Register)
	layer := ogc.ParcelLayer(q.Register)
	client := f.client.WithRegister(string(q.Register))

	var (
		pages    [][]byte
		firstURL string
		start    int
	)

	for {
		params := ogc.GetFeatureParams{
			Layer:        layer,
			Count:        pageSize,
			StartIndex:   start,
			FESFilter:    fes,
			SRS:          q.SRS,
			OutputFormat: ogc.GeoJSONFormat,
		}
		url := params.URL(base)
		if firstURL == "" {
			firstURL = url
		}

		body, err := client.GetBytes(ctx, url)
		if err != nil {
			var he *HTTPError
			if errors.As(err, &he) && he.Status == http.StatusBadRequest && len(pages) > 0 {
				observability.IncFallback("end_on_400")
				break
			}
			return model.FetchResult{Note: fmt.Sprintf("HTTP error: %v", err), FirstURL: firstURL}
		}

		nfeats, _ := DeclaredCount(body)
		if nfeats == 0 {
			break
		}
		pages = append(pages, body)

		if nfeats < pageSize {
			break
		}
		start += pageSize
		if start > f.opts.StartIndexCeiling {
			break
		}
	}

	if len(pages) == 0 {
		return model.FetchResult{Note: "server returned 0 features for this filter", FirstURL: firstURL}
	}
	observability.AddPages("geojson", len(pages))
	return model.FetchResult{
		OK:          true,
		Note:        fmt.Sprintf("pages: %d", len(pages)),
		Pages:       pages,
		FirstURL:    firstURL,
		DetectedCRS: q.SRS,
	}
}

// PreviewAutoFallback tries GeoJSON fetches across the candidate SRS list
// (requested one first, then WGS84, server default, S-JTSK) and returns
// the first non-empty result.
func (f *Fetcher) PreviewAutoFallback(ctx context.Context, q model.Query, pageSize int) model.FetchResult {
	candidates := []string{q.SRS, "EPSG:4326", "", "EPSG:5514"}
	tried := map[string]bool{}
	var last model.FetchResult
	for _, srs := range candidates {
		key := srs
		if tried[key] {
			continue
		}
		tried[key] = true
		qq := q
		qq.SRS = srs
		last = f.FetchGeoJSON(ctx, qq, pageSize)
		if last.OK && len(last.Pages) > 0 {
			return last
		}
		if ctx.Err() != nil {
			break
		}
	}
	if last.Note == "" {
		last.Note = "empty output for all srsName candidates"
	}
	return last
}
