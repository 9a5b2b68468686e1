package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcloughlin/geohash"

	"parcelone/internal/core/model"
	"parcelone/internal/core/observability"
	"parcelone/internal/export"
	"parcelone/internal/geojson"
	"parcelone/internal/zones"
)

// Service is the fetch surface the handlers call, usually the cached
// fetcher.
type Service interface {
	FetchGML(ctx context.Context, q model.Query) model.FetchResult
	FetchGeoJSON(ctx context.Context, q model.Query, pageSize int) model.FetchResult
	PreviewAutoFallback(ctx context.Context, q model.Query, pageSize int) model.FetchResult
	ZoneBBox(ctx context.Context, register model.Register, zone string) (model.BBox, bool)
}

// ParallelService fans pages out across workers; it bypasses the cache.
type ParallelService interface {
	FetchGMLParallel(ctx context.Context, q model.Query, workers int) model.FetchResult
}

type Handlers struct {
	log      *slog.Logger
	svc      Service
	parallel ParallelService
	zones    *zones.Table
	conv     export.Converter
	preview  int
}

func NewHandlers(log *slog.Logger, svc Service, parallel ParallelService, table *zones.Table, conv export.Converter, previewPageSize int) *Handlers {
	if table == nil {
		table = zones.Default()
	}
	if previewPageSize <= 0 {
		previewPageSize = 500
	}
	return &Handlers{
		log:      log,
		svc:      svc,
		parallel: parallel,
		zones:    table,
		conv:     conv,
		preview:  previewPageSize,
	}
}

type fetchResponse struct {
	OK          bool   `json:"ok"`
	Note        string `json:"note"`
	Pages       int    `json:"pages"`
	Bytes       int    `json:"bytes"`
	FirstURL    string `json:"first_url,omitempty"`
	DetectedCRS string `json:"detected_crs,omitempty"`
}

// Fetch runs the full paged GML fetch and reports a summary. Bodies are
// not returned here; /export streams them.
func (h *Handlers) Fetch() http.HandlerFunc {
	return h.observed("/fetch", func(w http.ResponseWriter, r *http.Request) {
		q, err := ParseQuery(r, h.zones)
		if err != nil {
			h.clientError(w, err)
			return
		}
		workers, err := parsePositiveInt(r.URL.Query().Get("workers"), 1)
		if err != nil {
			http.Error(w, "workers: "+err.Error(), http.StatusBadRequest)
			return
		}

		var res model.FetchResult
		if workers > 1 && h.parallel != nil {
			res = h.parallel.FetchGMLParallel(r.Context(), q, workers)
		} else {
			res = h.svc.FetchGML(r.Context(), q)
		}
		h.writeFetchResult(w, res)
	})
}

func (h *Handlers) writeFetchResult(w http.ResponseWriter, res model.FetchResult) {
	total := 0
	for _, p := range res.Pages {
		total += len(p)
	}
	out := fetchResponse{
		OK:          res.OK,
		Note:        res.Note,
		Pages:       len(res.Pages),
		Bytes:       total,
		FirstURL:    res.FirstURL,
		DetectedCRS: res.DetectedCRS,
	}
	w.Header().Set("Content-Type", "application/json")
	if !res.OK {
		w.WriteHeader(upstreamStatus(res.Note))
	}
	_ = json.NewEncoder(w).Encode(out)
}

// upstreamStatus maps a failed fetch to a response code: an empty result
// is the client's filter, everything else is the upstream's fault.
func upstreamStatus(note string) int {
	if strings.Contains(note, "0 features") || strings.Contains(note, "empty output") {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

// Preview fetches a capped GeoJSON preview with automatic srsName
// fallback and returns the merged FeatureCollection.
func (h *Handlers) Preview() http.HandlerFunc {
	return h.observed("/preview", func(w http.ResponseWriter, r *http.Request) {
		q, err := ParseQuery(r, h.zones)
		if err != nil {
			h.clientError(w, err)
			return
		}
		limit, err := parsePositiveInt(r.URL.Query().Get("limit"), h.preview)
		if err != nil {
			http.Error(w, "limit: "+err.Error(), http.StatusBadRequest)
			return
		}

		res := h.svc.PreviewAutoFallback(r.Context(), q, limit)
		if !res.OK {
			h.writeFetchResult(w, res)
			return
		}
		merged, stats, err := geojson.MergePages(res.Pages, limit)
		if err != nil {
			http.Error(w, "merge: "+err.Error(), http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("X-Features-Total", fmt.Sprint(stats.Total))
		w.Header().Set("X-Features-Kept", fmt.Sprint(stats.Kept))
		_, _ = w.Write(merged)
	})
}

type bboxResponse struct {
	Found  bool       `json:"found"`
	MinX   float64    `json:"min_x"`
	MinY   float64    `json:"min_y"`
	MaxX   float64    `json:"max_x"`
	MaxY   float64    `json:"max_y"`
	Center [2]float64 `json:"center"`
	// ShareCode is a geohash of the center for compact map links.
	ShareCode string `json:"share_code,omitempty"`
}

// BBox resolves a zone's bounding box for map framing.
func (h *Handlers) BBox() http.HandlerFunc {
	return h.observed("/bbox", func(w http.ResponseWriter, r *http.Request) {
		qs := r.URL.Query()
		zone := strings.TrimSpace(qs.Get("zone"))
		if zone == "" {
			http.Error(w, "missing required parameter: zone", http.StatusBadRequest)
			return
		}
		if !isDigits(zone) {
			code, _ := h.zones.Resolve(zone)
			if code == "" {
				http.Error(w, fmt.Sprintf("unknown zone %q", zone), http.StatusBadRequest)
				return
			}
			zone = code
		}
		register := model.ParseRegister(qs.Get("register"))

		bb, ok := h.svc.ZoneBBox(r.Context(), register, zone)
		out := bboxResponse{Found: ok}
		if ok {
			cx, cy := bb.Center()
			out.MinX, out.MinY, out.MaxX, out.MaxY = bb.MinX, bb.MinY, bb.MaxX, bb.MaxY
			out.Center = [2]float64{cx, cy}
			// bbox resolution requests EPSG:4326, so center is lon/lat
			out.ShareCode = geohash.EncodeWithPrecision(cy, cx, 9)
		}
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusNotFound)
		}
		_ = json.NewEncoder(w).Encode(out)
	})
}

type resolveResponse struct {
	Code       string `json:"code,omitempty"`
	Candidates []struct {
		Name string `json:"name"`
		Code string `json:"code"`
	} `json:"candidates,omitempty"`
}

// Resolve maps a zone name or code to candidates.
func (h *Handlers) Resolve() http.HandlerFunc {
	return h.observed("/resolve", func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			http.Error(w, "missing required parameter: q", http.StatusBadRequest)
			return
		}
		code, cands := h.zones.Resolve(query)
		out := resolveResponse{Code: code}
		for _, c := range cands {
			out.Candidates = append(out.Candidates, struct {
				Name string `json:"name"`
				Code string `json:"code"`
			}{c.Name, c.Code})
		}
		w.Header().Set("Content-Type", "application/json")
		if code == "" {
			w.WriteHeader(http.StatusNotFound)
		}
		_ = json.NewEncoder(w).Encode(out)
	})
}

// Export streams fetched parcels in a download format: "gml" (zip of
// pages), "geojson" (merged), "dxf" (built-in writer), or a GDAL driver
// format ("gpkg", "kml") through the external converter.
func (h *Handlers) Export() http.HandlerFunc {
	return h.observed("/export", func(w http.ResponseWriter, r *http.Request) {
		q, err := ParseQuery(r, h.zones)
		if err != nil {
			h.clientError(w, err)
			return
		}
		format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
		if format == "" {
			format = "gml"
		}

		switch format {
		case "gml":
			res := h.svc.FetchGML(r.Context(), q)
			if !res.OK {
				h.writeFetchResult(w, res)
				return
			}
			var buf bytes.Buffer
			if err := export.GMLZip(&buf, q.ZoneCode, res.Pages); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/zip")
			w.Header().Set("Content-Disposition", attachment(q, ".zip"))
			_, _ = w.Write(buf.Bytes())

		case "geojson":
			res := h.svc.FetchGeoJSON(r.Context(), q, 0)
			if !res.OK {
				h.writeFetchResult(w, res)
				return
			}
			merged, _, err := geojson.MergePages(res.Pages, 0)
			if err != nil {
				http.Error(w, "merge: "+err.Error(), http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Type", "application/geo+json")
			w.Header().Set("Content-Disposition", attachment(q, ".geojson"))
			_, _ = w.Write(merged)

		case "dxf":
			res := h.svc.FetchGeoJSON(r.Context(), q, 0)
			if !res.OK {
				h.writeFetchResult(w, res)
				return
			}
			w.Header().Set("Content-Type", "application/dxf")
			w.Header().Set("Content-Disposition", attachment(q, ".dxf"))
			_, _ = w.Write(export.DXFFromGeoJSONPages(res.Pages))

		case "gpkg", "kml":
			if h.conv == nil {
				http.Error(w, "format conversion unavailable", http.StatusNotImplemented)
				return
			}
			res := h.svc.FetchGML(r.Context(), q)
			if !res.OK {
				h.writeFetchResult(w, res)
				return
			}
			f := export.FormatGPKG
			if format == "kml" {
				f = export.FormatKML
			}
			data, err := h.conv.Convert(r.Context(), res.Pages, f)
			if errors.Is(err, export.ErrConverterUnavailable) {
				http.Error(w, "format conversion unavailable", http.StatusNotImplemented)
				return
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", f.MIME)
			w.Header().Set("Content-Disposition", attachment(q, f.Ext))
			_, _ = w.Write(data)

		default:
			http.Error(w, fmt.Sprintf("unknown format %q", format), http.StatusBadRequest)
		}
	})
}

func attachment(q model.Query, ext string) string {
	name := q.ZoneCode
	if name == "" {
		name = "vyber"
	}
	return fmt.Sprintf(`attachment; filename="parcely_%s%s"`, name, ext)
}

func (h *Handlers) clientError(w http.ResponseWriter, err error) {
	var amb *AmbiguousZoneError
	if errors.As(err, &amb) {
		out := resolveResponse{}
		for _, c := range amb.Candidates {
			out.Candidates = append(out.Candidates, struct {
				Name string `json:"name"`
				Code string `json:"code"`
			}{c.Name, c.Code})
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(out)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}

// observed wraps a handler with the request metrics.
func (h *Handlers) observed(route string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		fn(sw, r)
		observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
	}
}
