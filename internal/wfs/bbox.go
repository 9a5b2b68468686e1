package wfs

import (
	"context"
	"strings"

	"parcelone/internal/core/model"
	"parcelone/internal/core/ogc"
	"parcelone/internal/geojson"
	"parcelone/internal/timing"
)

// ZoneBBox resolves a cheap bounding box for a cadastral zone, for map
// framing. Three independent tiers, each self-contained:
//
//  1. zoning layer, CQL equality filter, GeoJSON, count=1
//  2. zoning layer, FES equality filter, GeoJSON, count=1
//  3. parcel layer through the ordinary GeoJSON pipeline, page size 1
//
// Tier errors are swallowed; all three failing yields ok=false, which is
// not an error (callers substitute a default map extent).
func (f *Fetcher) ZoneBBox(ctx context.Context, register model.Register, zone string) (model.BBox, bool) {
	defer timing.Track(f.sink, "zone_bbox")()

	zone = strings.TrimSpace(zone)
	if zone == "" {
		return model.BBox{}, false
	}

	base := f.base(register)
	layer := ogc.ZoningLayer(register)
	client := f.client.WithRegister(string(register))

	// zoning layer, CQL then FES
	tiers := []ogc.GetFeatureParams{
		{
			Layer:        layer,
			Count:        1,
			CQLFilter:    ogc.ZoneEqualsCQL(zone),
			SRS:          "EPSG:4326",
			OutputFormat: ogc.GeoJSONFormat,
		},
		{
			Layer:        layer,
			Count:        1,
			FESFilter:    ogc.ZoneEqualsFES(zone),
			OutputFormat: ogc.GeoJSONFormat,
		},
	}
	for _, params := range tiers {
		body, err := client.GetBytes(ctx, params.URL(base))
		if err != nil {
			continue
		}
		if n, ok := geojson.CountFeatures(body); !ok || n == 0 {
			continue
		}
		if bb, ok := geojson.BBox(body); ok {
			return bb, true
		}
	}

	// last resort: one parcel feature from the zone
	res := f.FetchGeoJSON(ctx, model.Query{Register: register, ZoneCode: zone}, 1)
	if res.OK && len(res.Pages) > 0 {
		if bb, ok := geojson.BBox(res.Pages[0]); ok {
			return bb, true
		}
	}
	return model.BBox{}, false
}
