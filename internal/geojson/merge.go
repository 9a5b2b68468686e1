package geojson

import "encoding/json"

// MergeStats reports how much of the fetched data made it into a merged
// preview collection.
type MergeStats struct {
	Total int // features seen across all pages
	Kept  int // features in the merged output
}

// MergePages flattens GeoJSON pages into one FeatureCollection capped at
// maxFeatures. Pages that fail to decode contribute nothing; the preview
// should survive one bad page.
func MergePages(pages [][]byte, maxFeatures int) ([]byte, MergeStats, error) {
	merged := FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
	var st MergeStats

	for _, page := range pages {
		var fc FeatureCollection
		if err := json.Unmarshal(page, &fc); err != nil {
			continue
		}
		st.Total += len(fc.Features)
		if merged.CRS == nil && fc.CRS != nil {
			merged.CRS = fc.CRS
		}
		if maxFeatures > 0 && len(merged.Features) >= maxFeatures {
			continue
		}
		room := len(fc.Features)
		if maxFeatures > 0 {
			if r := maxFeatures - len(merged.Features); r < room {
				room = r
			}
		}
		merged.Features = append(merged.Features, fc.Features[:room]...)
	}
	st.Kept = len(merged.Features)

	out, err := json.Marshal(merged)
	if err != nil {
		return nil, st, err
	}
	return out, st, nil
}
