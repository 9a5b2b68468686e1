// Package geojson provides a typed view over GeoJSON documents: a tagged
// geometry union with a bbox fold per variant, feature counting, and page
// merging for previews.
package geojson

import (
	"bytes"
	"encoding/json"
	"math"

	"parcelone/internal/core/model"
)

// Geometry is a tagged union over the GeoJSON geometry types. Coordinates
// stay raw until the type tag tells us their nesting depth.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates,omitempty"`
	Geometries  []Geometry      `json:"geometries,omitempty"`
}

type Feature struct {
	Type     string    `json:"type"`
	Geometry *Geometry `json:"geometry"`
	// Properties are carried through untouched on merge.
	Properties json.RawMessage `json:"properties,omitempty"`
	ID         json.RawMessage `json:"id,omitempty"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
	// CRS is passed through when the server includes one.
	CRS json.RawMessage `json:"crs,omitempty"`
}

type bboxAcc struct {
	minX, minY float64
	maxX, maxY float64
	seen       bool
}

func newBBoxAcc() *bboxAcc {
	return &bboxAcc{minX: math.Inf(1), minY: math.Inf(1), maxX: math.Inf(-1), maxY: math.Inf(-1)}
}

func (a *bboxAcc) add(pos []float64) {
	if len(pos) < 2 {
		return
	}
	x, y := pos[0], pos[1]
	a.minX = math.Min(a.minX, x)
	a.minY = math.Min(a.minY, y)
	a.maxX = math.Max(a.maxX, x)
	a.maxY = math.Max(a.maxY, y)
	a.seen = true
}

func (a *bboxAcc) bbox() (model.BBox, bool) {
	if !a.seen {
		return model.BBox{}, false
	}
	return model.BBox{MinX: a.minX, MinY: a.minY, MaxX: a.maxX, MaxY: a.maxY}, true
}

// fold dispatches on the type tag; unknown types and undecodable
// coordinates contribute nothing rather than failing the whole document.
func (g *Geometry) fold(acc *bboxAcc) {
	if g == nil {
		return
	}
	switch g.Type {
	case "Point":
		var p []float64
		if json.Unmarshal(g.Coordinates, &p) == nil {
			acc.add(p)
		}
	case "MultiPoint", "LineString":
		var ps [][]float64
		if json.Unmarshal(g.Coordinates, &ps) == nil {
			for _, p := range ps {
				acc.add(p)
			}
		}
	case "MultiLineString", "Polygon":
		var rings [][][]float64
		if json.Unmarshal(g.Coordinates, &rings) == nil {
			for _, ring := range rings {
				for _, p := range ring {
					acc.add(p)
				}
			}
		}
	case "MultiPolygon":
		var polys [][][][]float64
		if json.Unmarshal(g.Coordinates, &polys) == nil {
			for _, poly := range polys {
				for _, ring := range poly {
					for _, p := range ring {
						acc.add(p)
					}
				}
			}
		}
	case "GeometryCollection":
		for i := range g.Geometries {
			g.Geometries[i].fold(acc)
		}
	}
}

// Rings returns the linear rings of a Polygon or MultiPolygon, exterior
// first per polygon. Other geometry types have no rings.
func (g *Geometry) Rings() [][][]float64 {
	if g == nil {
		return nil
	}
	switch g.Type {
	case "Polygon":
		var rings [][][]float64
		if json.Unmarshal(g.Coordinates, &rings) == nil {
			return rings
		}
	case "MultiPolygon":
		var polys [][][][]float64
		if json.Unmarshal(g.Coordinates, &polys) == nil {
			var rings [][][]float64
			for _, poly := range polys {
				rings = append(rings, poly...)
			}
			return rings
		}
	case "GeometryCollection":
		var rings [][][]float64
		for i := range g.Geometries {
			rings = append(rings, g.Geometries[i].Rings()...)
		}
		return rings
	}
	return nil
}

// BBox computes the bounding box of a GeoJSON document. The document may
// be a FeatureCollection, a single Feature, or a bare geometry. Returns
// false when nothing with coordinates could be decoded.
func BBox(doc []byte) (model.BBox, bool) {
	acc := newBBoxAcc()

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(doc, &probe); err != nil {
		return model.BBox{}, false
	}

	switch probe.Type {
	case "FeatureCollection":
		var fc FeatureCollection
		if err := json.Unmarshal(doc, &fc); err != nil {
			return model.BBox{}, false
		}
		for i := range fc.Features {
			fc.Features[i].Geometry.fold(acc)
		}
	case "Feature":
		var f Feature
		if err := json.Unmarshal(doc, &f); err != nil {
			return model.BBox{}, false
		}
		f.Geometry.fold(acc)
	default:
		var g Geometry
		if err := json.Unmarshal(doc, &g); err != nil {
			return model.BBox{}, false
		}
		g.fold(acc)
	}
	return acc.bbox()
}

// CountFeatures reports how many features a GeoJSON body declares.
// A bare Feature object counts as one. Malformed input returns ok=false.
func CountFeatures(body []byte) (int, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return 0, false
	}
	var probe struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return 0, false
	}
	switch probe.Type {
	case "FeatureCollection":
		return len(probe.Features), true
	case "Feature":
		return 1, true
	}
	return 0, false
}
