// Package model defines core domain types shared across the service.
package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Register selects which cadastral register a query runs against.
// C is the current register, E the original (UO) register; each has its
// own WFS endpoint and layer names.
type Register string

const (
	RegisterC Register = "C"
	RegisterE Register = "E"
)

// ParseRegister normalizes user input; anything that is not "E" maps to C,
// matching upstream behavior.
func ParseRegister(s string) Register {
	if strings.EqualFold(strings.TrimSpace(s), "E") {
		return RegisterE
	}
	return RegisterC
}

// ErrInvalidQuery is returned when neither a zone code nor parcel labels
// were supplied. No network call is made in that case.
var ErrInvalidQuery = errors.New("query needs a zone code or at least one parcel label")

var parcelSplitRe = regexp.MustCompile(`[,;\s]+`)

// Query describes one parcel fetch request.
type Query struct {
	Register Register
	ZoneCode string
	Parcels  []string
	// SRS is the requested output projection (e.g. "EPSG:5514").
	// Empty means server default. May be dropped mid-query by the
	// fallback orchestrator.
	SRS string
}

// Validate fails fast on queries that cannot produce a filter.
func (q Query) Validate() error {
	if strings.TrimSpace(q.ZoneCode) == "" && len(q.Parcels) == 0 {
		return ErrInvalidQuery
	}
	return nil
}

// SplitParcels tokenizes a user-supplied parcel list on commas, semicolons
// and whitespace.
func SplitParcels(csv string) []string {
	var out []string
	for _, p := range parcelSplitRe.Split(csv, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FetchResult is the outcome of one paginated fetch. Pages preserve server
// response order and are either all GML or all GeoJSON documents.
// OK=false with a note is a valid terminal state (e.g. zero features), not
// necessarily a transport failure.
type FetchResult struct {
	OK          bool     `json:"ok"`
	Note        string   `json:"note"`
	Pages       [][]byte `json:"-"`
	FirstURL    string   `json:"first_url"`
	DetectedCRS string   `json:"detected_crs,omitempty"`
}

// BBox is an axis-aligned bounding box in the order minX, minY, maxX, maxY.
type BBox struct {
	MinX, MinY, MaxX, MaxY float64
}

func (b BBox) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// Center returns the midpoint, used for map framing.
func (b BBox) Center() (x, y float64) {
	return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2
}
