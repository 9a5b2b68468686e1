package export

import (
	"encoding/json"
	"strconv"
	"strings"

	"parcelone/internal/geojson"
)

const dxfLayer = "PARCELY"

// DXFFromGeoJSONPages renders polygon rings from GeoJSON pages as an
// ASCII DXF (AC1024) document with one closed LWPOLYLINE per ring.
// No GDAL involved; CAD tools only need the entity section to be exact.
func DXFFromGeoJSONPages(pages [][]byte) []byte {
	var polylines [][][2]float64
	for _, page := range pages {
		var fc geojson.FeatureCollection
		if err := json.Unmarshal(page, &fc); err != nil {
			continue
		}
		for i := range fc.Features {
			for _, ring := range fc.Features[i].Geometry.Rings() {
				if pts := closedRingPoints(ring); len(pts) >= 2 {
					polylines = append(polylines, pts)
				}
			}
		}
	}

	var b dxfBuilder
	b.add(0, "SECTION")
	b.add(2, "HEADER")
	b.add(9, "$ACADVER")
	b.add(1, "AC1024")
	b.add(0, "ENDSEC")
	b.add(0, "SECTION")
	b.add(2, "TABLES")
	b.add(0, "TABLE")
	b.add(2, "LAYER")
	b.add(70, "1")
	b.add(0, "LAYER")
	b.add(2, dxfLayer)
	b.add(70, "0")
	b.add(62, "7")
	b.add(6, "CONTINUOUS")
	b.add(0, "ENDTAB")
	b.add(0, "ENDSEC")
	b.add(0, "SECTION")
	b.add(2, "ENTITIES")
	for _, pts := range polylines {
		b.add(0, "LWPOLYLINE")
		b.add(100, "AcDbEntity")
		b.add(8, dxfLayer)
		b.add(100, "AcDbPolyline")
		b.add(90, strconv.Itoa(len(pts)))
		b.add(70, "1") // closed
		for _, p := range pts {
			b.add(10, fmtCoord(p[0]))
			b.add(20, fmtCoord(p[1]))
		}
	}
	b.add(0, "ENDSEC")
	b.add(0, "EOF")
	return b.bytes()
}

// closedRingPoints drops a duplicated closing vertex; the polyline's
// closed flag supplies the final edge.
func closedRingPoints(ring [][]float64) [][2]float64 {
	pts := make([][2]float64, 0, len(ring))
	for _, p := range ring {
		if len(p) < 2 {
			continue
		}
		pts = append(pts, [2]float64{p[0], p[1]})
	}
	if len(pts) >= 2 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 2 {
		return nil
	}
	return pts
}

type dxfBuilder struct {
	sb strings.Builder
}

func (b *dxfBuilder) add(code int, val string) {
	b.sb.WriteString(strconv.Itoa(code))
	b.sb.WriteString("\r\n")
	b.sb.WriteString(val)
	b.sb.WriteString("\r\n")
}

func (b *dxfBuilder) bytes() []byte {
	return []byte(b.sb.String())
}

func fmtCoord(v float64) string {
	s := strconv.FormatFloat(v, 'f', 8, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
