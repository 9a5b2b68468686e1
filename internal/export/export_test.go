package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/zeebo/blake3"
)

func TestGMLZip_LayoutAndManifest(t *testing.T) {
	pages := [][]byte{[]byte("<page one/>"), []byte("<page two/>")}

	var buf bytes.Buffer
	if err := GMLZip(&buf, "800001", pages); err != nil {
		t.Fatalf("GMLZip: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip open: %v", err)
	}

	want := map[string]string{
		"parcely_800001/in_001.gml":      "<page one/>",
		"parcely_800001/in_002.gml":      "<page two/>",
		"parcely_800001/manifest.b3sums": "",
	}
	got := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		got[f.Name] = string(data)
	}
	for name := range want {
		if _, ok := got[name]; !ok {
			t.Fatalf("missing entry %s, have %v", name, zr.File)
		}
	}

	sum := blake3.Sum256(pages[0])
	line := fmt.Sprintf("%x  in_001.gml", sum)
	if !strings.Contains(got["parcely_800001/manifest.b3sums"], line) {
		t.Fatalf("manifest missing %q:\n%s", line, got["parcely_800001/manifest.b3sums"])
	}
}

func TestGMLZip_RejectsEmptyInput(t *testing.T) {
	var buf bytes.Buffer
	if err := GMLZip(&buf, "800001", nil); err == nil {
		t.Fatal("want error for no pages")
	}
}

func dxfPage(rings string) []byte {
	return fmt.Appendf(nil, `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Polygon","coordinates":%s}}]}`, rings)
}

func TestDXF_WritesClosedPolylinePerRing(t *testing.T) {
	page := dxfPage(`[[[0,0],[10,0],[10,5],[0,5],[0,0]]]`)
	out := string(DXFFromGeoJSONPages([][]byte{page}))

	if !strings.HasPrefix(out, "0\r\nSECTION") {
		t.Fatalf("header missing:\n%.80s", out)
	}
	if !strings.Contains(out, "AC1024") {
		t.Fatal("version marker missing")
	}
	if n := strings.Count(out, "LWPOLYLINE"); n != 1 {
		t.Fatalf("polyline count got %d", n)
	}
	// closing vertex dropped, closed flag set
	if !strings.Contains(out, "90\r\n4\r\n") {
		t.Fatalf("want 4 vertices:\n%s", out)
	}
	if !strings.HasSuffix(out, "0\r\nEOF\r\n") {
		t.Fatalf("EOF marker missing, tail %q", out[len(out)-20:])
	}
}

func TestDXF_MultiPolygonAndHoles(t *testing.T) {
	page := []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"MultiPolygon","coordinates":
			[[[[0,0],[4,0],[4,4],[0,4],[0,0]],[[1,1],[2,1],[2,2],[1,2],[1,1]]],
			 [[[10,10],[12,10],[12,12],[10,12],[10,10]]]]}}]}`)
	out := string(DXFFromGeoJSONPages([][]byte{page}))
	if n := strings.Count(out, "LWPOLYLINE"); n != 3 {
		t.Fatalf("ring count got %d want 3", n)
	}
}

func TestDXF_SkipsBrokenPagesAndDegenerateRings(t *testing.T) {
	pages := [][]byte{
		[]byte("not json"),
		dxfPage(`[[[0,0]]]`),
		dxfPage(`[[[0,0],[1,0],[1,1],[0,0]]]`),
	}
	out := string(DXFFromGeoJSONPages(pages))
	if n := strings.Count(out, "LWPOLYLINE"); n != 1 {
		t.Fatalf("polyline count got %d want 1", n)
	}
}

func TestDXF_CoordinateFormatting(t *testing.T) {
	if got := fmtCoord(17.5); got != "17.5" {
		t.Fatalf("got %q", got)
	}
	if got := fmtCoord(48.0); got != "48" {
		t.Fatalf("got %q", got)
	}
	if got := fmtCoord(17.12345678); got != "17.12345678" {
		t.Fatalf("got %q", got)
	}
}

func TestNewOGRConverter_MissingBinary(t *testing.T) {
	if _, err := NewOGRConverter("/nonexistent/ogr2ogr"); err != ErrConverterUnavailable {
		t.Fatalf("want ErrConverterUnavailable, got %v", err)
	}
}

func TestOGRConverter_RejectsEmptyInput(t *testing.T) {
	c := &OGRConverter{path: "/bin/true"}
	if _, err := c.Convert(context.Background(), nil, FormatGPKG); err == nil {
		t.Fatal("want error for no pages")
	}
}
