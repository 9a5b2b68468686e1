package ogc

import (
	"strings"
	"testing"

	"parcelone/internal/core/model"
)

func TestBuildFESFilter_ZoneOnly(t *testing.T) {
	f := BuildFESFilter("801062", nil)
	if !strings.Contains(f, "PropertyIsLike") {
		t.Fatalf("zone-only filter must use PropertyIsLike; got %q", f)
	}
	if !strings.Contains(f, "<Literal>801062*</Literal>") {
		t.Fatalf("zone code must carry a trailing wildcard; got %q", f)
	}
	if strings.Contains(f, "<Or>") || strings.Contains(f, "<And>") {
		t.Fatalf("zone-only filter must not nest Or/And; got %q", f)
	}
}

func TestBuildFESFilter_ParcelsAndZone(t *testing.T) {
	f := BuildFESFilter("801062", []string{"123/4", "55"})
	if got := strings.Count(f, "<And>"); got != 2 {
		t.Fatalf("want one <And> per parcel (2), got %d in %q", got, f)
	}
	if got := strings.Count(f, "<Or>"); got != 1 {
		t.Fatalf("want a single <Or> wrapper, got %d", got)
	}
	if !strings.Contains(f, "<Literal>123/4</Literal>") || !strings.Contains(f, "<Literal>55</Literal>") {
		t.Fatalf("parcel labels missing from %q", f)
	}
	if got := strings.Count(f, "801062*"); got != 2 {
		t.Fatalf("zone prefix must repeat in every And clause, got %d", got)
	}
}

func TestBuildFESFilter_Escaping(t *testing.T) {
	f := BuildFESFilter(`80"10`, []string{"1<2&3"})
	if strings.Contains(f, `80"10`) || strings.Contains(f, "1<2&3") {
		t.Fatalf("raw user input leaked into XML: %q", f)
	}
	if !strings.Contains(f, "80&quot;10") || !strings.Contains(f, "1&lt;2&amp;3") {
		t.Fatalf("expected entity-escaped values, got %q", f)
	}
}

func TestBuildFESFilter_Empty(t *testing.T) {
	if f := BuildFESFilter("", nil); f != "" {
		t.Fatalf("empty inputs must produce empty filter, got %q", f)
	}
}

func TestBuildCQLFilter(t *testing.T) {
	cases := []struct {
		name    string
		zone    string
		parcels []string
		want    string
	}{
		{"zone only", "801062", nil, "nationalCadastralReference LIKE '801062%'"},
		{"parcels only", "", []string{"1", "2"}, "label IN ('1','2')"},
		{"both", "80", []string{"9/1"}, "label IN ('9/1') AND nationalCadastralReference LIKE '80%'"},
		{"quote doubling", "", []string{"o'l"}, "label IN ('o''l')"},
		{"empty", "", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BuildCQLFilter(tc.zone, tc.parcels); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestGetFeatureParams_Values(t *testing.T) {
	p := GetFeatureParams{
		Layer:      ParcelLayerC,
		Count:      1000,
		StartIndex: 2000,
		FESFilter:  BuildFESFilter("801062", nil),
		SRS:        "EPSG:5514",
	}
	v := p.Values()
	for k, want := range map[string]string{
		"service":    "WFS",
		"version":    "2.0.0",
		"request":    "GetFeature",
		"typeNames":  "cp:CP.CadastralParcel",
		"count":      "1000",
		"startIndex": "2000",
		"srsName":    "EPSG:5514",
	} {
		if got := v.Get(k); got != want {
			t.Fatalf("param %q got %q want %q", k, got, want)
		}
	}
	if v.Get("filter") == "" || v.Get("CQL_FILTER") != "" {
		t.Fatalf("FES filter must win when set: %v", v)
	}
	if v.Get("outputFormat") != "" {
		t.Fatalf("outputFormat must be omitted for the GML default")
	}
}

func TestGetFeatureParams_CQLAndFormat(t *testing.T) {
	p := GetFeatureParams{
		Layer:        ZoningLayerE,
		Count:        1,
		CQLFilter:    ZoneEqualsCQL("801062"),
		OutputFormat: GeoJSONFormat,
	}
	v := p.Values()
	if got := v.Get("CQL_FILTER"); got != "nationalCadastralReference='801062'" {
		t.Fatalf("CQL_FILTER got %q", got)
	}
	if got := v.Get("outputFormat"); got != GeoJSONFormat {
		t.Fatalf("outputFormat got %q", got)
	}
}

func TestLayerSelection(t *testing.T) {
	if ParcelLayer(model.RegisterE) != ParcelLayerE || ParcelLayer(model.RegisterC) != ParcelLayerC {
		t.Fatal("parcel layer selection by register is wrong")
	}
	if ZoningLayer(model.RegisterE) != ZoningLayerE || ZoningLayer(model.RegisterC) != ZoningLayerC {
		t.Fatal("zoning layer selection by register is wrong")
	}
}
