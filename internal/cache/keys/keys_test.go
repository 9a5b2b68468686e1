package keys

import (
	"strings"
	"testing"
)

func TestQuery_IsDeterministic(t *testing.T) {
	a := Query("fetch", "C", "800001", []string{"123/4", "125"}, "EPSG:5514", 1000)
	b := Query("fetch", "C", "800001", []string{"123/4", "125"}, "EPSG:5514", 1000)
	if a != b {
		t.Fatalf("same inputs must hash identically: %q vs %q", a, b)
	}
}

func TestQuery_DistinguishesParameters(t *testing.T) {
	base := Query("fetch", "C", "800001", []string{"123"}, "", 1000)
	variants := []string{
		Query("fetch", "E", "800001", []string{"123"}, "", 1000),
		Query("fetch", "C", "800001", []string{"124"}, "", 1000),
		Query("fetch", "C", "800001", []string{"123"}, "EPSG:4326", 1000),
		Query("fetch", "C", "800001", []string{"123"}, "", 500),
		Query("preview", "C", "800001", []string{"123"}, "", 1000),
	}
	for i, v := range variants {
		if v == base {
			t.Fatalf("variant %d collides with base key %q", i, base)
		}
	}
}

func TestQuery_CarriesZonePrefix(t *testing.T) {
	key := Query("fetch", "C", "800001", []string{"123"}, "", 1000)
	if !strings.HasPrefix(key, ZonePrefix("fetch", "C", "800001")) {
		t.Fatalf("key %q must start with its zone prefix", key)
	}
}

func TestZonePrefix_SanitizesUnsafeRunes(t *testing.T) {
	p := ZonePrefix("fetch", "C", "zone code\twith:colons")
	if strings.ContainsAny(p, " \t") {
		t.Fatalf("prefix %q must not contain whitespace", p)
	}
	want := "parcelone:fetch:C:zone_code_with-colons:"
	if p != want {
		t.Fatalf("prefix got %q want %q", p, want)
	}
}
