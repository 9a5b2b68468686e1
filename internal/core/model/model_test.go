package model

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseRegister(t *testing.T) {
	cases := map[string]Register{
		"":    RegisterC,
		"C":   RegisterC,
		"c":   RegisterC,
		"E":   RegisterE,
		" e ": RegisterE,
		"X":   RegisterC,
	}
	for in, want := range cases {
		if got := ParseRegister(in); got != want {
			t.Errorf("ParseRegister(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitParcels(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"123/4", []string{"123/4"}},
		{"123/4,125", []string{"123/4", "125"}},
		{" 123/4 ; 125  126 ", []string{"123/4", "125", "126"}},
		{",,;", nil},
	}
	for _, tt := range tests {
		if got := SplitParcels(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitParcels(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestQueryValidate(t *testing.T) {
	if err := (Query{ZoneCode: "806404"}).Validate(); err != nil {
		t.Fatalf("zone-only query: %v", err)
	}
	if err := (Query{Parcels: []string{"123/4"}}).Validate(); err != nil {
		t.Fatalf("parcel-only query: %v", err)
	}
	err := (Query{ZoneCode: "  "}).Validate()
	if !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("empty query: got %v, want ErrInvalidQuery", err)
	}
}

func TestBBoxCenterAndString(t *testing.T) {
	bb := BBox{MinX: 17, MinY: 48, MaxX: 19, MaxY: 50}
	x, y := bb.Center()
	if x != 18 || y != 49 {
		t.Fatalf("Center() = %v,%v", x, y)
	}
	if got, want := bb.String(), "17.000000,48.000000,19.000000,50.000000"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
