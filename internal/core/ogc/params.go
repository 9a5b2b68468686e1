package ogc

import (
	"net/url"
	"strconv"

	"parcelone/internal/core/model"
)

// Layer names per register.
const (
	ParcelLayerC = "cp:CP.CadastralParcel"
	ParcelLayerE = "cp_uo:CP.CadastralParcelUO"
	ZoningLayerC = "cp:CP.CadastralZoning"
	ZoningLayerE = "cp_uo:CP.CadastralZoningUO"
)

const GeoJSONFormat = "application/json"

func ParcelLayer(r model.Register) string {
	if r == model.RegisterE {
		return ParcelLayerE
	}
	return ParcelLayerC
}

func ZoningLayer(r model.Register) string {
	if r == model.RegisterE {
		return ZoningLayerE
	}
	return ZoningLayerC
}

// GetFeatureParams holds everything that varies between page requests.
type GetFeatureParams struct {
	Layer      string
	Count      int
	StartIndex int
	// Exactly one of FESFilter / CQLFilter should be set.
	FESFilter string
	CQLFilter string
	// SRS asks the server to reproject; empty means server default.
	SRS string
	// OutputFormat empty means the server's GML default.
	OutputFormat string
}

// Values encodes the request as WFS 2.0.0 GetFeature query parameters.
func (p GetFeatureParams) Values() url.Values {
	v := url.Values{}
	v.Set("service", "WFS")
	v.Set("version", "2.0.0")
	v.Set("request", "GetFeature")
	v.Set("typeNames", p.Layer)
	v.Set("count", strconv.Itoa(p.Count))
	v.Set("startIndex", strconv.Itoa(p.StartIndex))
	if p.FESFilter != "" {
		v.Set("filter", p.FESFilter)
	} else if p.CQLFilter != "" {
		v.Set("CQL_FILTER", p.CQLFilter)
	}
	if p.SRS != "" {
		v.Set("srsName", p.SRS)
	}
	if p.OutputFormat != "" {
		v.Set("outputFormat", p.OutputFormat)
	}
	return v
}

// URL joins the base endpoint with the encoded parameters.
func (p GetFeatureParams) URL(base string) string {
	return base + "?" + p.Values().Encode()
}
