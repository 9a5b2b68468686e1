// Package ogc builds OGC WFS request parameters and filter expressions.
//
// Two filter dialects are produced for the same logical predicate: FES 2.0
// XML (primary) and CQL text (fallback for servers that reject the FES
// form). Both escape user-supplied values for their syntax.
package ogc

import (
	"strings"
)

// XMLEscape entity-escapes a value for embedding in an FES filter.
func XMLEscape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}

// cqlQuote escapes a value for a single-quoted CQL literal.
func cqlQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// BuildFESFilter builds an FES 2.0 filter document.
//
// With parcels present it is an <Or> of per-parcel <And> clauses, each
// combining label equality with the zone-code prefix match. With only a
// zone code it is a single PropertyIsLike with a trailing wildcard (the
// zone code is a prefix of nationalCadastralReference). With neither it
// returns "" and the caller must treat that as a hard failure.
func BuildFESFilter(zone string, parcels []string) string {
	var zonePart string
	if zone != "" {
		zonePart = `<PropertyIsLike wildCard="*" singleChar="." escape="!" matchCase="false">` +
			`<ValueReference>nationalCadastralReference</ValueReference>` +
			`<Literal>` + XMLEscape(zone) + `*</Literal>` +
			`</PropertyIsLike>`
	}
	if len(parcels) > 0 {
		var ors strings.Builder
		for _, p := range parcels {
			ors.WriteString("<And>")
			ors.WriteString(`<PropertyIsEqualTo><ValueReference>label</ValueReference>` +
				`<Literal>` + XMLEscape(p) + `</Literal></PropertyIsEqualTo>`)
			ors.WriteString(zonePart)
			ors.WriteString("</And>")
		}
		return `<Filter xmlns="http://www.opengis.net/fes/2.0"><Or>` + ors.String() + `</Or></Filter>`
	}
	if zonePart != "" {
		return `<Filter xmlns="http://www.opengis.net/fes/2.0">` + zonePart + `</Filter>`
	}
	return ""
}

// BuildCQLFilter builds the CQL form of the same predicate. CQL cannot
// nest the per-label AND/OR the way FES does, so labels collapse into a
// single IN list combined with the zone prefix.
func BuildCQLFilter(zone string, parcels []string) string {
	var parts []string
	if len(parcels) > 0 {
		quoted := make([]string, 0, len(parcels))
		for _, p := range parcels {
			if p != "" {
				quoted = append(quoted, cqlQuote(p))
			}
		}
		if len(quoted) > 0 {
			parts = append(parts, "label IN ("+strings.Join(quoted, ",")+")")
		}
	}
	if zone != "" {
		parts = append(parts, "nationalCadastralReference LIKE "+cqlQuote(zone+"%"))
	}
	return strings.Join(parts, " AND ")
}

// ZoneEqualsFES is the exact-match zoning filter used by the bbox resolver.
func ZoneEqualsFES(zone string) string {
	return `<Filter xmlns="http://www.opengis.net/fes/2.0">` +
		`<PropertyIsEqualTo><ValueReference>nationalCadastralReference</ValueReference>` +
		`<Literal>` + XMLEscape(zone) + `</Literal></PropertyIsEqualTo></Filter>`
}

// ZoneEqualsCQL is the CQL twin of ZoneEqualsFES.
func ZoneEqualsCQL(zone string) string {
	return "nationalCadastralReference=" + cqlQuote(zone)
}
