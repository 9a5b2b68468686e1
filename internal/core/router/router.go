// Package router validates request parameters and serves the parcel API.
package router

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"parcelone/internal/core/model"
	"parcelone/internal/zones"
)

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

var srsRe = regexp.MustCompile(`^EPSG:\d{4,6}$`)

// AmbiguousZoneError is returned when a zone name matches several zones;
// the candidates ride along for the caller to disambiguate.
type AmbiguousZoneError struct {
	Query      string
	Candidates []zones.Zone
}

func (e *AmbiguousZoneError) Error() string {
	return fmt.Sprintf("ambiguous zone %q (%d candidates)", e.Query, len(e.Candidates))
}

// ParseQuery validates the common query parameters. A non-numeric zone
// is resolved against the zone table; an unresolvable or ambiguous name
// is a client error.
func ParseQuery(r *http.Request, table *zones.Table) (model.Query, error) {
	qs := r.URL.Query()

	register := model.ParseRegister(qs.Get("register"))

	zone := strings.TrimSpace(qs.Get("zone"))
	if zone != "" && !isDigits(zone) {
		code, cands := table.Resolve(zone)
		switch {
		case code == "":
			return model.Query{}, fmt.Errorf("unknown zone %q", zone)
		case len(cands) > 1:
			return model.Query{}, &AmbiguousZoneError{Query: zone, Candidates: cands}
		default:
			zone = code
		}
	}

	srs := strings.TrimSpace(qs.Get("srs"))
	if srs != "" && !srsRe.MatchString(srs) {
		return model.Query{}, fmt.Errorf("invalid srs %q, expected EPSG:<code>", srs)
	}

	q := model.Query{
		Register: register,
		ZoneCode: zone,
		Parcels:  model.SplitParcels(qs.Get("parcels")),
		SRS:      srs,
	}
	if err := q.Validate(); err != nil {
		return model.Query{}, err
	}
	return q, nil
}

// parsePositiveInt reads an optional positive integer parameter.
func parsePositiveInt(qs string, def int) (int, error) {
	s := strings.TrimSpace(qs)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("must be a positive integer")
	}
	return n, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
