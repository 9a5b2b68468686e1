// Package keys builds cache keys for parcel queries. A key embeds the
// zone code in clear (so zone-scoped invalidation can prefix-scan) and
// hashes the full parameter set for uniqueness.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// ZonePrefix is the scan prefix shared by every cached query touching a
// zone in a register.
func ZonePrefix(class, register, zone string) string {
	return fmt.Sprintf("parcelone:%s:%s:%s:", sanitize(class), sanitize(register), sanitize(zone))
}

// Query builds the full key for a parcel query.
func Query(class, register, zone string, parcels []string, srs string, pageSize int) string {
	canonical := strings.Join([]string{
		register,
		zone,
		strings.Join(parcels, ","),
		srs,
		fmt.Sprintf("%d", pageSize),
	}, "|")
	sum := xxhash.Sum64String(canonical)
	return fmt.Sprintf("%s%016x", ZonePrefix(class, register, zone), sum)
}

// sanitize keeps keyspace characters predictable: whitespace collapses to
// '_', anything outside [alnum:_-] becomes '-'.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-':
			out = r
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return unicode.IsLetter(r) && r < 128 || unicode.IsDigit(r) && r < 128
}
