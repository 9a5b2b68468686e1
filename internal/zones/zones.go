// Package zones resolves cadastral zone names to their six digit codes.
//
// The table format is one entry per line, `"Name" 800058`. Matching is
// diacritics insensitive so "Cadca" finds "Čadca". A numeric query is
// taken as a code and passed through without lookup.
package zones

import (
	"bufio"
	"bytes"
	_ "embed"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

//go:embed data/KodKU.txt
var defaultTable []byte

var lineRe = regexp.MustCompile(`^\s*"(.+?)"\s+(\d{6,})\s*$`)

type Zone struct {
	Name string
	Code string
}

type Table struct {
	rows  []Zone
	norms []string
	index map[string]int
}

// Parse builds a table from `"Name" code` lines. Unparseable lines and
// duplicate codes are skipped; an empty table is not an error, manual
// code entry still works without it.
func Parse(data []byte) *Table {
	t := &Table{index: make(map[string]int)}
	seen := make(map[string]bool)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name, code := strings.TrimSpace(m[1]), m[2]
		if seen[code] {
			continue
		}
		seen[code] = true
		n := Normalize(name)
		t.rows = append(t.rows, Zone{Name: name, Code: code})
		t.norms = append(t.norms, n)
		if _, dup := t.index[n]; !dup {
			t.index[n] = len(t.rows) - 1
		}
	}
	return t
}

// Default returns the table embedded with the binary.
func Default() *Table {
	return Parse(defaultTable)
}

func (t *Table) Len() int { return len(t.rows) }

// Resolve maps a zone name or code to a code. Numeric input passes
// through untouched. Otherwise exact normalized match wins; failing
// that, substring and prefix hits are ranked by normalized length and
// the best hit's code is returned together with up to ten candidates.
// No hit yields an empty code.
func (t *Table) Resolve(query string) (string, []Zone) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", nil
	}
	if isDigits(q) {
		return q, nil
	}
	nq := Normalize(q)
	if nq == "" {
		return "", nil
	}
	if i, ok := t.index[nq]; ok {
		return t.rows[i].Code, []Zone{t.rows[i]}
	}

	type hit struct {
		zone Zone
		norm string
	}
	var hits []hit
	for i, n := range t.norms {
		if strings.Contains(n, nq) || strings.HasPrefix(n, nq) {
			hits = append(hits, hit{t.rows[i], n})
		}
	}
	if len(hits) == 0 {
		return "", nil
	}
	sort.Slice(hits, func(i, j int) bool {
		if len(hits[i].norm) != len(hits[j].norm) {
			return len(hits[i].norm) < len(hits[j].norm)
		}
		return hits[i].norm < hits[j].norm
	})
	if len(hits) > 10 {
		hits = hits[:10]
	}
	out := make([]Zone, len(hits))
	for i, h := range hits {
		out[i] = h.zone
	}
	return out[0].Code, out
}

// Normalize lowercases, strips diacritics and collapses everything that
// is not a letter or digit into single spaces.
func Normalize(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	space := false
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark from decomposition, dropped
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(unicode.ToLower(r))
		default:
			space = true
		}
	}
	return b.String()
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
