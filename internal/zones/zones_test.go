package zones

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Čadca", "cadca"},
		{"Bratislava-Staré Mesto", "bratislava stare mesto"},
		{"  Nové   Zámky ", "nove zamky"},
		{"Kráľovský Chlmec", "kralovsky chlmec"},
		{"žilina", "zilina"},
		{"---", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Fatalf("Normalize(%q) = %q want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolve_NumericPassthrough(t *testing.T) {
	tbl := Default()
	code, cands := tbl.Resolve("999999")
	if code != "999999" || len(cands) != 0 {
		t.Fatalf("numeric input must pass through, got %q %v", code, cands)
	}
}

func TestResolve_ExactMatchIgnoresDiacritics(t *testing.T) {
	tbl := Default()
	code, cands := tbl.Resolve("cadca")
	if code != "806404" {
		t.Fatalf("code got %q", code)
	}
	if len(cands) != 1 || cands[0].Name != "Čadca" {
		t.Fatalf("candidates got %v", cands)
	}
}

func TestResolve_ExactBeatsSubstring(t *testing.T) {
	tbl := Default()
	// "Staré Mesto" exists verbatim and as a suffix of two city districts
	code, cands := tbl.Resolve("Stare Mesto")
	if code != "857513" {
		t.Fatalf("code got %q", code)
	}
	if len(cands) != 1 {
		t.Fatalf("exact match must return a single candidate, got %v", cands)
	}
}

func TestResolve_SubstringRankedByLength(t *testing.T) {
	tbl := Default()
	code, cands := tbl.Resolve("Bratislava")
	if len(cands) == 0 {
		t.Fatal("want candidates for district names")
	}
	if code != cands[0].Code {
		t.Fatalf("best hit code mismatch: %q vs %v", code, cands[0])
	}
	for i := 1; i < len(cands); i++ {
		if len(Normalize(cands[i-1].Name)) > len(Normalize(cands[i].Name)) {
			t.Fatalf("candidates not ranked by normalized length: %v", cands)
		}
	}
}

func TestResolve_NoHit(t *testing.T) {
	tbl := Default()
	code, cands := tbl.Resolve("Atlantis")
	if code != "" || len(cands) != 0 {
		t.Fatalf("want no hit, got %q %v", code, cands)
	}
}

func TestResolve_EmptyQuery(t *testing.T) {
	tbl := Default()
	if code, _ := tbl.Resolve("   "); code != "" {
		t.Fatalf("blank query must not resolve, got %q", code)
	}
}

func TestParse_SkipsDuplicatesAndComments(t *testing.T) {
	tbl := Parse([]byte("# comment\n\"Alpha\" 800001\n\"Alpha Again\" 800001\nnot a row\n\"Beta\" 800002\n"))
	if tbl.Len() != 2 {
		t.Fatalf("rows got %d want 2", tbl.Len())
	}
	if code, _ := tbl.Resolve("beta"); code != "800002" {
		t.Fatalf("beta got %q", code)
	}
}
