package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanCholesterolScenario(t *testing.T) {
	s := New(DefaultConfig())
	got := s.Scan("Cholesterol Total: 289 mg/dL high normal range")
	if len(got) != 1 {
		t.Fatalf("candidates: want=1 got=%d (%+v)", len(got), got)
	}
	c := got[0]
	if c.Key != "cholesteroltotal" || c.Value != "289" || c.Unit != "mg/dL" {
		t.Fatalf("candidate: %+v", c)
	}
	if s.IsValidName("high normal range") {
		t.Fatalf("high normal range should be rejected")
	}
}

func TestIsValidName(t *testing.T) {
	s := New(DefaultConfig())
	cases := []struct {
		name string
		want bool
	}{
		{"cholesterol total", true},
		{"triglycerides", false},
		{"above normal", false},
		{"high density lipoprotein", true},
		{"borderline high ldl", false},
		{"ref method cholesterol total", false},
		{"HIGH Normal", false},
	}
	for _, tc := range cases {
		if got := s.IsValidName(tc.name); got != tc.want {
			t.Fatalf("IsValidName(%q): want=%v got=%v", tc.name, tc.want, got)
		}
	}
}

func TestScanPagesJoinsWrappedLines(t *testing.T) {
	s := New(DefaultConfig())
	pages := []string{
		"Lipid Profile\nCholesterol - HDL\n 52 mg/dL",
		"Glycated Haemoglobin 5.6 %",
	}
	got := byKey(s.ScanPages(pages))
	hdl, ok := got["lipidprofilecholesterolhdl"]
	if !ok {
		t.Fatalf("missing hdl candidate: %+v", got)
	}
	if hdl.Value != "52" || hdl.Unit != "mg/dL" {
		t.Fatalf("hdl: %+v", hdl)
	}
	a1c, ok := got["glycatedhaemoglobin"]
	if !ok || a1c.Value != "5.6" || a1c.Unit != "%" {
		t.Fatalf("a1c: %+v", a1c)
	}
}

func TestScanKeepsValueVerbatimAndLastOccurrenceWins(t *testing.T) {
	s := New(DefaultConfig())
	got := s.Scan("Blood Urea 030.50 mg/dL ; Blood Urea 31 mg/dL")
	if len(got) != 1 {
		t.Fatalf("want 1 candidate got=%+v", got)
	}
	if got[0].Value != "31" {
		t.Fatalf("value: want=31 got=%q", got[0].Value)
	}
	first := s.Scan("Blood Urea 030.50 mg/dL")
	if len(first) != 1 || first[0].Value != "030.50" {
		t.Fatalf("value should be verbatim: %+v", first)
	}
}

func TestScanRequiresUnit(t *testing.T) {
	s := New(DefaultConfig())
	if got := s.Scan("Platelet Count 250"); len(got) != 0 {
		t.Fatalf("want no candidates got=%+v", got)
	}
}

func TestLoadConfigOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scanner.yaml")
	if err := os.WriteFile(path, []byte("disqualifiers: [fasting]\nmin_words: 3\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MinWords != 3 || len(cfg.Disqualifiers) != 1 {
		t.Fatalf("cfg: %+v", cfg)
	}
	s := New(cfg)
	if s.IsValidName("blood sugar") {
		t.Fatalf("two words should fail min_words=3")
	}
	if s.IsValidName("fasting fasting sugar") {
		t.Fatalf("generic majority should fail")
	}
	if !s.IsValidName("blood sugar fasting") {
		t.Fatalf("one generic of three should pass")
	}

	def, err := LoadConfig("")
	if err != nil || def.MinWords != 2 || len(def.Disqualifiers) != len(DefaultDisqualifiers) {
		t.Fatalf("default cfg: %+v err=%v", def, err)
	}
}

func byKey(cands []Candidate) map[string]Candidate {
	out := make(map[string]Candidate, len(cands))
	for _, c := range cands {
		out[c.Key] = c
	}
	return out
}
