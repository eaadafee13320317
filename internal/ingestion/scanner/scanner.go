package scanner

import (
	"regexp"
	"strings"

	"github.com/yungbote/labreport-backend/internal/normalization"
)

// candidatePattern matches "<name><optional : or -><number><unit>". The name
// is non-greedy so it stops at the first number that is followed by a unit.
var candidatePattern = regexp.MustCompile(
	`(?i)(?P<name>[A-Za-z0-9()\.'°\s\-/]+?)\s*[:\-]?\s*(?P<value>\d+(?:\.\d+)?)\s*(?P<unit>[A-Za-z/%]+)`,
)

var (
	nameIdx  = candidatePattern.SubexpIndex("name")
	valueIdx = candidatePattern.SubexpIndex("value")
	unitIdx  = candidatePattern.SubexpIndex("unit")
)

// Candidate is one raw measurement found in report text. Value is kept
// verbatim and never parsed as a number.
type Candidate struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Value string `json:"-"`
	Unit  string `json:"unit"`
}

type Scanner struct {
	cfg          Config
	disqualifier map[string]struct{}
}

func New(cfg Config) *Scanner {
	cfg = cfg.withDefaults()
	dq := make(map[string]struct{}, len(cfg.Disqualifiers))
	for _, w := range cfg.Disqualifiers {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			dq[w] = struct{}{}
		}
	}
	return &Scanner{cfg: cfg, disqualifier: dq}
}

// ScanPages flattens each page to a single line before matching, so a
// measurement split across a line wrap is still found.
func (s *Scanner) ScanPages(pages []string) []Candidate {
	flat := make([]string, 0, len(pages))
	for _, p := range pages {
		if line := strings.Join(strings.Fields(p), " "); line != "" {
			flat = append(flat, line)
		}
	}
	return s.Scan(strings.Join(flat, " "))
}

// Scan returns candidates keyed by normalized name in order of first
// appearance. A later occurrence of the same key replaces the earlier
// value and unit.
func (s *Scanner) Scan(text string) []Candidate {
	var out []Candidate
	pos := map[string]int{}
	for _, m := range candidatePattern.FindAllStringSubmatch(text, -1) {
		name := strings.ToLower(strings.TrimSpace(m[nameIdx]))
		value, unit := m[valueIdx], m[unitIdx]
		if !s.IsValidName(name) || value == "" || unit == "" {
			continue
		}
		key := normalization.NormalizeParameterName(name)
		if key == "" {
			continue
		}
		c := Candidate{Key: key, Name: name, Value: value, Unit: unit}
		if i, ok := pos[key]; ok {
			out[i] = c
			continue
		}
		pos[key] = len(out)
		out = append(out, c)
	}
	return out
}

// IsValidName rejects fragments such as "above normal": a name needs at
// least MinWords words and fewer than half of them may be generic
// qualifiers.
func (s *Scanner) IsValidName(name string) bool {
	words := strings.Fields(name)
	if len(words) < s.cfg.MinWords {
		return false
	}
	generic := 0
	for _, w := range words {
		if _, ok := s.disqualifier[strings.ToLower(w)]; ok {
			generic++
		}
	}
	return float64(generic) < float64(len(words))/2
}
