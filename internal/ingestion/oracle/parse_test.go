package oracle

import (
	"errors"
	"testing"

	"github.com/yungbote/labreport-backend/internal/ingestion/scanner"
)

func cands(keys ...string) []scanner.Candidate {
	out := make([]scanner.Candidate, 0, len(keys))
	for _, k := range keys {
		out = append(out, scanner.Candidate{Key: k, Name: k, Value: "1", Unit: "mg/dL"})
	}
	return out
}

func TestParseVerdictsPositional(t *testing.T) {
	got, err := ParseVerdicts(`[{"is_valid":"Cholesterol - Total"},{"is_valid":""},{"is_valid":"  Triglycerides "}]`,
		cands("cholesteroltotal", "abovenormal", "triglycerides"))
	if err != nil {
		t.Fatalf("ParseVerdicts: %v", err)
	}
	if len(got) != 2 || got["cholesteroltotal"] != "Cholesterol - Total" || got["triglycerides"] != "Triglycerides" {
		t.Fatalf("unexpected: %v", got)
	}
}

func TestParseVerdictsStripsFences(t *testing.T) {
	for _, raw := range []string{
		"```json\n[{\"is_valid\":\"HbA1c\"}]\n```",
		"```\n[{\"is_valid\":\"HbA1c\"}]\n```",
		"```[{\"is_valid\":\"HbA1c\"}]```",
	} {
		got, err := ParseVerdicts(raw, cands("hba1c"))
		if err != nil {
			t.Fatalf("ParseVerdicts(%q): %v", raw, err)
		}
		if got["hba1c"] != "HbA1c" {
			t.Fatalf("ParseVerdicts(%q): %v", raw, got)
		}
	}
}

func TestParseVerdictsShortReplyRejectsTail(t *testing.T) {
	got, err := ParseVerdicts(`[{"is_valid":"Creatinine"}]`, cands("creatinine", "bloodurea"))
	if err != nil {
		t.Fatalf("ParseVerdicts: %v", err)
	}
	if _, ok := got["bloodurea"]; ok || got["creatinine"] != "Creatinine" {
		t.Fatalf("unexpected: %v", got)
	}
}

func TestParseVerdictsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":   "sure, here you go",
		"object":     `{"is_valid":"x"}`,
		"too long":   `[{"is_valid":"a"},{"is_valid":"b"}]`,
		"wrong type": `[{"is_valid":5}]`,
		"empty":      "   ",
		"trailing":   `[{"is_valid":"a"}] [1]`,
	}
	for name, raw := range cases {
		_, err := ParseVerdicts(raw, cands("a"))
		if !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("%s: want ErrMalformedResponse got=%v", name, err)
		}
	}
}

func TestParseVerdictsNullIsRejected(t *testing.T) {
	got, err := ParseVerdicts(`[{"is_valid":null}]`, cands("a"))
	if err != nil || len(got) != 0 {
		t.Fatalf("got=%v err=%v", got, err)
	}
}
