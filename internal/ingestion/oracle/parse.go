package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/labreport-backend/internal/ingestion/scanner"
)

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		if tag := strings.TrimSpace(s[:nl]); tag == "" || isFenceTag(tag) {
			s = s[nl+1:]
		}
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func isFenceTag(tag string) bool {
	for _, r := range tag {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

// ParseVerdicts aligns the oracle reply with the request positionally. A
// reply shorter than the request rejects the trailing candidates; a longer
// one cannot be aligned and is malformed.
func ParseVerdicts(raw string, candidates []scanner.Candidate) (map[string]string, error) {
	body := stripFences(raw)
	if body == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrMalformedResponse)
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	var verdicts []Verdict
	if err := dec.Decode(&verdicts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after array", ErrMalformedResponse)
	}
	if len(verdicts) > len(candidates) {
		return nil, fmt.Errorf("%w: %d verdicts for %d candidates", ErrMalformedResponse, len(verdicts), len(candidates))
	}
	out := make(map[string]string, len(verdicts))
	for i, v := range verdicts {
		if v.IsValid == nil {
			continue
		}
		name := strings.TrimSpace(*v.IsValid)
		if name == "" {
			continue
		}
		out[candidates[i].Key] = name
	}
	return out, nil
}
