package oracle

import (
	"context"
	"errors"

	"github.com/yungbote/labreport-backend/internal/ingestion/scanner"
)

var (
	// ErrUnavailable wraps transport and upstream failures; callers may retry.
	ErrUnavailable = errors.New("validation oracle unavailable")
	// ErrMalformedResponse means the reply could not be aligned with the
	// request. It is never read as "everything rejected".
	ErrMalformedResponse = errors.New("malformed validation oracle response")
)

// Validator classifies scanned candidates. The result maps a candidate key
// to the canonical display name chosen by the oracle; keys absent from the
// result were rejected. Implementations must never send measurement values.
type Validator interface {
	Validate(ctx context.Context, candidates []scanner.Candidate) (map[string]string, error)
}

// Item is the wire shape of one candidate sent to the oracle.
type Item struct {
	Name string `json:"name"`
	Unit string `json:"unit,omitempty"`
}

// Verdict is one positional reply entry. An empty IsValid means rejected.
type Verdict struct {
	IsValid *string `json:"is_valid"`
}

// Items builds the request payload: normalized key and unit only.
func Items(candidates []scanner.Candidate) []Item {
	out := make([]Item, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Item{Name: c.Key, Unit: c.Unit})
	}
	return out
}
