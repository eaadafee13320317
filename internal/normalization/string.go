package normalization

import (
	"strings"
)

// NormalizeParameterName lowercases name and drops every character outside
// [a-z0-9]. It is the identity key for parameter dedup, so distinct display
// names such as "Cholesterol - Total" and "Cholesterol Total" collide on
// purpose.
func NormalizeParameterName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
