package guardrail

import "strings"

// RejectionMessage is the fixed user-facing response for queries that touch
// sensitive topics. It is a deliberate terminal answer, not an error.
const RejectionMessage = "Sorry, I cannot process sensitive or unsafe information."

// defaultMarkers is the canonical denylist of sensitive-topic markers.
// There is exactly one list in the codebase: every component that needs a
// safety check asks the same Filter, so the denylists cannot drift apart.
var defaultMarkers = []string{
	"password",
	"pin",
	"credit card number",
	"account number",
	"social security",
	"aadhaar",
	"personal info",
	"sensitive",
	"secret formula",
	"banking profits",
	"confidential",
}

// Filter rejects queries that contain disallowed topic markers.
// It performs pure denylist membership: case-insensitive substring matching,
// no scoring, no context awareness.
type Filter struct {
	markers []string
}

// NewFilter creates a Filter with the canonical marker list.
func NewFilter() *Filter {
	return &Filter{markers: defaultMarkers}
}

// NewFilterWithMarkers creates a Filter with a custom marker list.
// Markers are matched lowercase; empty markers are ignored.
func NewFilterWithMarkers(markers []string) *Filter {
	cleaned := make([]string, 0, len(markers))
	for _, m := range markers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			cleaned = append(cleaned, m)
		}
	}
	return &Filter{markers: cleaned}
}

// IsSafe reports whether the query is free of denylisted markers.
// A marker matches anywhere in the lowercased query.
func (f *Filter) IsSafe(query string) bool {
	q := strings.ToLower(query)
	for _, m := range f.markers {
		if strings.Contains(q, m) {
			return false
		}
	}
	return true
}

// Markers returns the active marker list. The returned slice must not be
// mutated.
func (f *Filter) Markers() []string {
	return f.markers
}
