package geocode

import (
	"strings"

	"github.com/brooks-street/outreach-pipeline/internal/model"
)

// boroughs are the city parts the component heuristics prefer when a
// matched address contains one.
var boroughs = []string{"manhattan", "brooklyn", "queens", "bronx", "staten island"}

// ParseComponents splits a matched address string like
// "123 MAIN ST, BROOKLYN, NY, 11201" into structured parts using
// priority heuristics: a part containing a recognized borough name, a
// part containing the region code, and a 5-digit numeric part for the
// postal code. Confidence is high when at least three parts were
// recovered, medium otherwise.
func ParseComponents(formatted, region string) *model.StandardizedAddress {
	parts := splitParts(formatted)
	std := &model.StandardizedAddress{}

	if len(parts) > 0 {
		std.Street = parts[0]
	}

	for _, p := range parts[min(1, len(parts)):] {
		lower := strings.ToLower(p)
		if std.Borough == "" {
			for _, b := range boroughs {
				if strings.Contains(lower, b) {
					std.Borough = p
					break
				}
			}
		}
		if std.State == "" && region != "" && strings.Contains(strings.ToUpper(p), strings.ToUpper(region)) {
			std.State = region
		}
		if std.PostalCode == "" && isPostalCode(p) {
			std.PostalCode = p
		}
	}

	recovered := 0
	for _, f := range []string{std.Street, std.Borough, std.State, std.PostalCode} {
		if f != "" {
			recovered++
		}
	}

	// Reconstruct the canonical form from whatever was recovered.
	var b strings.Builder
	b.WriteString(std.Street)
	if std.Borough != "" {
		b.WriteString(", " + std.Borough)
	}
	if std.State != "" {
		b.WriteString(", " + std.State)
	}
	if std.PostalCode != "" {
		b.WriteString(" " + std.PostalCode)
	}
	std.Formatted = b.String()
	if std.Formatted == "" {
		std.Formatted = formatted
	}

	if recovered >= 3 {
		std.Confidence = model.AddressConfidenceHigh
	} else {
		std.Confidence = model.AddressConfidenceMedium
	}
	return std
}

func splitParts(s string) []string {
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

func isPostalCode(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != 5 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
