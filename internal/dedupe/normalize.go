package dedupe

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// streetSuffixes maps common abbreviations to their canonical form so
// "123 Main St" and "123 Main Street" produce the same dedup key.
var streetSuffixes = map[string]string{
	"st":   "street",
	"ave":  "avenue",
	"av":   "avenue",
	"blvd": "boulevard",
	"rd":   "road",
	"dr":   "drive",
	"ln":   "lane",
	"pl":   "place",
	"ct":   "court",
	"pkwy": "parkway",
	"e":    "east",
	"w":    "west",
	"n":    "north",
	"s":    "south",
}

var folder = cases.Fold()

// NormalizeAddress produces the canonical dedup key for a free-text
// address: case-folded, punctuation stripped, whitespace collapsed,
// street suffixes expanded.
func NormalizeAddress(addr string) string {
	folded := folder.String(addr)

	var b strings.Builder
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == ',' || r == '.' || r == '-' || r == '#':
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	for i, f := range fields {
		if canonical, ok := streetSuffixes[f]; ok {
			fields[i] = canonical
		}
	}
	return strings.Join(fields, " ")
}

// NormalizeName produces the canonical dedup key for a building name.
// Empty names never participate in dedup.
func NormalizeName(name string) string {
	folded := folder.String(strings.TrimSpace(name))
	return strings.Join(strings.Fields(folded), " ")
}
