package enrich

import (
	"strings"

	"github.com/brooks-street/outreach-pipeline/internal/model"
)

// residentialIndicatorThreshold is how many independent signals must
// agree before a building is confirmed residential. A single source
// claiming "apartment" is not enough on its own.
const residentialIndicatorThreshold = 2

// ConfirmResidential applies the multi-indicator residential rule to
// an enriched building. Indicators: the declared type mentions
// apartments or residential, the classifier's type does, the name
// mentions apartments, and the unit count is above a single-family
// ceiling. Adding attributes can only add indicators, never remove
// them, so enrichment never flips a confirmed building back.
func ConfirmResidential(b *model.Building) bool {
	indicators := 0

	declared := strings.ToLower(b.DeclaredType)
	if strings.Contains(declared, "apartment") || strings.Contains(declared, "residential") {
		indicators++
	}

	classified := strings.ToLower(b.Classification.BuildingType)
	if strings.Contains(classified, "apartment") || strings.Contains(classified, "residential") {
		indicators++
	}

	if strings.Contains(strings.ToLower(b.Name), "apartment") {
		indicators++
	}

	if b.Attributes.Units > 10 {
		indicators++
	}

	return indicators >= residentialIndicatorThreshold
}
