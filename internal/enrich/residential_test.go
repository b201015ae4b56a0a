package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brooks-street/outreach-pipeline/internal/model"
)

func TestConfirmResidential_RequiresTwoIndicators(t *testing.T) {
	// Only the declared type points residential: not enough.
	b := &model.Building{
		DeclaredType: "residential_apartment",
		Attributes:   model.Attributes{Units: 5},
	}
	assert.False(t, ConfirmResidential(b))

	// Classifier agrees: confirmed.
	b.Classification.BuildingType = "residential_apartment"
	assert.True(t, ConfirmResidential(b))
}

func TestConfirmResidential_NameAndUnits(t *testing.T) {
	b := &model.Building{
		Name:       "Sunset Apartments",
		Attributes: model.Attributes{Units: 45},
	}
	assert.True(t, ConfirmResidential(b))
}

func TestConfirmResidential_UnitsAloneInsufficient(t *testing.T) {
	b := &model.Building{
		Name:         "Midtown Office Center",
		DeclaredType: "commercial",
		Attributes:   model.Attributes{Units: 45},
	}
	assert.False(t, ConfirmResidential(b))
}

func TestConfirmResidential_BoundaryUnits(t *testing.T) {
	b := &model.Building{
		DeclaredType: "residential condo",
		Attributes:   model.Attributes{Units: 10},
	}
	// 10 units is not "> 10"; only one indicator fires.
	assert.False(t, ConfirmResidential(b))

	b.Attributes.Units = 11
	assert.True(t, ConfirmResidential(b))
}

func TestConfirmResidential_Monotonic(t *testing.T) {
	b := &model.Building{
		Name:         "Riverside Apartments",
		DeclaredType: "residential_apartment",
	}
	assert.True(t, ConfirmResidential(b))

	// Adding attributes can only add indicators.
	b.Attributes.Units = 200
	b.Classification.BuildingType = "residential_apartment"
	assert.True(t, ConfirmResidential(b))
}

func TestEstimateAttributes_Deterministic(t *testing.T) {
	a := EstimateAttributes("123 Main St, New York")
	b := EstimateAttributes("123 Main St, New York")
	assert.Equal(t, a, b)
	assert.NotZero(t, a.Attrs.Units)
}

func TestEstimateAttributes_PlausibleRanges(t *testing.T) {
	for _, addr := range []string{"1 A St", "2 B Ave", "3 C Blvd", "4 D Rd"} {
		res := EstimateAttributes(addr)
		assert.Equal(t, model.ProvenanceEstimated, res.Attrs.Provenance)
		assert.GreaterOrEqual(t, res.Attrs.Units, 50)
		assert.Less(t, res.Attrs.Units, 300)
		assert.GreaterOrEqual(t, res.Attrs.YearBuilt, 1960)
		assert.Less(t, res.Attrs.YearBuilt, 2010)
		assert.NotEmpty(t, res.Attrs.Amenities)
		assert.Contains(t, res.Name, "Apartments")
	}
}
