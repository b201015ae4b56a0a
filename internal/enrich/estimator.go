package enrich

import (
	"hash/fnv"

	"github.com/brooks-street/outreach-pipeline/internal/model"
)

// Offline estimator: the last rung of the attribute cascade. Values
// are derived from a hash of the address so repeated runs produce the
// same record, and every group carries the estimated provenance tag
// so downstream consumers can tell them from sourced data.

var estimatorNames = []string{"Metropolitan", "Hudson", "Lincoln", "Central", "Plaza"}

var estimatorAmenities = []string{
	"Doorman", "Gym", "Rooftop", "Laundry", "Parking",
	"Pet Friendly", "Pool", "Concierge", "Storage",
}

var estimatorClasses = []string{"Class A", "Class B", "Class C"}

// EstimateAttributes fills plausible attribute values for an address
// when both the listing source and the oracle have failed.
func EstimateAttributes(address string) *AttributeResult {
	h := fnv.New64a()
	_, _ = h.Write([]byte(address))
	seed := h.Sum64()

	pick := func(n uint64) uint64 {
		seed = seed*6364136223846793005 + 1442695040888963407
		return seed % n
	}

	amenityCount := 3 + int(pick(4))
	amenities := make([]string, 0, amenityCount)
	start := int(pick(uint64(len(estimatorAmenities))))
	for i := 0; i < amenityCount; i++ {
		amenities = append(amenities, estimatorAmenities[(start+i)%len(estimatorAmenities)])
	}

	return &AttributeResult{
		Name:         "The " + estimatorNames[pick(uint64(len(estimatorNames)))] + " Apartments",
		BuildingType: "residential_apartment",
		Attrs: model.Attributes{
			Units:          50 + int(pick(250)),
			YearBuilt:      1960 + int(pick(50)),
			SquareFootage:  40000 + int(pick(400000)),
			Amenities:      amenities,
			BuildingClass:  estimatorClasses[pick(uint64(len(estimatorClasses)))],
			RentStabilized: pick(2) == 0,
			Provenance:     model.ProvenanceEstimated,
		},
	}
}
