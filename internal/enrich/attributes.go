package enrich

import (
	"context"
	"fmt"

	"github.com/brooks-street/outreach-pipeline/internal/model"
	"github.com/brooks-street/outreach-pipeline/pkg/oracle"
)

const attributeSystemPrompt = `You research New York City apartment buildings. Given what is known about a building, return your best estimate of its attributes as a valid JSON object with exactly these keys: {"name": "<string>", "number_of_units": <int>, "year_built": <int>, "square_footage": <int>, "amenities": ["<string>"], "building_class": "<Class A|Class B|Class C>", "building_type": "<string>", "rent_stabilized": <bool>}. Respond only with the JSON object, no other text.`

const attributeUserPrompt = `Address: %s
Name: %s
Standardized address: %s`

type oracleAttributes struct {
	Name           string   `json:"name"`
	NumberOfUnits  int      `json:"number_of_units"`
	YearBuilt      int      `json:"year_built"`
	SquareFootage  int      `json:"square_footage"`
	Amenities      []string `json:"amenities"`
	BuildingClass  string   `json:"building_class"`
	BuildingType   string   `json:"building_type"`
	RentStabilized bool     `json:"rent_stabilized"`
}

// inferAttributes asks the oracle to fill the attribute schema. A
// malformed answer surfaces as an error so the cascade can fall
// through to the offline estimator; unparsed output is never mixed
// into the record.
func (e *Enricher) inferAttributes(ctx context.Context, b *model.Building) (*AttributeResult, error) {
	std := ""
	if b.Standardized != nil {
		std = b.Standardized.Formatted
	}

	var attrs oracleAttributes
	resp, err := oracle.CompleteJSON(ctx, e.oracle, oracle.Request{
		Model:     e.model,
		MaxTokens: int64(e.maxTokens),
		System:    attributeSystemPrompt,
		Prompt:    fmt.Sprintf(attributeUserPrompt, b.Address, b.Name, std),
	}, &attrs)
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(resp.Model, "enrich.attributes")

	return &AttributeResult{
		Name:         attrs.Name,
		BuildingType: attrs.BuildingType,
		Attrs: model.Attributes{
			Units:          attrs.NumberOfUnits,
			YearBuilt:      attrs.YearBuilt,
			SquareFootage:  attrs.SquareFootage,
			Amenities:      attrs.Amenities,
			BuildingClass:  attrs.BuildingClass,
			RentStabilized: attrs.RentStabilized,
			Provenance:     model.ProvenanceInferred,
		},
	}, nil
}
