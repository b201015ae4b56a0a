package enrich

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/brooks-street/outreach-pipeline/internal/model"
	"github.com/brooks-street/outreach-pipeline/pkg/oracle"
)

const classifySystemPrompt = `You classify New York City buildings for an outreach team. Given a building's details, respond with a valid JSON object with exactly these keys: {"building_type": "<residential_apartment|condo|coop|mixed_use|commercial|other>", "manager_type": "<management_company|owner_operated|unknown>", "investment_rating": "<A|B|C|D>", "notes": "<one sentence>", "confidence": "<high|medium|low>"}. Respond only with the JSON object, no other text.`

const classifyUserPrompt = `Name: %s
Address: %s
Declared type: %s
Attributes: %s`

type classifyAnswer struct {
	BuildingType     string `json:"building_type"`
	ManagerType      string `json:"manager_type"`
	InvestmentRating string `json:"investment_rating"`
	Notes            string `json:"notes"`
	Confidence       string `json:"confidence"`
}

// classify asks the oracle what kind of building this is. An answer
// that fails to parse is recorded as an error classification rather
// than aborting the building: type "unknown", confidence "error".
func (e *Enricher) classify(ctx context.Context, b *model.Building) model.Classification {
	attrsJSON, _ := json.Marshal(b.Attributes)

	var ans classifyAnswer
	resp, err := oracle.CompleteJSON(ctx, e.oracle, oracle.Request{
		Model:     e.model,
		MaxTokens: int64(e.maxTokens),
		System:    classifySystemPrompt,
		Prompt:    fmt.Sprintf(classifyUserPrompt, b.Name, b.Address, b.DeclaredType, attrsJSON),
	}, &ans)
	if err != nil {
		zap.L().Warn("classification failed",
			zap.String("address", b.Address),
			zap.Error(err))
		return model.Classification{
			BuildingType: "unknown",
			Confidence:   "error",
		}
	}
	resp.Usage.LogCost(resp.Model, "enrich.classify")

	if ans.Confidence == "" {
		ans.Confidence = "low"
	}
	return model.Classification{
		BuildingType:     ans.BuildingType,
		ManagerType:      ans.ManagerType,
		InvestmentRating: ans.InvestmentRating,
		Notes:            ans.Notes,
		Confidence:       ans.Confidence,
	}
}

// classifyOffline is the classification used when no oracle is
// configured. It leans on whatever the attribute source reported.
func classifyOffline(b *model.Building) model.Classification {
	managerType := "owner_operated"
	if b.Attributes.ManagementCompany != "" {
		managerType = "management_company"
	}
	buildingType := b.DeclaredType
	if buildingType == "" {
		buildingType = "unknown"
	}
	return model.Classification{
		BuildingType: buildingType,
		ManagerType:  managerType,
		Confidence:   "low",
	}
}
