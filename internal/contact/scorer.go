package contact

import (
	"context"
	"fmt"
	"strings"

	"github.com/brooks-street/outreach-pipeline/internal/model"
	"github.com/brooks-street/outreach-pipeline/pkg/oracle"
)

// Judgment is a scorer's verdict on one contact candidate. Verified
// is derived from Score by the engine, never set by the scorer
// itself.
type Judgment struct {
	Score int
	Notes string
	Flags []string
}

// Scorer judges how likely a contact candidate is to be a real,
// current point of contact for a building. Implementations may call
// out to an oracle; the contract stays structured either way.
type Scorer interface {
	Score(ctx context.Context, b *model.Building, cand model.ContactCandidate) (*Judgment, error)
}

// verifiedThreshold is the score above which a contact counts as
// verified. Strictly above: a 7 is not verified.
const verifiedThreshold = 7

// Verified reports whether a score clears the verification bar.
func Verified(score int) bool { return score > verifiedThreshold }

const scorerSystemPrompt = `You verify outreach contacts for apartment buildings. Given a building and a candidate contact, judge how likely the contact is a real, current point of contact for that building. Respond with a valid JSON object with exactly these keys: {"confidence_score": <int 0-10>, "verification_notes": "<one or two sentences>", "verification_flags": ["<string>"]}. Flags name specific risks such as a personal email domain, a title that does not fit the building, or no professional source. Respond only with the JSON object, no other text.`

const scorerUserPrompt = `Building: %s
Address: %s
Type: %s
Management company: %s
Units: %d

Contact candidate:
Email: %s
Phone: %s
Name: %s
Title: %s
Source: %s`

type scorerAnswer struct {
	ConfidenceScore   int      `json:"confidence_score"`
	VerificationNotes string   `json:"verification_notes"`
	VerificationFlags []string `json:"verification_flags"`
}

// OracleScorer judges contacts with a generative oracle.
type OracleScorer struct {
	oracle    oracle.Client
	model     string
	maxTokens int
}

// NewOracleScorer creates a scorer backed by the given oracle.
func NewOracleScorer(c oracle.Client, model string, maxTokens int) *OracleScorer {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &OracleScorer{oracle: c, model: model, maxTokens: maxTokens}
}

func (s *OracleScorer) Score(ctx context.Context, b *model.Building, cand model.ContactCandidate) (*Judgment, error) {
	var ans scorerAnswer
	resp, err := oracle.CompleteJSON(ctx, s.oracle, oracle.Request{
		Model:     s.model,
		MaxTokens: int64(s.maxTokens),
		System:    scorerSystemPrompt,
		Prompt: fmt.Sprintf(scorerUserPrompt,
			b.Name, b.Address, b.Classification.BuildingType,
			b.Attributes.ManagementCompany, b.Attributes.Units,
			cand.Email, cand.Phone, cand.Name, cand.Title, cand.Source),
	}, &ans)
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(resp.Model, "contact.score")

	if ans.ConfidenceScore < 0 {
		ans.ConfidenceScore = 0
	}
	if ans.ConfidenceScore > 10 {
		ans.ConfidenceScore = 10
	}
	return &Judgment{
		Score: ans.ConfidenceScore,
		Notes: ans.VerificationNotes,
		Flags: ans.VerificationFlags,
	}, nil
}

// personalDomains never belong to a management company.
var personalDomains = []string{"gmail.com", "yahoo.com", "hotmail.com", "aol.com", "outlook.com"}

// RuleScorer is the offline fallback judge. It scores on simple
// signals: a company-domain email, a leasing-style address, a named
// person with a recognized title, and a non-generated source.
type RuleScorer struct{}

func (RuleScorer) Score(_ context.Context, b *model.Building, cand model.ContactCandidate) (*Judgment, error) {
	score := 0
	var flags []string
	var notes []string

	if cand.Email != "" {
		score += 3
		at := strings.LastIndex(cand.Email, "@")
		domain := ""
		if at >= 0 {
			domain = cand.Email[at+1:]
		}

		personal := false
		for _, d := range personalDomains {
			if domain == d {
				personal = true
				break
			}
		}
		switch {
		case personal:
			flags = append(flags, "personal email domain")
		case b.Attributes.Website != "" && strings.HasSuffix(domain, DomainOf(b.Attributes.Website)):
			score += 3
			notes = append(notes, "email matches building website domain")
		default:
			score += 1
		}
		if strings.Contains(cand.Email[:at+1], "leasing") {
			score++
			notes = append(notes, "leasing mailbox")
		}
	} else {
		flags = append(flags, "no email address")
	}

	if cand.Name != "" && cand.Title != "" {
		score += 2
		notes = append(notes, "named person with recognized title")
	}
	if cand.Source == SourceGenerated {
		score = min(score, 3)
		flags = append(flags, "generated without source evidence")
	}
	if score > 10 {
		score = 10
	}

	return &Judgment{
		Score: score,
		Notes: strings.Join(notes, "; "),
		Flags: flags,
	}, nil
}
