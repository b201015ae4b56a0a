// Package dedupe decides whether a candidate building is already
// persisted. The gate is read-only; insertion stays with the caller.
package dedupe

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/brooks-street/outreach-pipeline/internal/model"
)

// KeyLookup is the capability the gate needs over persisted keys.
type KeyLookup interface {
	HasAddressKey(ctx context.Context, normalized string) (bool, error)
	HasStandardizedKey(ctx context.Context, standardized string) (bool, error)
	HasNameKey(ctx context.Context, name string) (bool, error)
}

// Decision is the gate's verdict for one candidate.
type Decision struct {
	Admitted   bool
	Reason     string // "duplicate" when rejected
	MatchedKey string // which key matched: "address", "standardized_address", "name"
}

// Gate checks candidates against persisted dedup keys in a fixed
// precedence: normalized address, standardized address (when known),
// then non-empty name. It runs twice per candidate — a cheap
// pre-check before enrichment and a confirming check once the
// standardized address exists.
type Gate struct {
	lookup KeyLookup
}

// NewGate creates a Gate over the given key lookup.
func NewGate(lookup KeyLookup) *Gate {
	return &Gate{lookup: lookup}
}

// Admit checks the candidate's keys in precedence order. The first
// match rejects with reason "duplicate". Empty keys are skipped.
func (g *Gate) Admit(ctx context.Context, keys model.KeySet) (Decision, error) {
	checks := []struct {
		key   string
		value string
		fn    func(context.Context, string) (bool, error)
	}{
		{"address", keys.NormalizedAddress, g.lookup.HasAddressKey},
		{"standardized_address", keys.StandardizedAddress, g.lookup.HasStandardizedKey},
		{"name", keys.Name, g.lookup.HasNameKey},
	}

	for _, check := range checks {
		if check.value == "" {
			continue
		}
		found, err := check.fn(ctx, check.value)
		if err != nil {
			return Decision{}, eris.Wrapf(err, "dedupe: lookup %s key", check.key)
		}
		if found {
			return Decision{Reason: "duplicate", MatchedKey: check.key}, nil
		}
	}

	return Decision{Admitted: true}, nil
}

// KeysFor derives the dedup key set for a building at its current
// enrichment stage.
func KeysFor(b *model.Building) model.KeySet {
	keys := model.KeySet{
		NormalizedAddress: NormalizeAddress(b.Address),
		Name:              NormalizeName(b.Name),
	}
	if b.Standardized != nil && b.Standardized.Formatted != "" {
		keys.StandardizedAddress = NormalizeAddress(b.Standardized.Formatted)
	}
	return keys
}

// CandidateKeys derives the pre-enrichment key set for a raw
// candidate. No standardized address exists yet, so the normalized
// raw address doubles as the standardized probe: a candidate whose
// spelling already matches a persisted record's standardized key is
// rejected before any enrichment is spent on it.
func CandidateKeys(c model.Candidate) model.KeySet {
	normalized := NormalizeAddress(c.Address)
	return model.KeySet{
		NormalizedAddress:   normalized,
		StandardizedAddress: normalized,
		Name:                NormalizeName(c.Name),
	}
}
