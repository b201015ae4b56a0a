package places

import (
	"context"

	"github.com/brooks-street/outreach-pipeline/internal/model"
)

// StaticProvider serves a fixed candidate list, filtered to the
// requested bounds. It stands in for the live API in development and
// tests. Candidates without coordinates are always returned.
type StaticProvider struct {
	candidates []model.Candidate
}

// Static creates a provider over a fixed candidate list.
func Static(candidates []model.Candidate) *StaticProvider {
	return &StaticProvider{candidates: candidates}
}

func (p *StaticProvider) FindCandidates(_ context.Context, bounds model.Bounds) ([]model.Candidate, error) {
	var out []model.Candidate
	for _, c := range p.candidates {
		if c.Latitude == nil || c.Longitude == nil {
			out = append(out, c)
			continue
		}
		if *c.Latitude <= bounds.North && *c.Latitude >= bounds.South &&
			*c.Longitude <= bounds.East && *c.Longitude >= bounds.West {
			out = append(out, c)
		}
	}
	return out, nil
}
