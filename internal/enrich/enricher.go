package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/brooks-street/outreach-pipeline/internal/model"
	"github.com/brooks-street/outreach-pipeline/pkg/geocode"
	"github.com/brooks-street/outreach-pipeline/pkg/oracle"
)

// attributeSource is one rung of the attribute cascade. Exactly one
// source wins per building: the first to return a result without
// error. The others are never called.
type attributeSource struct {
	name  string
	fetch func(ctx context.Context, b *model.Building) (*AttributeResult, error)
}

// Enricher turns a raw discovery candidate into a fully enriched
// building: standardized address, attributes from the cascade,
// classification, and the residential-confirmation rule.
type Enricher struct {
	geocoder  geocode.Client
	listings  ListingSource
	oracle    oracle.Client
	model     string
	maxTokens int
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithListings attaches a structured listing source as the first rung
// of the attribute cascade.
func WithListings(src ListingSource) Option {
	return func(e *Enricher) { e.listings = src }
}

// WithOracle attaches a generative oracle for attribute inference and
// classification. Without one the enricher runs fully offline.
func WithOracle(c oracle.Client, model string, maxTokens int) Option {
	return func(e *Enricher) {
		e.oracle = c
		e.model = model
		e.maxTokens = maxTokens
	}
}

// New creates an Enricher. The geocoder is required; listing and
// oracle sources are optional rungs.
func New(geocoder geocode.Client, opts ...Option) *Enricher {
	e := &Enricher{
		geocoder:  geocoder,
		maxTokens: 1024,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// sources assembles the attribute cascade in priority order. The
// offline estimator is always last and never fails, so the cascade
// always produces a result.
func (e *Enricher) sources() []attributeSource {
	var srcs []attributeSource
	if e.listings != nil {
		srcs = append(srcs, attributeSource{
			name: "listing_api",
			fetch: func(ctx context.Context, b *model.Building) (*AttributeResult, error) {
				return e.listings.Fetch(ctx, b.Address)
			},
		})
	}
	if e.oracle != nil {
		srcs = append(srcs, attributeSource{
			name:  "oracle",
			fetch: e.inferAttributes,
		})
	}
	srcs = append(srcs, attributeSource{
		name: "estimator",
		fetch: func(_ context.Context, b *model.Building) (*AttributeResult, error) {
			return EstimateAttributes(b.Address), nil
		},
	})
	return srcs
}

// Enrich runs the full enrichment sequence on a candidate. Expected
// source failures (lookup misses, provider outages, malformed oracle
// answers) degrade the record instead of erroring: the address keeps
// an error confidence, the cascade falls through, classification is
// marked unparseable. The returned building is always usable.
func (e *Enricher) Enrich(ctx context.Context, cand model.Candidate) *model.Building {
	b := &model.Building{
		Name:    cand.Name,
		Address: cand.Address,
		Source:  cand.Source,
	}

	// Stage 1: address standardization. The geocoder fails closed,
	// returning an error-confidence address rather than an error.
	std, err := e.geocoder.Standardize(ctx, cand.Address)
	if err != nil {
		zap.L().Warn("standardization failed",
			zap.String("address", cand.Address),
			zap.Error(err))
	} else {
		b.Standardized = std
	}

	// Stage 2: attribute cascade. First source to answer wins.
	for _, src := range e.sources() {
		res, err := src.fetch(ctx, b)
		if err != nil {
			zap.L().Debug("attribute source passed",
				zap.String("source", src.name),
				zap.String("address", b.Address),
				zap.Error(err))
			continue
		}
		e.apply(b, res)
		break
	}

	// Stage 3: classification.
	if e.oracle != nil {
		b.Classification = e.classify(ctx, b)
	} else {
		b.Classification = classifyOffline(b)
	}

	// Stage 4: residential confirmation.
	b.ResidentialConfirmed = ConfirmResidential(b)

	return b
}

// apply merges a cascade winner into the building. Attributes are
// taken wholesale; name and declared type only fill empty fields, a
// source never overrides what discovery reported.
func (e *Enricher) apply(b *model.Building, res *AttributeResult) {
	b.Attributes = res.Attrs
	if b.Name == "" {
		b.Name = res.Name
	}
	if b.DeclaredType == "" {
		b.DeclaredType = res.BuildingType
	}
}
