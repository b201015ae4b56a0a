package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/brooks-street/outreach-pipeline/internal/contact"
	"github.com/brooks-street/outreach-pipeline/internal/enrich"
	"github.com/brooks-street/outreach-pipeline/internal/outreach"
	"github.com/brooks-street/outreach-pipeline/internal/pipeline"
	"github.com/brooks-street/outreach-pipeline/internal/store"
	"github.com/brooks-street/outreach-pipeline/pkg/geocode"
	"github.com/brooks-street/outreach-pipeline/pkg/oracle"
	"github.com/brooks-street/outreach-pipeline/pkg/places"
	"github.com/brooks-street/outreach-pipeline/pkg/search"
)

// pipelineEnv holds the initialized store, clients and orchestrator
// shared by the run/batch/contact/serve commands.
type pipelineEnv struct {
	Store        store.Store
	Orchestrator *pipeline.Orchestrator
	Contacts     *contact.Engine
	Outreach     *outreach.Service
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the store, the external clients and the
// orchestrator. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	geocoder := geocode.NewClient(
		geocode.WithBaseURL(cfg.Geocode.BaseURL),
		geocode.WithRateLimit(cfg.Geocode.RateLimit),
		geocode.WithRegion(cfg.Geocode.Region),
		geocode.WithTimeout(time.Duration(cfg.Geocode.TimeoutSecs)*time.Second),
	)

	// Discovery is optional: without a Places key only the run
	// command works, region batches need it.
	var discovery places.Provider
	if cfg.Places.Key != "" {
		discovery = places.NewClient(cfg.Places.Key,
			places.WithBaseURL(cfg.Places.BaseURL),
			places.WithMaxPages(cfg.Places.MaxPages),
			places.WithTimeout(time.Duration(cfg.Places.TimeoutSecs)*time.Second),
		)
	} else {
		zap.L().Debug("OUTREACH_PLACES_KEY not set, region discovery disabled")
	}

	var enrichOpts []enrich.Option
	if cfg.Listings.Key != "" {
		enrichOpts = append(enrichOpts, enrich.WithListings(
			enrich.NewHTTPListingSource(cfg.Listings.Key, cfg.Listings.BaseURL,
				time.Duration(cfg.Listings.TimeoutSecs)*time.Second),
		))
	}

	var oracleClient oracle.Client
	if cfg.Oracle.Key != "" {
		oracleClient = oracle.NewClient(cfg.Oracle.Key)
		enrichOpts = append(enrichOpts, enrich.WithOracle(oracleClient, cfg.Oracle.Model, cfg.Oracle.MaxTokens))
	} else {
		zap.L().Info("OUTREACH_ORACLE_KEY not set, running offline with the estimator")
	}
	enricher := enrich.New(geocoder, enrichOpts...)

	var scorer contact.Scorer = contact.RuleScorer{}
	engineOpts := []contact.EngineOption{
		contact.WithListingDomains(cfg.Contact.ListingDomains),
		contact.WithSecondary(cfg.Contact.GatherSecondary),
		contact.WithCache(contact.NewMemoryCache(
			time.Duration(cfg.Contact.CacheTTLHours) * time.Hour)),
	}
	if cfg.Search.Key != "" {
		engineOpts = append(engineOpts, contact.WithSearch(search.NewClient(cfg.Search.Key,
			search.WithBaseURL(cfg.Search.BaseURL),
			search.WithTimeout(time.Duration(cfg.Search.TimeoutSecs)*time.Second),
			search.WithRetries(cfg.Search.Retries),
		)))
	}
	if oracleClient != nil {
		scorer = contact.NewOracleScorer(oracleClient, cfg.Oracle.JudgeModel, cfg.Oracle.MaxTokens)
		engineOpts = append(engineOpts, contact.WithOracleFallback(oracleClient, cfg.Oracle.Model, cfg.Oracle.MaxTokens))
	}
	contacts := contact.NewEngine(scorer, engineOpts...)

	orch := pipeline.New(discovery, st, enricher, contacts, cfg.Batch.MaxConcurrentBuildings)

	return &pipelineEnv{
		Store:        st,
		Orchestrator: orch,
		Contacts:     contacts,
		Outreach:     outreach.NewService(st, nil),
	}, nil
}
