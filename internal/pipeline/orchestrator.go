// Package pipeline is the top-level control loop: regions in, a batch
// summary out. Every candidate ends in exactly one bucket — accepted,
// duplicate, or failed — and one candidate's failure never aborts the
// batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/brooks-street/outreach-pipeline/internal/contact"
	"github.com/brooks-street/outreach-pipeline/internal/dedupe"
	"github.com/brooks-street/outreach-pipeline/internal/enrich"
	"github.com/brooks-street/outreach-pipeline/internal/model"
	"github.com/brooks-street/outreach-pipeline/internal/store"
	"github.com/brooks-street/outreach-pipeline/pkg/places"
)

// Orchestrator wires discovery, the dedup gate, enrichment, contact
// resolution and the store into one batch loop.
type Orchestrator struct {
	discovery     places.Provider
	gate          *dedupe.Gate
	enricher      *enrich.Enricher
	contacts      *contact.Engine
	store         store.Store
	maxConcurrent int
}

// New creates an Orchestrator. maxConcurrent bounds enrichment
// workers per batch.
func New(discovery places.Provider, st store.Store, enricher *enrich.Enricher, contacts *contact.Engine, maxConcurrent int) *Orchestrator {
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	return &Orchestrator{
		discovery:     discovery,
		gate:          dedupe.NewGate(st),
		enricher:      enricher,
		contacts:      contacts,
		store:         st,
		maxConcurrent: maxConcurrent,
	}
}

// batchState collects per-candidate outcomes across workers.
type batchState struct {
	mu     sync.Mutex
	result model.BatchResult
}

func (s *batchState) accept(rec model.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result.Accepted = append(s.result.Accepted, rec)
}

func (s *batchState) duplicate(cand model.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result.Duplicates = append(s.result.Duplicates, cand)
}

func (s *batchState) fail(cand model.Candidate, stage string, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result.Failed = append(s.result.Failed, model.FailedCandidate{
		Address: cand.Address,
		Name:    cand.Name,
		Stage:   stage,
		Cause:   cause.Error(),
	})
}

// RunBatch discovers candidates in each region and runs every
// admitted one through enrichment, contact resolution and
// persistence. limit > 0 caps the total candidates processed.
// Discovery failure for a region is an error; after discovery the
// batch always completes, with per-candidate failures isolated into
// the summary.
func (o *Orchestrator) RunBatch(ctx context.Context, regions []model.Region, limit int) (*model.BatchResult, error) {
	if o.discovery == nil {
		return nil, eris.New("pipeline: no discovery provider configured, set OUTREACH_PLACES_KEY")
	}

	var candidates []model.Candidate
	for _, region := range regions {
		found, err := o.discovery.FindCandidates(ctx, region.Bounds)
		if err != nil {
			return nil, err
		}
		zap.L().Info("discovery complete",
			zap.String("region", region.Name),
			zap.Int("candidates", len(found)))
		candidates = append(candidates, found...)
	}
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	state := &batchState{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxConcurrent)

	for _, cand := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				state.fail(cand, "canceled", err)
				return nil
			}
			o.processCandidate(gctx, cand, state)
			return nil // don't abort batch on individual failure
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	accepted, duplicates, failed := state.result.Counts()
	zap.L().Info("batch complete",
		zap.Int("accepted", accepted),
		zap.Int("duplicates", duplicates),
		zap.Int("failed", failed))
	return &state.result, nil
}

// RunOne processes a single candidate outside a discovery batch,
// producing the same one-bucket outcome a batch worker would.
func (o *Orchestrator) RunOne(ctx context.Context, cand model.Candidate) (*model.BatchResult, error) {
	state := &batchState{}
	o.processCandidate(ctx, cand, state)
	return &state.result, nil
}

// processCandidate runs one candidate end to end. A panic anywhere in
// the stages lands the candidate in the failed bucket instead of
// taking down the batch.
func (o *Orchestrator) processCandidate(ctx context.Context, cand model.Candidate, state *batchState) {
	defer func() {
		if r := recover(); r != nil {
			state.fail(cand, "panic", fmt.Errorf("%v", r))
			zap.L().Error("candidate worker panicked",
				zap.String("address", cand.Address),
				zap.Any("panic", r))
		}
	}()

	log := zap.L().With(zap.String("address", cand.Address))

	// Cheap pre-check on the raw keys before spending any lookups.
	decision, err := o.gate.Admit(ctx, dedupe.CandidateKeys(cand))
	if err != nil {
		state.fail(cand, "dedupe", err)
		return
	}
	if !decision.Admitted {
		log.Debug("duplicate before enrichment", zap.String("key", decision.MatchedKey))
		state.duplicate(cand)
		return
	}

	building := o.enricher.Enrich(ctx, cand)

	// Confirming check once the standardized address is known: two
	// spellings of one building converge on the same standardized key.
	keys := dedupe.KeysFor(building)
	decision, err = o.gate.Admit(ctx, keys)
	if err != nil {
		state.fail(cand, "dedupe", err)
		return
	}
	if !decision.Admitted {
		log.Debug("duplicate after standardization", zap.String("key", decision.MatchedKey))
		state.duplicate(cand)
		return
	}

	// Contact resolution is best effort: a building with no contact
	// is still worth persisting for manual follow-up.
	var resolved *model.ResolvedContact
	if o.contacts != nil {
		resolved, err = o.contacts.Resolve(ctx, building)
		if err != nil {
			log.Warn("contact resolution failed", zap.Error(err))
			resolved = nil
		}
	}

	rec, err := o.store.InsertRecord(ctx, *building, resolved, keys)
	if err != nil {
		// Two workers can both pass the gate before either inserts;
		// the unique index breaks the tie and the loser is a
		// duplicate, not a failure.
		if errors.Is(err, store.ErrDuplicateKey) {
			log.Debug("duplicate at insert")
			state.duplicate(cand)
			return
		}
		state.fail(cand, "persist", err)
		return
	}

	log.Info("candidate accepted",
		zap.String("record_id", rec.ID),
		zap.Bool("residential", building.ResidentialConfirmed),
		zap.Bool("contact_verified", resolved != nil && resolved.Verified))
	state.accept(*rec)
}

// ResolveFor re-runs contact resolution for a persisted record and
// stores the result. Used when a record was persisted without a
// verified contact and an operator wants another pass.
func (o *Orchestrator) ResolveFor(ctx context.Context, recordID string) (*model.ResolvedContact, error) {
	rec, err := o.store.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	resolved, err := o.contacts.Resolve(ctx, &rec.Building)
	if err != nil {
		return nil, err
	}
	if err := o.store.SetContact(ctx, rec.ID, resolved); err != nil {
		return nil, err
	}
	return resolved, nil
}
