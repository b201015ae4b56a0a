package contact

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/brooks-street/outreach-pipeline/pkg/oracle"
	"github.com/brooks-street/outreach-pipeline/pkg/search"
)

func TestResolve_VerifiedOnlyAboveSeven(t *testing.T) {
	for _, tc := range []struct {
		score    int
		verified bool
	}{
		{0, false},
		{7, false},
		{8, true},
		{10, true},
	} {
		scorer := &mockScorer{}
		scorer.On("Score", mock.Anything, mock.Anything, mock.Anything).
			Return(&Judgment{Score: tc.score, Notes: "test"}, nil)

		b := testBuilding()
		b.Attributes.PropertyManager = "Jane Doe"

		engine := NewEngine(scorer)
		resolved, err := engine.Resolve(context.Background(), b)

		assert.NoError(t, err)
		assert.Equal(t, tc.score, resolved.Score)
		assert.Equal(t, tc.verified, resolved.Verified, "score %d", tc.score)
	}
}

func TestResolve_MergesPartialStrategies(t *testing.T) {
	// Embedded gives a name; the targeted search adds email and phone.
	searchClient := &mockSearch{}
	searchClient.On("Search", mock.Anything, mock.Anything).Return(&search.Response{
		Results: []search.Result{{
			Title:   "The Metropolitan — Leasing",
			URL:     "https://brooksmgmt.com/metropolitan",
			Content: "Leasing Agent: John Smith. Email leasing@brooksmgmt.com or call (212) 555-0147.",
		}},
	}, nil)

	scorer := &mockScorer{}
	scorer.On("Score", mock.Anything, mock.Anything, mock.Anything).
		Return(&Judgment{Score: 9}, nil)

	b := testBuilding()
	b.Attributes.PropertyManager = "Jane Doe"

	engine := NewEngine(scorer, WithSearch(searchClient))
	resolved, err := engine.Resolve(context.Background(), b)

	assert.NoError(t, err)
	// Name came from the embedded fields, never overwritten by search.
	assert.Equal(t, "Jane Doe", resolved.Name)
	assert.Equal(t, "leasing@brooksmgmt.com", resolved.Email)
	assert.Equal(t, "(212) 555-0147", resolved.Phone)
	assert.Equal(t, SourceEmbedded, resolved.Source)
}

func TestResolve_ListingHitTaggedWithDomain(t *testing.T) {
	// Targeted and area searches find nothing; only the
	// site-restricted query hits. The winner's source tag must name
	// the listing domain, not just the generic strategy.
	searchClient := &mockSearch{}
	searchClient.On("Search", mock.Anything, mock.MatchedBy(func(q string) bool {
		return strings.Contains(q, "property manager") || strings.Contains(q, "management company")
	})).Return(&search.Response{}, nil)
	searchClient.On("Search", mock.Anything, mock.MatchedBy(func(q string) bool {
		return strings.HasSuffix(q, "contact")
	})).Return(&search.Response{
		Results: []search.Result{{
			URL:     "https://streeteasy.com/building/the-metropolitan",
			Content: "Reach the leasing office at rentals@brooksmgmt.com.",
		}},
	}, nil)

	scorer := &mockScorer{}
	scorer.On("Score", mock.Anything, mock.Anything, mock.Anything).
		Return(&Judgment{Score: 8}, nil)

	engine := NewEngine(scorer,
		WithSearch(searchClient),
		WithListingDomains([]string{"streeteasy.com"}),
	)
	resolved, err := engine.Resolve(context.Background(), testBuilding())

	assert.NoError(t, err)
	assert.Equal(t, "rentals@brooksmgmt.com", resolved.Email)
	assert.Equal(t, SourceListing+":streeteasy.com", resolved.Source)
}

func TestResolve_GeneratedOnlyWhenNoWebEmail(t *testing.T) {
	searchClient := &mockSearch{}
	searchClient.On("Search", mock.Anything, mock.Anything).Return(&search.Response{
		Results: []search.Result{{
			URL:     "https://apartments.com/listing",
			Content: "Contact leasing@brooksmgmt.com for availability.",
		}},
	}, nil)

	oracleClient := &mockOracle{}

	scorer := &mockScorer{}
	scorer.On("Score", mock.Anything, mock.Anything, mock.Anything).
		Return(&Judgment{Score: 8}, nil)

	engine := NewEngine(scorer,
		WithSearch(searchClient),
		WithOracleFallback(oracleClient, "test-model", 512),
	)
	resolved, err := engine.Resolve(context.Background(), testBuilding())

	assert.NoError(t, err)
	assert.Equal(t, "leasing@brooksmgmt.com", resolved.Email)
	// The web found an email, so the oracle is never consulted.
	oracleClient.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestResolve_GeneratedFallbackKeepsTag(t *testing.T) {
	searchClient := &mockSearch{}
	searchClient.On("Search", mock.Anything, mock.Anything).
		Return(&search.Response{}, nil)

	oracleClient := &mockOracle{}
	oracleClient.On("Complete", mock.Anything, mock.Anything).Return(&oracle.Response{
		Text: `{"email":"leasing@metropolitan-nyc.com","name":"","title":"Leasing Office"}`,
	}, nil)

	scorer := &mockScorer{}
	scorer.On("Score", mock.Anything, mock.Anything, mock.Anything).
		Return(&Judgment{Score: 5}, nil)

	engine := NewEngine(scorer,
		WithSearch(searchClient),
		WithOracleFallback(oracleClient, "test-model", 512),
	)
	b := testBuilding()
	b.Attributes.PropertyManager = ""
	resolved, err := engine.Resolve(context.Background(), b)

	assert.NoError(t, err)
	assert.Equal(t, "leasing@metropolitan-nyc.com", resolved.Email)
	assert.Equal(t, SourceGenerated, resolved.Source)
	assert.False(t, resolved.Verified)
}

func TestResolve_NoCandidates(t *testing.T) {
	scorer := &mockScorer{}

	engine := NewEngine(scorer)
	resolved, err := engine.Resolve(context.Background(), testBuilding())

	assert.NoError(t, err)
	assert.Equal(t, 0, resolved.Score)
	assert.False(t, resolved.Verified)
	assert.Contains(t, resolved.Flags, "no candidates")
	// Nothing to judge, so the scorer is never called.
	scorer.AssertNotCalled(t, "Score", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_CacheHitSkipsStrategies(t *testing.T) {
	scorer := &mockScorer{}
	scorer.On("Score", mock.Anything, mock.Anything, mock.Anything).
		Return(&Judgment{Score: 8}, nil).Once()

	b := testBuilding()
	b.Attributes.PropertyManager = "Jane Doe"

	engine := NewEngine(scorer, WithCache(NewMemoryCache(time.Hour)))

	first, err := engine.Resolve(context.Background(), b)
	assert.NoError(t, err)

	second, err := engine.Resolve(context.Background(), b)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
	scorer.AssertNumberOfCalls(t, "Score", 1)
}

func TestResolve_ScorerFailureFallsBackToRules(t *testing.T) {
	scorer := &mockScorer{}
	scorer.On("Score", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, eris.New("judge unavailable"))

	b := testBuilding()
	b.Attributes.PropertyManager = "Jane Doe"

	engine := NewEngine(scorer)
	resolved, err := engine.Resolve(context.Background(), b)

	assert.NoError(t, err)
	assert.Contains(t, resolved.Flags, "scored offline")
}

func TestResolve_SecondaryCandidatesCarryConfidence(t *testing.T) {
	searchClient := &mockSearch{}
	searchClient.On("Search", mock.Anything, mock.Anything).Return(&search.Response{
		Results: []search.Result{{
			URL:     "https://zillow.com/b/metropolitan",
			Content: "Manager: Alice Brown, alice@brooksmgmt.com",
		}},
	}, nil)

	scorer := &mockScorer{}
	scorer.On("Score", mock.Anything, mock.Anything, mock.Anything).
		Return(&Judgment{Score: 8}, nil)

	b := testBuilding()
	b.Attributes.PropertyManager = "Jane Doe"

	engine := NewEngine(scorer, WithSearch(searchClient), WithSecondary(true))
	resolved, err := engine.Resolve(context.Background(), b)

	assert.NoError(t, err)
	assert.NotEmpty(t, resolved.Secondary)
	assert.Equal(t, 90, resolved.Secondary[0].Confidence)
	for _, sec := range resolved.Secondary {
		assert.GreaterOrEqual(t, sec.Confidence, 0)
		assert.LessOrEqual(t, sec.Confidence, 100)
	}
}

func TestResolve_SecondaryDisabled(t *testing.T) {
	scorer := &mockScorer{}
	scorer.On("Score", mock.Anything, mock.Anything, mock.Anything).
		Return(&Judgment{Score: 8}, nil)

	b := testBuilding()
	b.Attributes.PropertyManager = "Jane Doe"

	engine := NewEngine(scorer, WithSecondary(false))
	resolved, err := engine.Resolve(context.Background(), b)

	assert.NoError(t, err)
	assert.Empty(t, resolved.Secondary)
}

func TestResolve_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scorer := &mockScorer{}
	engine := NewEngine(scorer)
	_, err := engine.Resolve(ctx, testBuilding())
	assert.Error(t, err)
}
