package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brooks-street/outreach-pipeline/internal/contact"
	"github.com/brooks-street/outreach-pipeline/internal/enrich"
	"github.com/brooks-street/outreach-pipeline/internal/model"
	"github.com/brooks-street/outreach-pipeline/internal/store"
)

// --- Discovery Mock ---

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) FindCandidates(ctx context.Context, bounds model.Bounds) ([]model.Candidate, error) {
	args := m.Called(ctx, bounds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Candidate), args.Error(1)
}

// --- Geocoder Stub ---

// stubGeocoder standardizes by table lookup so two raw spellings can
// converge on one formatted address. It counts calls so tests can
// assert that a rejected candidate consumed no enrichment.
type stubGeocoder struct {
	formatted map[string]string
	calls     int
}

func (g *stubGeocoder) Standardize(_ context.Context, address string) (*model.StandardizedAddress, error) {
	g.calls++
	formatted, ok := g.formatted[address]
	if !ok {
		return &model.StandardizedAddress{
			Formatted:  address,
			Confidence: model.AddressConfidenceLow,
		}, nil
	}
	return &model.StandardizedAddress{
		Street:     formatted,
		Borough:    "MANHATTAN",
		State:      "NY",
		PostalCode: "10001",
		Formatted:  formatted,
		Confidence: model.AddressConfidenceHigh,
	}, nil
}

// --- Failing Store Wrapper ---

// insertFailStore fails InsertRecord for one address to exercise
// failure isolation.
type insertFailStore struct {
	store.Store
	failAddress string
}

func (s *insertFailStore) InsertRecord(ctx context.Context, b model.Building, c *model.ResolvedContact, keys model.KeySet) (*model.Record, error) {
	if b.Address == s.failAddress {
		return nil, eris.New("disk full")
	}
	return s.Store.InsertRecord(ctx, b, c, keys)
}

// blindGateStore hides the standardized key from the gate so an
// insert can collide the way a concurrent worker's would.
type blindGateStore struct {
	store.Store
}

func (s *blindGateStore) HasStandardizedKey(context.Context, string) (bool, error) {
	return false, nil
}

// helpers

func listAll() store.RecordFilter {
	return store.RecordFilter{}
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestOrchestrator(discovery *mockProvider, st store.Store, geocoder *stubGeocoder) *Orchestrator {
	enricher := enrich.New(geocoder)
	contacts := contact.NewEngine(contact.RuleScorer{})
	return New(discovery, st, enricher, contacts, 1)
}

func testRegion() model.Region {
	return model.Region{
		Name: "upper-east-side",
		Bounds: model.Bounds{
			North: 40.78, South: 40.76, East: -73.94, West: -73.97,
		},
	}
}
