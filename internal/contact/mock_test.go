package contact

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/brooks-street/outreach-pipeline/internal/model"
	"github.com/brooks-street/outreach-pipeline/pkg/oracle"
	"github.com/brooks-street/outreach-pipeline/pkg/search"
)

// --- Search Mock ---

type mockSearch struct {
	mock.Mock
}

func (m *mockSearch) Search(ctx context.Context, query string, opts ...search.SearchOption) (*search.Response, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*search.Response), args.Error(1)
}

// --- Oracle Mock ---

type mockOracle struct {
	mock.Mock
}

func (m *mockOracle) Complete(ctx context.Context, req oracle.Request) (*oracle.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oracle.Response), args.Error(1)
}

// --- Scorer Mock ---

type mockScorer struct {
	mock.Mock
}

func (m *mockScorer) Score(ctx context.Context, b *model.Building, cand model.ContactCandidate) (*Judgment, error) {
	args := m.Called(ctx, b, cand)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Judgment), args.Error(1)
}

// helpers

func testBuilding() *model.Building {
	return &model.Building{
		Name:         "The Metropolitan",
		Address:      "123 Main St, New York",
		DeclaredType: "residential_apartment",
		Source:       "places",
		Attributes: model.Attributes{
			Units:   120,
			Website: "https://brooksmgmt.com",
		},
	}
}
