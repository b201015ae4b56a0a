package enrich

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/brooks-street/outreach-pipeline/internal/model"
	"github.com/brooks-street/outreach-pipeline/pkg/oracle"
)

// --- Geocoder Mock ---

type mockGeocoder struct {
	mock.Mock
}

func (m *mockGeocoder) Standardize(ctx context.Context, address string) (*model.StandardizedAddress, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StandardizedAddress), args.Error(1)
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

// --- Listing Source Mock ---

type mockListingSource struct {
	mock.Mock
}

func (m *mockListingSource) Fetch(ctx context.Context, address string) (*AttributeResult, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AttributeResult), args.Error(1)
}

// helpers

func stdAddress() *model.StandardizedAddress {
	return &model.StandardizedAddress{
		Street:     "123 MAIN ST",
		Borough:    "MANHATTAN",
		State:      "NY",
		PostalCode: "10001",
		Formatted:  "123 MAIN ST, MANHATTAN, NY, 10001",
		Confidence: model.AddressConfidenceHigh,
	}
}
