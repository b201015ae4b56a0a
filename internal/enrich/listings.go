package enrich

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/brooks-street/outreach-pipeline/internal/model"
	"github.com/brooks-street/outreach-pipeline/internal/resilience"
)

// AttributeResult is one attribute source's answer for a building.
// Name and BuildingType ride alongside the attributes because they
// fill the building's own fields when those are still empty.
type AttributeResult struct {
	Name         string
	BuildingType string
	Attrs        model.Attributes
}

// ListingSource is the structured attribute source tried first in the
// attribute cascade. ErrNoListing means the source had nothing for
// this address; the cascade falls through to the oracle.
type ListingSource interface {
	Fetch(ctx context.Context, address string) (*AttributeResult, error)
}

// ErrNoListing reports that the listing source had no data for the
// requested address.
var ErrNoListing = eris.New("listings: no data for address")

// HTTPListingSource queries a property-listing API for building
// attributes.
type HTTPListingSource struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewHTTPListingSource creates a listing source against the given API.
func NewHTTPListingSource(apiKey, baseURL string, timeout time.Duration) *HTTPListingSource {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPListingSource{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type listingResponse struct {
	Property *struct {
		Name           string   `json:"name"`
		Units          int      `json:"unit_count"`
		YearBuilt      int      `json:"year_built"`
		SquareFootage  int      `json:"square_footage"`
		Amenities      []string `json:"amenities"`
		BuildingClass  string   `json:"building_class"`
		BuildingType   string   `json:"building_type"`
		RentStabilized bool     `json:"rent_stabilized"`
		Management     string   `json:"management_company"`
		Website        string   `json:"website"`
	} `json:"property"`
}

// Fetch looks the address up in the listing API.
func (s *HTTPListingSource) Fetch(ctx context.Context, address string) (*AttributeResult, error) {
	params := url.Values{"address": {address}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/properties?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "listings: create request")
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, resilience.Unavailable("listings", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoListing
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("listings: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "listings: read response")
	}

	var parsed listingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, resilience.ParseFailure("listings", err)
	}
	if parsed.Property == nil {
		return nil, ErrNoListing
	}

	p := parsed.Property
	return &AttributeResult{
		Name:         p.Name,
		BuildingType: p.BuildingType,
		Attrs: model.Attributes{
			Units:             p.Units,
			YearBuilt:         p.YearBuilt,
			SquareFootage:     p.SquareFootage,
			Amenities:         p.Amenities,
			BuildingClass:     p.BuildingClass,
			RentStabilized:    p.RentStabilized,
			ManagementCompany: p.Management,
			Website:           p.Website,
			Provenance:        model.ProvenanceListing,
		},
	}, nil
}
