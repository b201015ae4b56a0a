// Package geocode standardizes free-text addresses via the Census
// one-line geocoder. It fails closed: an unmatched address comes back
// with low confidence and a transport failure with error confidence,
// never a propagated error.
package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/brooks-street/outreach-pipeline/internal/model"
)

const (
	defaultBaseURL  = "https://geocoding.geo.census.gov"
	oneLinePath     = "/geocoder/locations/onelineaddress"
	censusBenchmark = "Public_AR_Current"
)

// Client standardizes a free-text address.
type Client interface {
	Standardize(ctx context.Context, address string) (*model.StandardizedAddress, error)
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithBaseURL overrides the geocoding endpoint (for testing).
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		g.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *geocoder) {
		if d > 0 {
			g.httpClient.Timeout = d
		}
	}
}

// WithRateLimit sets the requests-per-second rate limit.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

// WithRegion sets the state/region code the component heuristics
// prefer when splitting a matched address.
func WithRegion(code string) Option {
	return func(g *geocoder) {
		g.region = code
	}
}

type geocoder struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	region     string
}

// NewClient creates a geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
		region:     "NY",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type oneLineResponse struct {
	Result struct {
		AddressMatches []struct {
			Coordinates struct {
				X float64 `json:"x"` // longitude
				Y float64 `json:"y"` // latitude
			} `json:"coordinates"`
			MatchedAddress string `json:"matchedAddress"`
		} `json:"addressMatches"`
	} `json:"result"`
}

// Standardize geocodes one address. The returned confidence is:
// high when at least three structured parts were recovered, medium
// with fewer, low when the geocoder found no match, error when the
// call itself failed.
func (g *geocoder) Standardize(ctx context.Context, address string) (*model.StandardizedAddress, error) {
	match, err := g.lookup(ctx, address)
	if err != nil {
		zap.L().Warn("geocode: lookup failed",
			zap.String("address", address),
			zap.Error(err),
		)
		return &model.StandardizedAddress{Confidence: model.AddressConfidenceError}, nil
	}
	if match == nil {
		return &model.StandardizedAddress{Confidence: model.AddressConfidenceLow}, nil
	}

	std := ParseComponents(match.formatted, g.region)
	std.Latitude = match.lat
	std.Longitude = match.lng
	return std, nil
}

type matchResult struct {
	formatted string
	lat, lng  float64
}

func (g *geocoder) lookup(ctx context.Context, address string) (*matchResult, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	params := url.Values{
		"address":   {address},
		"benchmark": {censusBenchmark},
		"format":    {"json"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+oneLinePath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}

	var parsed oneLineResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}

	if len(parsed.Result.AddressMatches) == 0 {
		return nil, nil
	}

	m := parsed.Result.AddressMatches[0]
	return &matchResult{
		formatted: m.MatchedAddress,
		lat:       m.Coordinates.Y,
		lng:       m.Coordinates.X,
	}, nil
}
