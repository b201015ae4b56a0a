// Package places discovers apartment-building candidates inside a
// bounding box via the Places text search API.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/brooks-street/outreach-pipeline/internal/model"
	"github.com/brooks-street/outreach-pipeline/internal/resilience"
)

const (
	defaultBaseURL = "https://places.googleapis.com/v1"
	defaultQuery   = "residential apartment building"
)

// Provider finds raw building candidates inside a region's bounds. It
// may return an empty slice; the caller bounds the call with a timeout.
type Provider interface {
	FindCandidates(ctx context.Context, bounds model.Bounds) ([]model.Candidate, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithMaxPages caps pagination per search.
func WithMaxPages(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

type httpClient struct {
	apiKey   string
	baseURL  string
	maxPages int
	http     *http.Client
}

// NewClient creates a Places discovery provider.
func NewClient(apiKey string, opts ...Option) Provider {
	c := &httpClient{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		maxPages: 3,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type rectangle struct {
	Low  latLng `json:"low"`
	High latLng `json:"high"`
}

type textSearchRequest struct {
	TextQuery           string `json:"textQuery"`
	PageToken           string `json:"pageToken,omitempty"`
	LocationRestriction *struct {
		Rectangle rectangle `json:"rectangle"`
	} `json:"locationRestriction,omitempty"`
}

type textSearchResponse struct {
	Places []struct {
		DisplayName struct {
			Text string `json:"text"`
		} `json:"displayName"`
		FormattedAddress string `json:"formattedAddress"`
		Location         latLng `json:"location"`
	} `json:"places"`
	NextPageToken string `json:"nextPageToken"`
}

// FindCandidates searches the bounds for apartment buildings,
// paginating up to the configured page cap.
func (c *httpClient) FindCandidates(ctx context.Context, bounds model.Bounds) ([]model.Candidate, error) {
	var (
		candidates []model.Candidate
		pageToken  string
	)

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.ShouldRetry = retryable

	for page := 0; page < c.maxPages; page++ {
		token := pageToken
		resp, err := resilience.Do(ctx, retryCfg, "places.text_search",
			func(ctx context.Context) (*textSearchResponse, error) {
				return c.textSearch(ctx, bounds, token)
			})
		if err != nil {
			return candidates, err
		}

		for _, place := range resp.Places {
			if place.FormattedAddress == "" {
				continue
			}
			lat, lng := place.Location.Latitude, place.Location.Longitude
			candidates = append(candidates, model.Candidate{
				Name:      place.DisplayName.Text,
				Address:   place.FormattedAddress,
				Latitude:  &lat,
				Longitude: &lng,
				Source:    "places",
			})
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return candidates, nil
}

func (c *httpClient) textSearch(ctx context.Context, bounds model.Bounds, pageToken string) (*textSearchResponse, error) {
	reqBody := textSearchRequest{
		TextQuery: defaultQuery,
		PageToken: pageToken,
	}
	reqBody.LocationRestriction = &struct {
		Rectangle rectangle `json:"rectangle"`
	}{
		Rectangle: rectangle{
			Low:  latLng{Latitude: bounds.South, Longitude: bounds.West},
			High: latLng{Latitude: bounds.North, Longitude: bounds.East},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, eris.Wrap(err, "places: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "places: create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", "places.displayName,places.formattedAddress,places.location,nextPageToken")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.Unavailable("places", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.Unavailable("places", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return nil, resilience.Unavailable("places",
			eris.Errorf("status %d: %s", resp.StatusCode, string(respBody)))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result textSearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, resilience.ParseFailure("places", err)
	}

	return &result, nil
}

// retryable treats source unavailability as worth another attempt;
// parse failures and hard API errors are not.
func retryable(err error) bool {
	var se *resilience.SourceError
	if errors.As(err, &se) {
		return !se.Parse
	}
	return resilience.IsTransient(err)
}
