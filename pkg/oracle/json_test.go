package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticClient struct {
	resp *Response
	err  error
}

func (c *staticClient) Complete(_ context.Context, _ Request) (*Response, error) {
	return c.resp, c.err
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"units": 40}`, `{"units": 40}`},
		{"json fence", "```json\n{\"units\": 40}\n```", `{"units": 40}`},
		{"plain fence", "```\n{\"units\": 40}\n```", `{"units": 40}`},
		{"leading prose", `Here is the data: {"units": 40}`, `{"units": 40}`},
		{"trailing prose", `{"units": 40} Let me know if you need more.`, `{"units": 40}`},
		{"whitespace", "  \n{\"units\": 40}\n  ", `{"units": 40}`},
		{"no braces", "forty units", "forty units"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSON(tt.in))
		})
	}
}

func TestCompleteJSON(t *testing.T) {
	c := &staticClient{resp: &Response{
		Text:  "```json\n{\"units\": 40, \"year_built\": 1985}\n```",
		Model: "claude-haiku-4-5-20251001",
	}}

	var out struct {
		Units     int `json:"units"`
		YearBuilt int `json:"year_built"`
	}
	resp, err := CompleteJSON(context.Background(), c, Request{Prompt: "describe"}, &out)
	require.NoError(t, err)
	assert.Equal(t, 40, out.Units)
	assert.Equal(t, 1985, out.YearBuilt)
	assert.Equal(t, "claude-haiku-4-5-20251001", resp.Model)
}

func TestCompleteJSONParseFailure(t *testing.T) {
	c := &staticClient{resp: &Response{Text: "I could not find any details about this building."}}

	var out struct{}
	resp, err := CompleteJSON(context.Background(), c, Request{Prompt: "describe"}, &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))
	assert.NotNil(t, resp, "response should be returned for usage accounting even on parse failure")
}

func TestCompleteJSONPropagatesClientError(t *testing.T) {
	c := &staticClient{err: eris.New("api unavailable")}

	var out struct{}
	_, err := CompleteJSON(context.Background(), c, Request{}, &out)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrParse))
}

func TestEstimateCost(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 500_000}

	assert.InDelta(t, 0.80+2.00, u.EstimateCost("claude-haiku-4-5-20251001"), 1e-9)
	assert.Zero(t, u.EstimateCost("some-unknown-model"))
}
