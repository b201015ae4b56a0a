package places

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brooks-street/outreach-pipeline/internal/model"
)

func ptr(f float64) *float64 { return &f }

func TestStaticProviderFiltersBounds(t *testing.T) {
	p := Static([]model.Candidate{
		{Name: "Inside", Address: "1 Court St", Latitude: ptr(40.70), Longitude: ptr(-73.95)},
		{Name: "Outside", Address: "9 Uptown Ave", Latitude: ptr(41.50), Longitude: ptr(-73.95)},
		{Name: "No Coords", Address: "5 Smith St"},
	})

	got, err := p.FindCandidates(context.Background(), testBounds)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Inside", got[0].Name)
	assert.Equal(t, "No Coords", got[1].Name)
}
