package pipeline

import (
	"testing"

	"housing-data-go/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(f float64) *float64 { return &f }

func TestCalculateRatios(t *testing.T) {
	records := []models.HousingRecord{
		{
			ZMediumRent:  fptr(2000),
			ZMediumValue: fptr(400000),
			NMediumValue: fptr(350000),
			FourBedroom:  fptr(2800),
		},
		{
			// No rent observation: the Zillow and NAR rent ratios stay unset
			// while the HUD 4-bedroom ratios still compute.
			ZMediumValue: fptr(500000),
			NMediumValue: fptr(450000),
			FourBedroom:  fptr(3000),
		},
		{
			// Zero denominator must not produce Inf.
			ZMediumRent:  fptr(1500),
			ZMediumValue: fptr(0),
		},
	}

	CalculateRatios(records)

	full := records[0]
	require.NotNil(t, full.ZillowRatio)
	assert.InDelta(t, 0.005, *full.ZillowRatio, 1e-9)
	require.NotNil(t, full.NARRatio)
	assert.InDelta(t, 2000.0/350000.0, *full.NARRatio, 1e-9)
	require.NotNil(t, full.ZHRatio)
	assert.InDelta(t, 2800.0/400000.0, *full.ZHRatio, 1e-9)
	require.NotNil(t, full.NHRatio)
	assert.InDelta(t, 2800.0/350000.0, *full.NHRatio, 1e-9)

	noRent := records[1]
	assert.Nil(t, noRent.ZillowRatio)
	assert.Nil(t, noRent.NARRatio)
	require.NotNil(t, noRent.ZHRatio)
	assert.InDelta(t, 3000.0/500000.0, *noRent.ZHRatio, 1e-9)

	zeroValue := records[2]
	assert.Nil(t, zeroValue.ZillowRatio)
	assert.Nil(t, zeroValue.NARRatio)
	assert.Nil(t, zeroValue.ZHRatio)
	assert.Nil(t, zeroValue.NHRatio)
}
