package pipeline

import (
	"math"

	"housing-data-go/pkg/models"
)

// CalculateRatios derives the four affordability ratios on every record.
// Ratios with a missing or zero denominator are left nil, and non-finite
// results are discarded.
func CalculateRatios(records []models.HousingRecord) {
	for i := range records {
		rec := &records[i]
		rec.ZillowRatio = ratio(rec.ZMediumRent, rec.ZMediumValue)
		rec.NARRatio = ratio(rec.ZMediumRent, rec.NMediumValue)
		rec.ZHRatio = ratio(rec.FourBedroom, rec.ZMediumValue)
		rec.NHRatio = ratio(rec.FourBedroom, rec.NMediumValue)
	}
}

func ratio(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	r := *num / *den
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return nil
	}
	return &r
}
