package usecase

import (
	"math"

	"github.com/barease/backend/internal/domain"
)

// Classification thresholds
const (
	abvLowBelow   = 40.0   // percent
	abvMidUpTo    = 46.0   // percent
	priceLowBelow = 1200.0 // yen per 30ml
	priceMidUpTo  = 2000.0 // yen per 30ml
)

// ToPercentage normalizes an alcohol volume to percent rounded to two
// decimals. Ratios in (0, 1] are treated as fractions (0.43 -> 43).
func ToPercentage(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) {
		return nil
	}
	percent := *v
	if percent > 0 && percent <= 1 {
		percent *= 100
	}
	percent = math.Round(percent*100) / 100
	return &percent
}

// ClassifyAbv buckets an alcohol volume: below 40% low, up to 46% mid, else high
func ClassifyAbv(alcoholVolume *float64) domain.Class {
	percent := ToPercentage(alcoholVolume)
	if percent == nil {
		return ""
	}
	switch {
	case *percent < abvLowBelow:
		return domain.ClassLow
	case *percent <= abvMidUpTo:
		return domain.ClassMid
	default:
		return domain.ClassHigh
	}
}

// ClassifyPrice buckets the 30ml price: below 1200 low, up to 2000 mid, else high.
// Missing or zero prices are unclassified.
func ClassifyPrice(price30ml *float64) domain.Class {
	if price30ml == nil || *price30ml == 0 || math.IsNaN(*price30ml) {
		return ""
	}
	switch {
	case *price30ml < priceLowBelow:
		return domain.ClassLow
	case *price30ml <= priceMidUpTo:
		return domain.ClassMid
	default:
		return domain.ClassHigh
	}
}
