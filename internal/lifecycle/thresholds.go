package lifecycle

import (
	"github.com/shopspring/decimal"

	"github.com/rickgao/crypto-scalper/internal/model"
)

// BucketThresholds maps each gap bucket to its exit distances.
var BucketThresholds = map[model.Classification]model.Thresholds{
	model.ClassMedium: {
		Profit: decimal.RequireFromString("0.015"),
		Loss:   decimal.RequireFromString("0.0075"),
	},
	model.ClassLarge: {
		Profit: decimal.RequireFromString("0.03"),
		Loss:   decimal.RequireFromString("0.0125"),
	},
	model.ClassExtreme: {
		Profit: decimal.RequireFromString("0.05"),
		Loss:   decimal.RequireFromString("0.02"),
	},
}

// ThresholdsFor returns the bucket thresholds for c, or flat when c is not a bucket.
func ThresholdsFor(c model.Classification, flat model.Thresholds) model.Thresholds {
	if th, ok := BucketThresholds[c]; ok {
		return th
	}
	return flat
}
