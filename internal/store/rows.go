package store

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rickgao/crypto-scalper/internal/model"
)

// decimalColumns parses decimal text columns in order.
func decimalColumns(src []string, dst ...*decimal.Decimal) error {
	for i, s := range src {
		v, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("parse decimal %q: %w", s, err)
		}
		*dst[i] = v
	}
	return nil
}

func parseInstrument(s string) (model.Instrument, error) {
	inst, err := model.ParseInstrument(s)
	if err != nil {
		return model.Instrument{}, fmt.Errorf("stored instrument: %w", err)
	}
	return inst, nil
}
