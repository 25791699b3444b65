package api

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/crypto-scalper/internal/model"
)

func TestParseTimestamp(t *testing.T) {
	if got := ParseTimestamp(""); !got.IsZero() {
		t.Errorf("ParseTimestamp(\"\") = %v, want zero", got)
	}
	if got := ParseTimestamp("invalid"); !got.IsZero() {
		t.Errorf("ParseTimestamp(\"invalid\") = %v, want zero", got)
	}

	tests := []struct {
		input string
		want  time.Time
	}{
		{"2026-01-02T03:04:05Z", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2026-01-02T03:04:05.123456Z", time.Date(2026, 1, 2, 3, 4, 5, 123456000, time.UTC)},
		{"2026-01-02T05:04:05+02:00", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2026-01-02T03:04:05", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
	}
	for _, tt := range tests {
		got := ParseTimestamp(tt.input)
		if !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if got.Location() != time.UTC {
			t.Errorf("ParseTimestamp(%q) location = %v, want UTC", tt.input, got.Location())
		}
	}
}

func TestAPIQuoteToModel(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	q := APIQuote{
		Symbol:                   "btc-usd",
		Price:                    decimal.NewFromInt(100),
		BidInclusiveOfSellSpread: decimal.NewFromInt(99),
		AskInclusiveOfBuySpread:  decimal.NewFromInt(101),
	}
	got, err := q.ToModel(now)
	if err != nil {
		t.Fatalf("ToModel: %v", err)
	}
	if got.Instrument != model.MustParseInstrument("BTC-USD") {
		t.Errorf("Instrument = %v", got.Instrument)
	}
	if !got.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, now)
	}

	q.Symbol = "A-B-C"
	if _, err := q.ToModel(now); err == nil {
		t.Error("expected error for malformed symbol")
	}
}

func TestNewOrderRequest(t *testing.T) {
	intent := model.OrderIntent{
		ClientOrderID: "cid",
		Instrument:    model.MustParseInstrument("ETH-USD"),
		Side:          model.SideSell,
		Price:         decimal.NewFromInt(102),
		Quantity:      decimal.NewFromInt(2),
	}

	req := NewOrderRequest(intent)
	if req.Type != "limit" || req.LimitOrderConfig == nil || req.StopLimitOrderConfig != nil {
		t.Fatalf("limit request = %+v", req)
	}
	if req.LimitOrderConfig.TimeInForce != TimeInForce {
		t.Errorf("TimeInForce = %q, want %q", req.LimitOrderConfig.TimeInForce, TimeInForce)
	}

	intent.StopPrice = decimal.NewNullDecimal(decimal.NewFromInt(99))
	req = NewOrderRequest(intent)
	if req.Type != "stop_limit" || req.StopLimitOrderConfig == nil || req.LimitOrderConfig != nil {
		t.Fatalf("stop request = %+v", req)
	}
}
