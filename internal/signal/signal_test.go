package signal

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/crypto-scalper/internal/model"
)

var btc = model.MustParseInstrument("BTC-USD")

// history builds points most-recent-first from values given oldest-first.
func history(values ...string) []model.PricePoint {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.PricePoint, len(values))
	for i, v := range values {
		out[len(values)-1-i] = model.PricePoint{
			Instrument: btc,
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			Bid:        decimal.RequireFromString(v),
		}
	}
	return out
}

func repeat(v string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestNew(t *testing.T) {
	for _, name := range []string{ModeSMA, ModeGap} {
		m, err := New(name)
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if m.Name() != name {
			t.Errorf("Name() = %q, want %q", m.Name(), name)
		}
	}
	if _, err := New("macd"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestAverage(t *testing.T) {
	h := history("1", "2", "3", "4") // most recent is 4

	tests := []struct {
		window int
		want   string
		valid  bool
	}{
		{1, "4", true},
		{2, "3.5", true},
		{4, "2.5", true},
		{5, "", false},
		{0, "", false},
	}
	for _, tt := range tests {
		got := Average(h, tt.window)
		if got.Valid != tt.valid {
			t.Errorf("Average(w=%d).Valid = %v, want %v", tt.window, got.Valid, tt.valid)
			continue
		}
		if tt.valid && !got.Decimal.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("Average(w=%d) = %s, want %s", tt.window, got.Decimal, tt.want)
		}
	}

	h[0].Bid = decimal.Zero
	if Average(h, 2).Valid {
		t.Error("window containing a missing price should be undefined")
	}
}

func TestSMA_InsufficientData(t *testing.T) {
	tests := []struct {
		name string
		h    []model.PricePoint
	}{
		{"empty", nil},
		{"shorter than short window", history("100", "101", "102")},
		// short satisfied, medium/long not.
		{"scenario A", history("100", "101", "102", "103", "104", "105", "106")},
		{"all null", history(repeat("0", 60)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := SMA{}.Compute(btc, tt.h)
			if sig.Classification != model.ClassInsufficientData {
				t.Errorf("Classification = %q, want %q", sig.Classification, model.ClassInsufficientData)
			}
			if sig.Classification.Actionable() {
				t.Error("insufficient data must not be actionable")
			}
		})
	}

	sig := SMA{}.Compute(btc, history("100", "101", "102", "103", "104", "105", "106"))
	if !sig.Short.Valid {
		t.Error("short average should be defined with 7 points")
	}
	if sig.Medium.Valid || sig.Long.Valid {
		t.Error("medium/long averages should be undefined with 7 points")
	}
}

func TestSMA_Classification(t *testing.T) {
	t.Run("uptrend", func(t *testing.T) {
		// 18 points at 100, then 24 at 101, then 6 at 103 (oldest-first).
		vals := append(repeat("100", 18), repeat("101", 24)...)
		vals = append(vals, repeat("103", 6)...)
		sig := SMA{}.Compute(btc, history(vals...))

		// short=103, medium=(24*101+6*103)/30=101.4, long=(18*100+24*101+6*103)/48=100.875
		if !sig.Short.Decimal.Equal(decimal.NewFromInt(103)) {
			t.Errorf("short = %s, want 103", sig.Short.Decimal)
		}
		if !sig.Medium.Decimal.Equal(decimal.RequireFromString("101.4")) {
			t.Errorf("medium = %s, want 101.4", sig.Medium.Decimal)
		}
		if sig.Classification != model.ClassUptrend {
			t.Errorf("Classification = %q, want uptrend", sig.Classification)
		}
	})

	t.Run("flat", func(t *testing.T) {
		sig := SMA{}.Compute(btc, history(repeat("100", 48)...))
		if sig.Classification != model.ClassNone {
			t.Errorf("Classification = %q, want none", sig.Classification)
		}
	})

	t.Run("short above medium but medium not above long", func(t *testing.T) {
		// long dominated by an old spike so medium*1.004 <= long*1.003.
		vals := append(repeat("120", 18), repeat("100", 24)...)
		vals = append(vals, repeat("110", 6)...)
		sig := SMA{}.Compute(btc, history(vals...))
		if sig.Classification != model.ClassNone {
			t.Errorf("Classification = %q, want none", sig.Classification)
		}
	})
}

func TestGap_Buckets(t *testing.T) {
	tests := []struct {
		gap  string
		want model.Classification
	}{
		{"0", model.ClassNone},
		{"-0.001", model.ClassNone},
		{"0.00009", model.ClassNone},
		{"0.0001", model.ClassMedium},
		{"0.00029", model.ClassMedium},
		{"0.0003", model.ClassLarge},
		{"0.00049", model.ClassLarge},
		{"0.0005", model.ClassExtreme},
		{"5", model.ClassExtreme},
	}
	for _, tt := range tests {
		t.Run(tt.gap, func(t *testing.T) {
			if got := Bucket(decimal.RequireFromString(tt.gap)); got != tt.want {
				t.Errorf("Bucket(%s) = %q, want %q", tt.gap, got, tt.want)
			}
		})
	}
}

func TestGap_Compute(t *testing.T) {
	t.Run("insufficient", func(t *testing.T) {
		sig := Gap{}.Compute(btc, history(repeat("1", 14)...))
		if sig.Classification != model.ClassInsufficientData {
			t.Errorf("Classification = %q, want insufficient_data", sig.Classification)
		}
		if sig.Gap.Valid {
			t.Error("gap should be undefined")
		}
	})

	t.Run("large", func(t *testing.T) {
		// Oldest-first: 14 points at 1.0000 then the latest at 1.0006.
		// avg1=1.0006, avg3=(1+1+1.0006)/3=1.0002, gap=0.0004.
		vals := append(repeat("1.0000", 14), "1.0006")
		sig := Gap{}.Compute(btc, history(vals...))
		if !sig.Gap.Valid || !sig.Gap.Decimal.Equal(decimal.RequireFromString("0.0004")) {
			t.Errorf("gap = %v, want 0.0004", sig.Gap)
		}
		if sig.Classification != model.ClassLarge {
			t.Errorf("Classification = %q, want large", sig.Classification)
		}
		if !sig.Classification.IsBucket() {
			t.Error("large should be a bucket")
		}
	})

	t.Run("falling", func(t *testing.T) {
		vals := append(repeat("2", 14), "1")
		sig := Gap{}.Compute(btc, history(vals...))
		if sig.Classification != model.ClassNone {
			t.Errorf("Classification = %q, want none", sig.Classification)
		}
	})
}
