package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/crypto-scalper/internal/config"
	"github.com/rickgao/crypto-scalper/internal/model"
)

var (
	btc = model.MustParseInstrument("BTC-USD")
	eth = model.MustParseInstrument("ETH-USD")
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_SQLiteDriver(t *testing.T) {
	cfg := config.DatabaseConfig{
		Driver: DriverSQLite,
		SQLite: config.SQLite{Path: filepath.Join(t.TempDir(), "nested", "scalper.db")},
	}
	s, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.DatabaseConfig{Driver: "mysql"}, nil); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestPriceHistory_MostRecentFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		q := model.Quote{
			Instrument: btc,
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			Price:      decimal.NewFromInt(int64(100 + i)),
			Bid:        decimal.NewFromInt(int64(99 + i)),
			Ask:        decimal.NewFromInt(int64(101 + i)),
		}
		if err := s.AppendPriceHistory(ctx, btc, q); err != nil {
			t.Fatalf("AppendPriceHistory: %v", err)
		}
	}
	if err := s.AppendPriceHistory(ctx, eth, model.Quote{Instrument: eth, Timestamp: base, Bid: d("1"), Ask: d("1")}); err != nil {
		t.Fatalf("AppendPriceHistory: %v", err)
	}

	got, err := s.ReadPriceHistory(ctx, btc, 3)
	if err != nil {
		t.Fatalf("ReadPriceHistory: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	wantBids := []string{"103", "102", "101"}
	for i, w := range wantBids {
		if !got[i].Bid.Equal(d(w)) {
			t.Errorf("got[%d].Bid = %s, want %s", i, got[i].Bid, w)
		}
	}
	if !got[0].Timestamp.Equal(base.Add(4 * time.Minute)) {
		t.Errorf("got[0].Timestamp = %v", got[0].Timestamp)
	}
	if got[0].Instrument != btc {
		t.Errorf("Instrument = %v, want BTC-USD", got[0].Instrument)
	}

	none, err := s.ReadPriceHistory(ctx, model.MustParseInstrument("DOGE"), 10)
	if err != nil {
		t.Fatalf("ReadPriceHistory: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("len = %d, want 0", len(none))
	}
}

func TestExecutedOrder_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := model.ExecutedOrder{
		ID:            "ord-1",
		ClientOrderID: "cid-1",
		Instrument:    btc,
		Side:          model.SideBuy,
		Type:          "limit",
		State:         "open",
		FillPrice:     d("0"),
		FillQuantity:  d("0"),
		CreatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 123456789, time.UTC),
		UpdatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 123456789, time.UTC),
	}
	if err := s.PersistExecutedOrder(ctx, btc, in); err != nil {
		t.Fatalf("PersistExecutedOrder: %v", err)
	}

	// Fill arrives later: upsert by id.
	in.State = model.OrderStateFilled
	in.FillPrice = d("100.123456789")
	in.FillQuantity = d("2")
	in.UpdatedAt = in.UpdatedAt.Add(time.Minute)
	if err := s.PersistExecutedOrder(ctx, btc, in); err != nil {
		t.Fatalf("PersistExecutedOrder: %v", err)
	}

	got, ok, err := s.GetExecutedOrder(ctx, "ord-1")
	if err != nil || !ok {
		t.Fatalf("GetExecutedOrder: ok=%v err=%v", ok, err)
	}
	if got.ID != in.ID || got.State != in.State {
		t.Errorf("got %+v, want %+v", got, in)
	}
	if !got.FillPrice.Equal(in.FillPrice) || !got.FillQuantity.Equal(in.FillQuantity) {
		t.Errorf("fill = %s x %s, want %s x %s", got.FillPrice, got.FillQuantity, in.FillPrice, in.FillQuantity)
	}
	if !got.UpdatedAt.Equal(in.UpdatedAt) || !got.CreatedAt.Equal(in.CreatedAt) {
		t.Errorf("times = %v/%v, want %v/%v", got.CreatedAt, got.UpdatedAt, in.CreatedAt, in.UpdatedAt)
	}
	if got.Instrument != btc || got.Side != model.SideBuy || got.ClientOrderID != "cid-1" {
		t.Errorf("got %+v", got)
	}

	if _, ok, err := s.GetExecutedOrder(ctx, "missing"); ok || err != nil {
		t.Errorf("missing order: ok=%v err=%v", ok, err)
	}
}

func TestCursor_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c, err := s.GetCursor(ctx, btc)
	if err != nil {
		t.Fatalf("GetCursor: %v", err)
	}
	if c != nil {
		t.Errorf("cursor = %v, want nil", c)
	}

	ts := time.Date(2026, 2, 3, 4, 5, 6, 7, time.UTC)
	for i := 0; i < 2; i++ {
		if err := s.AdvanceCursor(ctx, btc, ts); err != nil {
			t.Fatalf("AdvanceCursor: %v", err)
		}
	}

	c, err = s.GetCursor(ctx, btc)
	if err != nil {
		t.Fatalf("GetCursor: %v", err)
	}
	if c == nil || !c.Equal(ts) {
		t.Errorf("cursor = %v, want %v", c, ts)
	}

	if other, _ := s.GetCursor(ctx, eth); other != nil {
		t.Errorf("ETH cursor = %v, want nil", other)
	}
}

func TestEntries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := model.Entry{
		OrderID:        "ord-1",
		ClientOrderID:  "cid-1",
		Instrument:     btc,
		Classification: model.ClassLarge,
		Thresholds:     model.Thresholds{Profit: d("0.03"), Loss: d("0.0125")},
		Price:          d("100"),
		Quantity:       d("2"),
		CreatedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := s.RecordEntry(ctx, e); err != nil {
		t.Fatalf("RecordEntry: %v", err)
	}
	// Re-recording is ignored.
	if err := s.RecordEntry(ctx, e); err != nil {
		t.Fatalf("RecordEntry: %v", err)
	}

	got, ok, err := s.LookupEntry(ctx, "ord-1")
	if err != nil || !ok {
		t.Fatalf("LookupEntry: ok=%v err=%v", ok, err)
	}
	if got.BracketsPlaced() {
		t.Error("brackets should not be placed yet")
	}
	if !got.Thresholds.Loss.Equal(d("0.0125")) || got.Classification != model.ClassLarge {
		t.Errorf("got %+v", got)
	}

	first := time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)
	if claimed, err := s.ClaimBrackets(ctx, "ord-1", first); err != nil || !claimed {
		t.Fatalf("ClaimBrackets: claimed=%v err=%v, want first claim to win", claimed, err)
	}
	if claimed, err := s.ClaimBrackets(ctx, "ord-1", first.Add(time.Hour)); err != nil || claimed {
		t.Fatalf("ClaimBrackets: claimed=%v err=%v, want second claim refused", claimed, err)
	}

	got, _, _ = s.LookupEntry(ctx, "ord-1")
	if !got.BracketsPlaced() || !got.BracketsPlacedAt.Equal(first) {
		t.Errorf("BracketsPlacedAt = %v, want %v", got.BracketsPlacedAt, first)
	}

	// A released claim can be taken again.
	if err := s.ReleaseBrackets(ctx, "ord-1"); err != nil {
		t.Fatalf("ReleaseBrackets: %v", err)
	}
	if got, _, _ = s.LookupEntry(ctx, "ord-1"); got.BracketsPlaced() {
		t.Error("brackets still marked after release")
	}
	if claimed, err := s.ClaimBrackets(ctx, "ord-1", first); err != nil || !claimed {
		t.Errorf("ClaimBrackets after release: claimed=%v err=%v", claimed, err)
	}
	if claimed, _ := s.ClaimBrackets(ctx, "missing", first); claimed {
		t.Error("claimed an entry that does not exist")
	}

	if _, ok, err := s.LookupEntry(ctx, "missing"); ok || err != nil {
		t.Errorf("missing entry: ok=%v err=%v", ok, err)
	}
}

func TestConcurrentWriters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := model.Quote{Instrument: btc, Timestamp: time.Unix(int64(i+1), 0), Bid: d("1"), Ask: d("1")}
			if err := s.AppendPriceHistory(ctx, btc, q); err != nil {
				t.Errorf("AppendPriceHistory: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := s.ReadPriceHistory(ctx, btc, 100)
	if err != nil {
		t.Fatalf("ReadPriceHistory: %v", err)
	}
	if len(got) != 8 {
		t.Errorf("len = %d, want 8", len(got))
	}
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	s := openTestStore(t)
	s.Close()

	err := s.AdvanceCursor(context.Background(), btc, time.Now())
	if !errors.Is(err, model.ErrStorageUnavailable) {
		t.Errorf("err = %v, want ErrStorageUnavailable", err)
	}
}
