package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/crypto-scalper/internal/lifecycle"
	"github.com/rickgao/crypto-scalper/internal/model"
	"github.com/rickgao/crypto-scalper/internal/portfolio"
	"github.com/rickgao/crypto-scalper/internal/reconcile"
	"github.com/rickgao/crypto-scalper/internal/strategy"
)

var (
	btc = model.MustParseInstrument("BTC-USD")
	eth = model.MustParseInstrument("ETH-USD")
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type uptrend struct{}

func (uptrend) Name() string   { return "uptrend" }
func (uptrend) MinPoints() int { return 1 }
func (uptrend) Compute(inst model.Instrument, history []model.PricePoint) model.TradeSignal {
	if len(history) == 0 {
		return model.TradeSignal{Instrument: inst, Classification: model.ClassInsufficientData}
	}
	return model.TradeSignal{Instrument: inst, Classification: model.ClassUptrend}
}

type fakeVenue struct {
	mu          sync.Mutex
	quotes      []model.Quote
	quotesErr   error
	unquotable  string
	quoteCalls  int
	holdings    []model.Holding
	holdingsErr error
	cash        string
	accountErr  error
	placed      []model.OrderIntent
}

func (f *fakeVenue) FetchQuotes(ctx context.Context, instruments []model.Instrument) ([]model.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quoteCalls++
	if f.quotesErr != nil {
		return nil, f.quotesErr
	}
	want := make(map[string]bool, len(instruments))
	for _, inst := range instruments {
		if inst.Symbol() == f.unquotable {
			return nil, errors.New("venue api error 400: unknown symbol " + f.unquotable)
		}
		want[inst.Symbol()] = true
	}
	var out []model.Quote
	for _, q := range f.quotes {
		if want[q.Instrument.Symbol()] {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeVenue) FetchHoldings(ctx context.Context) ([]model.Holding, error) {
	return f.holdings, f.holdingsErr
}

func (f *fakeVenue) FetchAccountBalance(ctx context.Context) (model.Account, error) {
	if f.accountErr != nil {
		return model.Account{}, f.accountErr
	}
	return model.Account{BuyingPower: d(f.cash), Currency: "USD"}, nil
}

func (f *fakeVenue) PlaceOrder(ctx context.Context, intent model.OrderIntent) (model.OrderAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, intent)
	return model.OrderAck{ID: fmt.Sprintf("ord-%d", len(f.placed)), ClientOrderID: intent.ClientOrderID}, nil
}

func (f *fakeVenue) placedFor(inst model.Instrument) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, o := range f.placed {
		if o.Instrument == inst {
			n++
		}
	}
	return n
}

type fakeStore struct {
	mu        sync.Mutex
	history   map[string][]model.PricePoint
	appendErr map[string]error
	entries   map[string]model.Entry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		history:   make(map[string][]model.PricePoint),
		appendErr: make(map[string]error),
		entries:   make(map[string]model.Entry),
	}
}

func (f *fakeStore) AppendPriceHistory(ctx context.Context, inst model.Instrument, q model.Quote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.appendErr[inst.Symbol()]; err != nil {
		return err
	}
	f.history[inst.Symbol()] = append([]model.PricePoint{model.PointFromQuote(q)}, f.history[inst.Symbol()]...)
	return nil
}

func (f *fakeStore) ReadPriceHistory(ctx context.Context, inst model.Instrument, limit int) ([]model.PricePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.history[inst.Symbol()]
	if len(h) > limit {
		h = h[:limit]
	}
	return h, nil
}

func (f *fakeStore) RecordEntry(ctx context.Context, e model.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[e.OrderID] = e
	return nil
}

func (f *fakeStore) LookupEntry(ctx context.Context, id string) (model.Entry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	return e, ok, nil
}

func (f *fakeStore) ClaimBrackets(ctx context.Context, id string, at time.Time) (bool, error) {
	return true, nil
}

func (f *fakeStore) ReleaseBrackets(ctx context.Context, id string) error {
	return nil
}

type fakeReconciler struct {
	mu    sync.Mutex
	calls map[string]int
	panic string
}

func (f *fakeReconciler) Reconcile(ctx context.Context, inst model.Instrument) (reconcile.Result, error) {
	if inst.Symbol() == f.panic {
		panic("boom")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[inst.Symbol()]++
	return reconcile.Result{}, nil
}

func (f *fakeReconciler) count(inst model.Instrument) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[inst.Symbol()]
}

func quote(inst model.Instrument, ask string) model.Quote {
	return model.Quote{Instrument: inst, Timestamp: time.Now().UTC(), Price: d(ask), Bid: d(ask), Ask: d(ask)}
}

func newEngine(v *fakeVenue, s *fakeStore, r *fakeReconciler) *Engine {
	strat := strategy.New(uptrend{}, portfolio.NewSizer(d("0.02")), portfolio.NewGuard(nil), nil, nil)
	mgr := lifecycle.NewManager(lifecycle.Config{
		Flat:      model.Thresholds{Profit: d("0.02"), Loss: d("0.01")},
		Placement: lifecycle.PlaceOnFill,
	}, v, s, nil, nil)
	return New(Config{
		Instruments:  []model.Instrument{btc, eth},
		HistoryLimit: 10,
		CallTimeout:  time.Second,
		Concurrency:  2,
	}, v, s, strat, mgr, r, nil, nil)
}

func TestRunCycle_EntersEveryInstrument(t *testing.T) {
	v := &fakeVenue{quotes: []model.Quote{quote(btc, "100"), quote(eth, "10")}, cash: "10000"}
	s := newFakeStore()
	r := &fakeReconciler{}
	e := newEngine(v, s, r)

	sum, err := e.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if !sum.Traded || sum.Entered != 2 || sum.Errors != 0 {
		t.Errorf("summary = %+v, want traded with 2 entries and no errors", sum)
	}
	if !sum.PortfolioValue.Valid || !sum.PortfolioValue.Decimal.Equal(d("10000")) {
		t.Errorf("PortfolioValue = %v, want 10000", sum.PortfolioValue)
	}
	if got := v.placedFor(btc); got != 1 {
		t.Errorf("btc orders = %d, want 1", got)
	}
	for _, o := range v.placed {
		want := d("2") // 2% of 10000 at ask 100
		if o.Instrument == eth {
			want = d("20")
		}
		if !o.Quantity.Equal(want) {
			t.Errorf("%s quantity = %s, want %s", o.Instrument, o.Quantity, want)
		}
	}
	if len(s.history["BTC-USD"]) != 1 {
		t.Errorf("btc history = %d points, want 1", len(s.history["BTC-USD"]))
	}
	if r.count(btc) != 1 || r.count(eth) != 1 {
		t.Errorf("reconcile calls = %v, want one per instrument", r.calls)
	}

	last, ok := e.LastCycle()
	if !ok || last.Number != 1 {
		t.Errorf("LastCycle = %+v, %v", last, ok)
	}
}

func TestRunCycle_QuoteFailureStillReconciles(t *testing.T) {
	v := &fakeVenue{quotesErr: errors.New("down"), cash: "10000"}
	s := newFakeStore()
	r := &fakeReconciler{}
	e := newEngine(v, s, r)

	sum, err := e.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if sum.Traded || sum.Entered != 0 {
		t.Errorf("summary = %+v, want no trading", sum)
	}
	if len(v.placed) != 0 {
		t.Errorf("placed %d orders, want 0", len(v.placed))
	}
	if r.count(btc) != 1 || r.count(eth) != 1 {
		t.Errorf("reconcile calls = %v, want one per instrument", r.calls)
	}
}

func TestRunCycle_HoldingsFailureFailsOpen(t *testing.T) {
	v := &fakeVenue{
		quotes:      []model.Quote{quote(btc, "100")},
		holdingsErr: errors.New("timeout"),
		cash:        "10000",
	}
	e := newEngine(v, newFakeStore(), &fakeReconciler{})

	sum, _ := e.RunCycle(context.Background())
	if v.placedFor(btc) != 1 {
		t.Errorf("btc orders = %d, want 1 with holdings unknown", v.placedFor(btc))
	}
	if sum.Entered != 1 {
		t.Errorf("Entered = %d, want 1", sum.Entered)
	}
}

func TestRunCycle_HeldInstrumentSkipped(t *testing.T) {
	v := &fakeVenue{
		quotes:   []model.Quote{quote(btc, "100"), quote(eth, "10")},
		holdings: []model.Holding{{AssetCode: "BTC", Quantity: d("0.5")}},
		cash:     "10000",
	}
	e := newEngine(v, newFakeStore(), &fakeReconciler{})

	if _, err := e.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if v.placedFor(btc) != 0 {
		t.Error("entered an instrument already held")
	}
	if v.placedFor(eth) != 1 {
		t.Errorf("eth orders = %d, want 1", v.placedFor(eth))
	}
}

func TestRunCycle_InstrumentFailuresAreIsolated(t *testing.T) {
	v := &fakeVenue{quotes: []model.Quote{quote(btc, "100"), quote(eth, "10")}, cash: "10000"}
	s := newFakeStore()
	s.appendErr["ETH-USD"] = model.ErrStorageUnavailable
	r := &fakeReconciler{}
	e := newEngine(v, s, r)

	sum, err := e.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if sum.Errors != 1 || sum.Entered != 1 {
		t.Errorf("summary = %+v, want 1 error and 1 entry", sum)
	}
	if v.placedFor(btc) != 1 {
		t.Error("btc should still enter when eth storage fails")
	}
	if r.count(eth) != 1 {
		t.Error("eth should still reconcile after a history failure")
	}
}

func TestRunCycle_RecoversPanics(t *testing.T) {
	v := &fakeVenue{quotes: []model.Quote{quote(btc, "100"), quote(eth, "10")}, cash: "10000"}
	r := &fakeReconciler{panic: "ETH-USD"}
	e := newEngine(v, newFakeStore(), r)

	sum, err := e.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if sum.Errors != 1 {
		t.Errorf("Errors = %d, want 1", sum.Errors)
	}
	if r.count(btc) != 1 {
		t.Error("btc reconcile should not be affected by eth panic")
	}
}

func TestRunCycle_InvalidQuoteNotRecorded(t *testing.T) {
	v := &fakeVenue{quotes: []model.Quote{quote(btc, "0")}, cash: "10000"}
	s := newFakeStore()
	e := newEngine(v, s, &fakeReconciler{})

	if _, err := e.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(s.history["BTC-USD"]) != 0 {
		t.Error("invalid quote appended to history")
	}
	if len(v.placed) != 0 {
		t.Error("order placed on invalid quote")
	}
}

func TestRunCycle_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := newEngine(&fakeVenue{cash: "1"}, newFakeStore(), &fakeReconciler{})
	if _, err := e.RunCycle(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if _, ok := e.LastCycle(); ok {
		t.Error("LastCycle set for a cancelled cycle")
	}
}

func TestRunCycle_ValuesHoldingsOutsideConfiguredInstruments(t *testing.T) {
	sol := model.MustParseInstrument("SOL-USD")
	v := &fakeVenue{
		quotes:   []model.Quote{quote(btc, "100"), quote(eth, "10"), quote(sol, "50")},
		holdings: []model.Holding{{AssetCode: "SOL", Quantity: d("10")}},
		cash:     "10000",
	}
	e := newEngine(v, newFakeStore(), &fakeReconciler{})

	sum, err := e.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	// 10000 cash + 10 SOL at 50
	if !sum.PortfolioValue.Valid || !sum.PortfolioValue.Decimal.Equal(d("10500")) {
		t.Errorf("PortfolioValue = %v, want 10500", sum.PortfolioValue)
	}
	for _, o := range v.placed {
		if o.Instrument == btc && !o.Quantity.Equal(d("2.1")) {
			t.Errorf("btc quantity = %s, want 2.1", o.Quantity)
		}
		if o.Instrument == sol {
			t.Error("entered an instrument that is only held")
		}
	}
}

func TestRunCycle_UnquotableHoldingStillTrades(t *testing.T) {
	v := &fakeVenue{
		quotes:     []model.Quote{quote(btc, "100"), quote(eth, "10")},
		holdings:   []model.Holding{{AssetCode: "DELISTED", Quantity: d("5")}},
		unquotable: "DELISTED-USD",
		cash:       "10000",
	}
	e := newEngine(v, newFakeStore(), &fakeReconciler{})

	sum, err := e.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if !sum.Traded || sum.Entered != 2 {
		t.Errorf("summary = %+v, want traded with 2 entries", sum)
	}
	if v.quoteCalls != 2 {
		t.Errorf("quote calls = %d, want 2 (union then configured only)", v.quoteCalls)
	}
}

func TestQuotedInstruments(t *testing.T) {
	holdings := []model.Holding{
		{AssetCode: "BTC", Quantity: d("1")},
		{AssetCode: "SOL", Quantity: d("2")},
		{AssetCode: "ADA", Quantity: d("0")},
		{AssetCode: "USD", Quantity: d("100")},
	}
	got := QuotedInstruments([]model.Instrument{btc, eth}, holdings)

	want := []string{"BTC-USD", "ETH-USD", "SOL-USD"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i, inst := range got {
		if inst.Symbol() != want[i] {
			t.Errorf("got[%d] = %s, want %s", i, inst.Symbol(), want[i])
		}
	}
}
