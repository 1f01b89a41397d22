package papertrade

import (
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_GetOrCreatePortfolioIsIdempotent(t *testing.T) {
	store := NewMemoryStore()

	first, err := store.GetOrCreatePortfolio("paper", USD(100_000))
	if err != nil {
		t.Fatal(err)
	}

	// spend some cash so a second get-or-create has something to reset.
	exec := NewExecutor(store, USD(0))
	mustExecute(t, exec, first.ID, "AAPL", Buy, 10, 100, "test")

	second, err := store.GetOrCreatePortfolio("paper", USD(999))
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("second call returned id %s, want %s", second.ID, first.ID)
	}
	if !second.CashBalance.Equal(USD(99_000)) {
		t.Errorf("cash = %s, want $99,000 untouched by re-create", second.CashBalance)
	}
	if !second.InitialCash.Equal(USD(100_000)) {
		t.Errorf("initial cash = %s, want original $100,000", second.InitialCash)
	}
}

func TestMemoryStore_UnknownPortfolio(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Portfolio("nope"); err != ErrPortfolioNotFound {
		t.Errorf("Portfolio err = %v, want ErrPortfolioNotFound", err)
	}
	if _, err := store.Positions("nope"); err != ErrPortfolioNotFound {
		t.Errorf("Positions err = %v, want ErrPortfolioNotFound", err)
	}
	if _, err := store.CashBalance("nope"); err != ErrPortfolioNotFound {
		t.Errorf("CashBalance err = %v, want ErrPortfolioNotFound", err)
	}
}

func TestMemoryStore_PositionsSortedByTicker(t *testing.T) {
	store, p := newTestLedger(t, 100_000)
	exec := NewExecutor(store, USD(0))
	for _, ticker := range []string{"ZZZ", "AAA", "MMM"} {
		mustExecute(t, exec, p.ID, ticker, Buy, 1, 100, "test")
	}

	positions, err := store.Positions(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"AAA", "MMM", "ZZZ"}
	for i, pos := range positions {
		if pos.Ticker != want[i] {
			t.Errorf("positions[%d] = %s, want %s", i, pos.Ticker, want[i])
		}
	}
}

func TestMemoryStore_TradesNewestFirstWithLimit(t *testing.T) {
	store, p := newTestLedger(t, 100_000)
	exec := NewExecutor(store, USD(0))
	mustExecute(t, exec, p.ID, "AAA", Buy, 1, 100, "first")
	mustExecute(t, exec, p.ID, "BBB", Buy, 1, 100, "second")
	mustExecute(t, exec, p.ID, "CCC", Buy, 1, 100, "third")

	trades, err := store.Trades(p.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 2 || trades[0].Reason != "third" || trades[1].Reason != "second" {
		t.Errorf("trades = %+v, want newest two in reverse order", trades)
	}

	all, _ := store.Trades(p.ID, 0)
	if len(all) != 3 {
		t.Errorf("limit 0 returned %d trades, want all 3", len(all))
	}
}

func TestMemoryStore_ZeroQuantityDeletesRow(t *testing.T) {
	store, p := newTestLedger(t, 100_000)
	tr := NewTrade(p.ID, "AAPL", Sell, Q(10), USD(100), "test")
	// seed a position then commit a delta that zeroes it.
	err := store.CommitTrade(p.ID, NewTrade(p.ID, "AAPL", Buy, Q(10), USD(100), "test"),
		PositionDelta{Ticker: "AAPL", Quantity: Q(10), AvgCost: USD(100), OpenedAt: time.Now()}, USD(1000).Neg())
	if err != nil {
		t.Fatal(err)
	}
	err = store.CommitTrade(p.ID, tr, PositionDelta{Ticker: "AAPL", Quantity: Q(0)}, USD(1000))
	if err != nil {
		t.Fatal(err)
	}

	positions, _ := store.Positions(p.ID)
	if len(positions) != 0 {
		t.Errorf("%d position rows persist after reaching zero quantity", len(positions))
	}
}

func TestMemoryStore_CommitRejectsNegativeOutcomes(t *testing.T) {
	store, p := newTestLedger(t, 100)

	overdraft := NewTrade(p.ID, "AAPL", Buy, Q(10), USD(100), "test")
	err := store.CommitTrade(p.ID, overdraft,
		PositionDelta{Ticker: "AAPL", Quantity: Q(10), AvgCost: USD(100), OpenedAt: time.Now()}, USD(1000).Neg())
	if err == nil {
		t.Fatal("commit driving cash negative must fail")
	}
	cash, _ := store.CashBalance(p.ID)
	if !cash.Equal(USD(100)) {
		t.Errorf("cash = %s after rejected commit, want $100", cash)
	}
	if trades, _ := store.Trades(p.ID, 0); len(trades) != 0 {
		t.Error("rejected commit persisted a trade")
	}

	err = store.CommitTrade(p.ID, overdraft,
		PositionDelta{Ticker: "AAPL", Quantity: Q(-1), AvgCost: USD(100)}, USD(0))
	if err == nil {
		t.Fatal("commit with negative quantity must fail")
	}
}

func TestMemoryStore_ConcurrentCommitsDoNotLoseUpdates(t *testing.T) {
	store, p := newTestLedger(t, 1_000_000)
	exec := NewExecutor(store, USD(0))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := exec.Execute(p.ID, "AAPL", Buy, Q(1), USD(100), "test"); err != nil {
				t.Errorf("concurrent buy: %v", err)
			}
		}()
	}
	wg.Wait()

	trades, _ := store.Trades(p.ID, 0)
	if len(trades) != 50 {
		t.Errorf("trade log has %d entries, want 50", len(trades))
	}
	pos, _, _ := store.Position(p.ID, "AAPL")
	if !pos.Quantity.Equal(Q(50)) {
		t.Errorf("position quantity = %s, want 50", pos.Quantity)
	}
	cash, _ := store.CashBalance(p.ID)
	if !cash.Equal(USD(995_000)) {
		t.Errorf("cash = %s, want $995,000", cash)
	}
}

func TestSnapshotStore_IsIndependent(t *testing.T) {
	store, p := newTestLedger(t, 100_000)
	exec := NewExecutor(store, USD(0))
	mustExecute(t, exec, p.ID, "AAPL", Buy, 10, 100, "test")

	clone, err := SnapshotStore(store, p.ID)
	if err != nil {
		t.Fatal(err)
	}

	// mutate the clone; the original must not move.
	cloneExec := NewExecutor(clone, USD(0))
	mustExecute(t, cloneExec, p.ID, "AAPL", Sell, 10, 120, "test")

	if _, held, _ := store.Position(p.ID, "AAPL"); !held {
		t.Error("mutating the snapshot changed the source store")
	}
	if trades, _ := store.Trades(p.ID, 0); len(trades) != 1 {
		t.Errorf("source store has %d trades, want 1", len(trades))
	}
	if trades, _ := clone.Trades(p.ID, 0); len(trades) != 2 {
		t.Errorf("clone has %d trades, want 2", len(trades))
	}
}
