package papertrade

import (
	"errors"
	"testing"
)

func TestExecutor_BuyAveragesCost(t *testing.T) {
	store, p := newTestLedger(t, 100_000)
	exec := NewExecutor(store, USD(0))

	testCases := []struct {
		name    string
		qty     float64
		price   float64
		wantQty string
		wantAvg float64
	}{
		{"first buy opens at price", 100, 150, "100", 150},
		{"second buy averages up", 50, 180, "150", 160}, // (100*150+50*180)/150
		{"third buy averages down", 150, 140, "300", 150},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mustExecute(t, exec, p.ID, "AAPL", Buy, tc.qty, tc.price, "test")

			pos, held, err := store.Position(p.ID, "AAPL")
			if err != nil || !held {
				t.Fatalf("position AAPL not found: %v", err)
			}
			if pos.Quantity.String() != tc.wantQty {
				t.Errorf("quantity = %s, want %s", pos.Quantity, tc.wantQty)
			}
			if !pos.AvgCost.Equal(USD(tc.wantAvg)) {
				t.Errorf("avg cost = %s, want %v", pos.AvgCost, tc.wantAvg)
			}
		})
	}
}

func TestExecutor_AvgCostIsVolumeWeighted(t *testing.T) {
	store, p := newTestLedger(t, 1_000_000)
	exec := NewExecutor(store, USD(0))

	buys := []struct{ qty, price float64 }{
		{10, 100}, {30, 110}, {5, 95.5}, {55, 120.25},
	}
	var totalCost, totalQty float64
	for _, b := range buys {
		mustExecute(t, exec, p.ID, "MSFT", Buy, b.qty, b.price, "test")
		totalCost += b.qty * b.price
		totalQty += b.qty
	}

	pos, _, err := store.Position(p.ID, "MSFT")
	if err != nil {
		t.Fatal(err)
	}
	want := totalCost / totalQty
	got := pos.AvgCost.AsFloat()
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("avg cost = %v, want volume-weighted %v", got, want)
	}
}

func TestExecutor_BuyInsufficientCash(t *testing.T) {
	store, p := newTestLedger(t, 1000)
	exec := NewExecutor(store, USD(0))

	_, err := exec.Execute(p.ID, "AAPL", Buy, Q(100), USD(150), "test")
	if !errors.Is(err, ErrInsufficientCash) {
		t.Fatalf("err = %v, want ErrInsufficientCash", err)
	}

	// the failed buy must leave no state behind.
	if _, held, _ := store.Position(p.ID, "AAPL"); held {
		t.Error("failed buy created a position")
	}
	cash, _ := store.CashBalance(p.ID)
	if !cash.Equal(USD(1000)) {
		t.Errorf("cash = %s, want unchanged $1,000", cash)
	}
	trades, _ := store.Trades(p.ID, 0)
	if len(trades) != 0 {
		t.Errorf("failed buy appended %d trades", len(trades))
	}
}

func TestExecutor_SellWithoutPosition(t *testing.T) {
	store, p := newTestLedger(t, 10_000)
	exec := NewExecutor(store, USD(0))

	_, err := exec.Execute(p.ID, "AAPL", Sell, Q(10), USD(150), "test")
	if !errors.Is(err, ErrNoPosition) {
		t.Fatalf("err = %v, want ErrNoPosition", err)
	}
}

func TestExecutor_SellClampsToHeld(t *testing.T) {
	store, p := newTestLedger(t, 100_000)
	exec := NewExecutor(store, USD(0))
	mustExecute(t, exec, p.ID, "AAPL", Buy, 100, 150, "test")

	// selling 250 of 100 held must clamp, not go negative.
	tr := mustExecute(t, exec, p.ID, "AAPL", Sell, 250, 160, "test")
	if tr.Quantity.String() != "100" {
		t.Errorf("sold quantity = %s, want clamped 100", tr.Quantity)
	}
	if _, held, _ := store.Position(p.ID, "AAPL"); held {
		t.Error("position should be deleted after selling all")
	}
}

func TestExecutor_RoundTripPnL(t *testing.T) {
	store, p := newTestLedger(t, 100_000)
	exec := NewExecutor(store, USD(0))

	mustExecute(t, exec, p.ID, "AAPL", Buy, 100, 150, "test")
	tr := mustExecute(t, exec, p.ID, "AAPL", Sell, 100, 165, "test")

	// pnl == X*(p2-p1)
	if !tr.PnL.Equal(USD(1500)) {
		t.Errorf("pnl = %s, want $1,500", tr.PnL)
	}
	if _, held, _ := store.Position(p.ID, "AAPL"); held {
		t.Error("round-trip should remove the position")
	}
	cash, _ := store.CashBalance(p.ID)
	if !cash.Equal(USD(101_500)) {
		t.Errorf("cash = %s, want $101,500", cash)
	}
}

func TestExecutor_PartialSellKeepsAvgCost(t *testing.T) {
	store, p := newTestLedger(t, 100_000)
	exec := NewExecutor(store, USD(0))

	mustExecute(t, exec, p.ID, "AAPL", Buy, 100, 150, "test")
	mustExecute(t, exec, p.ID, "AAPL", Sell, 40, 170, "test")

	pos, held, _ := store.Position(p.ID, "AAPL")
	if !held {
		t.Fatal("position should survive a partial sell")
	}
	if pos.Quantity.String() != "60" {
		t.Errorf("quantity = %s, want 60", pos.Quantity)
	}
	// sells never change the average cost.
	if !pos.AvgCost.Equal(USD(150)) {
		t.Errorf("avg cost = %s, want unchanged $150", pos.AvgCost)
	}
}

func TestExecutor_FeesMoveCash(t *testing.T) {
	store, p := newTestLedger(t, 10_000)
	exec := NewExecutor(store, USD(5))

	mustExecute(t, exec, p.ID, "AAPL", Buy, 10, 100, "test")
	cash, _ := store.CashBalance(p.ID)
	if !cash.Equal(USD(8995)) { // 10000 - 1000 - 5
		t.Fatalf("cash after buy = %s, want $8,995", cash)
	}

	mustExecute(t, exec, p.ID, "AAPL", Sell, 10, 100, "test")
	cash, _ = store.CashBalance(p.ID)
	if !cash.Equal(USD(9990)) { // 8995 + 1000 - 5
		t.Fatalf("cash after sell = %s, want $9,990", cash)
	}
}

func TestExecutor_RejectsNonPositiveInputs(t *testing.T) {
	store, p := newTestLedger(t, 10_000)
	exec := NewExecutor(store, USD(0))

	if _, err := exec.Execute(p.ID, "AAPL", Buy, Q(0), USD(100), "test"); err == nil {
		t.Error("zero quantity should be rejected")
	}
	if _, err := exec.Execute(p.ID, "AAPL", Buy, Q(10), USD(0), "test"); err == nil {
		t.Error("zero price should be rejected")
	}
	if _, err := exec.Execute(p.ID, "AAPL", Side("short"), Q(10), USD(100), "test"); err == nil {
		t.Error("unknown side should be rejected")
	}
}
