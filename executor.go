package papertrade

import (
	"fmt"
	"time"
)

// Executor applies single buy/sell trades against a Store, maintaining the
// weighted average cost basis and realized P&L. It is the only component
// that moves cash.
type Executor struct {
	store Store
	fee   Money // flat fee charged on every trade
	now   func() time.Time
}

// NewExecutor creates an Executor committing to the given store.
func NewExecutor(store Store, fee Money) *Executor {
	return &Executor{store: store, fee: fee, now: time.Now}
}

// Execute applies one trade and commits it atomically. On a buy it creates
// or grows the position, recomputing the volume-weighted average cost; on a
// sell it realizes P&L against the average cost, clamping the quantity to
// the held amount, and deletes the position when it reaches zero.
//
// It returns ErrInsufficientCash when a buy exceeds the cash balance and
// ErrNoPosition when selling a ticker that is not held; the caller decides
// whether to skip or abort. Store failures come back as *StoreError.
func (e *Executor) Execute(portfolioID, ticker string, side Side, qty Quantity, price Money, reason string) (Trade, error) {
	if !qty.IsPositive() {
		return Trade{}, fmt.Errorf("invalid quantity %s for %s %s", qty, side, ticker)
	}
	if !price.IsPositive() {
		return Trade{}, fmt.Errorf("invalid price %s for %s %s", price, side, ticker)
	}

	// hold the store's lock across the whole read-modify-write: reading the
	// position and cash, computing the delta, and committing. Interleaving
	// here is how avg_cost and cash_balance get corrupted.
	e.store.Lock()
	defer e.store.Unlock()

	switch side {
	case Buy:
		return e.buy(portfolioID, ticker, qty, price, reason)
	case Sell:
		return e.sell(portfolioID, ticker, qty, price, reason)
	default:
		return Trade{}, fmt.Errorf("unknown trade side: %q", side)
	}
}

func (e *Executor) buy(portfolioID, ticker string, qty Quantity, price Money, reason string) (Trade, error) {
	cash, err := e.store.CashBalance(portfolioID)
	if err != nil {
		return Trade{}, NewStoreError("cash-balance", err)
	}
	cost := price.Mul(qty).Add(e.fee)
	if cash.LessThan(cost) {
		return Trade{}, fmt.Errorf("buy %s %s at %s needs %s, have %s: %w",
			qty, ticker, price, cost, cash, ErrInsufficientCash)
	}

	pos, held, err := e.store.Position(portfolioID, ticker)
	if err != nil {
		return Trade{}, NewStoreError("position", err)
	}

	var delta PositionDelta
	if !held {
		delta = PositionDelta{
			Ticker:   ticker,
			Quantity: qty,
			AvgCost:  price,
			OpenedAt: e.now().UTC(),
		}
	} else {
		// new_avg = (old_qty*old_cost + qty*price) / (old_qty + qty)
		newQty := pos.Quantity.Add(qty)
		newCost := pos.AvgCost.Mul(pos.Quantity).Add(price.Mul(qty)).Div(newQty)
		delta = PositionDelta{
			Ticker:   ticker,
			Quantity: newQty,
			AvgCost:  newCost,
			OpenedAt: pos.OpenedAt,
		}
	}

	t := NewTrade(portfolioID, ticker, Buy, qty, price, reason)
	t.Fees = e.fee
	if err := e.store.CommitTrade(portfolioID, t, delta, cost.Neg()); err != nil {
		return Trade{}, NewStoreError("commit-trade", err)
	}
	return t, nil
}

func (e *Executor) sell(portfolioID, ticker string, qty Quantity, price Money, reason string) (Trade, error) {
	pos, held, err := e.store.Position(portfolioID, ticker)
	if err != nil {
		return Trade{}, NewStoreError("position", err)
	}
	if !held {
		return Trade{}, fmt.Errorf("sell %s: %w", ticker, ErrNoPosition)
	}

	// Never sell more than held: clamp, so holdings cannot go negative.
	qty = qty.Min(pos.Quantity)

	remaining := pos.Quantity.Sub(qty)
	delta := PositionDelta{
		Ticker:   ticker,
		Quantity: remaining, // zero deletes the row
		AvgCost:  pos.AvgCost,
		OpenedAt: pos.OpenedAt,
	}

	t := NewTrade(portfolioID, ticker, Sell, qty, price, reason)
	t.Fees = e.fee
	t.PnL = price.Sub(pos.AvgCost).Mul(qty)
	proceeds := price.Mul(qty).Sub(e.fee)
	if err := e.store.CommitTrade(portfolioID, t, delta, proceeds); err != nil {
		return Trade{}, NewStoreError("commit-trade", err)
	}
	return t, nil
}
