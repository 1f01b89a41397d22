package papertrade

import (
	"context"
	"log"
	"time"
)

// PositionStatus is one open position priced for display.
type PositionStatus struct {
	Position
	Price         Money
	MarketValue   Money
	UnrealizedPnL Money
	PnLPct        Percent
	Stale         bool // no live price; valued at cost
}

// StatusReport is a read-only snapshot of a portfolio. It is purely a
// projection over ledger state and introduces no new invariants.
type StatusReport struct {
	PortfolioID   string
	Name          string
	Time          time.Time
	Cash          Money
	InitialCash   Money
	Value         Money
	UnrealizedPnL Money
	RealizedPnL   Money
	WinningSells  int
	TotalSells    int
	Drawdown      Percent // negative when under water, zero otherwise
	Positions     []PositionStatus
}

// WinRate is winning sells over total sells, in [0, 1].
func (s *StatusReport) WinRate() float64 {
	if s.TotalSells == 0 {
		return 0
	}
	return float64(s.WinningSells) / float64(s.TotalSells)
}

// Reporter computes read-only projections over a Store. It takes no lock:
// it may observe a consistent but not necessarily latest snapshot.
type Reporter struct {
	store Store
	feed  PriceFeed
}

// NewReporter creates a Reporter reading from store and pricing through feed.
func NewReporter(store Store, feed PriceFeed) *Reporter {
	return &Reporter{store: store, feed: feed}
}

// Status builds the current snapshot of the portfolio. Positions without a
// live price are valued at cost and flagged Stale rather than failing the
// whole report.
func (r *Reporter) Status(ctx context.Context, portfolioID string) (*StatusReport, error) {
	p, err := r.store.Portfolio(portfolioID)
	if err != nil {
		return nil, NewStoreError("portfolio", err)
	}
	positions, err := r.store.Positions(portfolioID)
	if err != nil {
		return nil, NewStoreError("positions", err)
	}
	trades, err := r.store.Trades(portfolioID, 0)
	if err != nil {
		return nil, NewStoreError("trades", err)
	}

	report := &StatusReport{
		PortfolioID: p.ID,
		Name:        p.Name,
		Time:        time.Now().UTC(),
		Cash:        p.CashBalance,
		InitialCash: p.InitialCash,
		Value:       p.CashBalance,
	}

	for _, pos := range positions {
		ps := PositionStatus{Position: pos}
		price, err := r.feed.Price(ctx, pos.Ticker)
		if err != nil {
			log.Printf("no price for %s, valuing at cost", pos.Ticker)
			ps.Price = pos.AvgCost
			ps.Stale = true
		} else {
			ps.Price = price
		}
		ps.MarketValue = pos.MarketValue(ps.Price)
		ps.UnrealizedPnL = pos.UnrealizedPnL(ps.Price)
		ps.PnLPct = pos.PnLPct(ps.Price)
		report.Value = report.Value.Add(ps.MarketValue)
		report.UnrealizedPnL = report.UnrealizedPnL.Add(ps.UnrealizedPnL)
		report.Positions = append(report.Positions, ps)
	}

	for _, t := range trades {
		if t.Side != Sell {
			continue
		}
		report.TotalSells++
		if t.PnL.IsPositive() {
			report.WinningSells++
		}
		report.RealizedPnL = report.RealizedPnL.Add(t.PnL)
	}

	if !p.InitialCash.IsZero() {
		perf := Percent((report.Value.AsFloat()/p.InitialCash.AsFloat() - 1) * 100)
		if perf < 0 {
			report.Drawdown = perf
		}
	}
	return report, nil
}

// History returns the most recent trades, newest first. limit <= 0 returns
// the whole log.
func (r *Reporter) History(portfolioID string, limit int) ([]Trade, error) {
	trades, err := r.store.Trades(portfolioID, limit)
	if err != nil {
		return nil, NewStoreError("trades", err)
	}
	return trades, nil
}

// CheckCash recomputes the cash balance from the trade log and compares it
// with the stored balance. The stored balance is authoritative; the derived
// figure is a consistency check only, never a second source of truth.
func (r *Reporter) CheckCash(portfolioID string) (stored, derived Money, err error) {
	p, err := r.store.Portfolio(portfolioID)
	if err != nil {
		return Money{}, Money{}, NewStoreError("portfolio", err)
	}
	trades, err := r.store.Trades(portfolioID, 0)
	if err != nil {
		return Money{}, Money{}, NewStoreError("trades", err)
	}
	derived = p.InitialCash
	for _, t := range trades {
		switch t.Side {
		case Buy:
			derived = derived.Sub(t.Gross()).Sub(t.Fees)
		case Sell:
			derived = derived.Add(t.Gross()).Sub(t.Fees)
		}
	}
	if !derived.Equal(p.CashBalance) {
		log.Printf("cash drift on %s: stored %s, derived %s", p.Name, p.CashBalance, derived)
	}
	return p.CashBalance, derived, nil
}
