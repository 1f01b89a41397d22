package papertrade

import "time"

// Portfolio is a simulated account. CashBalance is the single source of
// truth for spendable capital; it is mutated only through Store.CommitTrade.
type Portfolio struct {
	ID          string
	Name        string // unique
	InitialCash Money
	CashBalance Money
}

// Position is an open holding of one ticker. A position row exists only
// while Quantity is strictly positive: reaching zero deletes the row.
type Position struct {
	PortfolioID string
	Ticker      string
	Quantity    Quantity
	AvgCost     Money // volume-weighted average of buy prices, unchanged by sells
	OpenedAt    time.Time
}

// MarketValue returns the position value at the given price.
func (p Position) MarketValue(price Money) Money { return price.Mul(p.Quantity) }

// CostBasis returns the current cost of the holding (quantity at average cost).
func (p Position) CostBasis() Money { return p.AvgCost.Mul(p.Quantity) }

// PnLPct returns the unrealized gain at the given price as a percentage of
// the average cost, e.g. +16.67 for a price 1/6th above cost.
func (p Position) PnLPct(price Money) Percent {
	if p.AvgCost.IsZero() {
		return 0
	}
	return Percent((price.AsFloat()/p.AvgCost.AsFloat() - 1) * 100)
}

// UnrealizedPnL returns quantity*(price-avgCost).
func (p Position) UnrealizedPnL(price Money) Money {
	return price.Sub(p.AvgCost).Mul(p.Quantity)
}
