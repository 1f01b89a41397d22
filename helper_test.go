package papertrade

import (
	"context"
	"testing"
)

// USD is a helper for tests to create dollar money from a const.
func USD(v float64) Money { return M(v, "USD") }

// staticFeed is a PriceFeed serving fixed prices; absent tickers report
// market data unavailable.
type staticFeed map[string]float64

func (f staticFeed) Price(_ context.Context, ticker string) (Money, error) {
	v, ok := f[ticker]
	if !ok {
		return Money{}, ErrMarketDataUnavailable
	}
	return USD(v), nil
}

// staticRanker is a Ranker serving a fixed ordered candidate list.
type staticRanker []Candidate

func (r staticRanker) Rank(context.Context) ([]Candidate, error) { return r, nil }

// newTestLedger creates a memory store with one funded portfolio.
func newTestLedger(t *testing.T, cash float64) (*MemoryStore, Portfolio) {
	t.Helper()
	store := NewMemoryStore()
	p, err := store.GetOrCreatePortfolio("test", USD(cash))
	if err != nil {
		t.Fatalf("GetOrCreatePortfolio: %v", err)
	}
	return store, p
}

// quantityFloat converts a Quantity to float64 for tolerance checks.
func quantityFloat(q Quantity) float64 { return q.value.InexactFloat64() }

// mustExecute runs a trade and fails the test on error.
func mustExecute(t *testing.T, e *Executor, portfolioID, ticker string, side Side, qty, price float64, reason string) Trade {
	t.Helper()
	tr, err := e.Execute(portfolioID, ticker, side, Q(qty), USD(price), reason)
	if err != nil {
		t.Fatalf("execute %s %v %s @ %v: %v", side, qty, ticker, price, err)
	}
	return tr
}
