package papertrade

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"
)

// SkippedAction records an action the cycle computed but could not execute.
type SkippedAction struct {
	Ticker string
	Op     string // e.g. "entry", "exit", "pyramid_tier_2", "stop_loss"
	Reason string
}

// CycleSummary describes one rebalance cycle: what was traded, what was
// skipped and why, and the resulting state of the portfolio.
type CycleSummary struct {
	PortfolioID string
	Time        time.Time
	DryRun      bool
	Target      []string // top-K qualifying tickers, in rank order
	Trades      []Trade
	Skipped     []SkippedAction
	Positions   []Position
	Cash        Money
	Value       Money
	Currency    string
}

// Rebalancer orchestrates one full cycle: rule evaluation, forced exits,
// target exits and entries, then queued pyramid adds, all under the cash
// budget and in deterministic ticker order.
type Rebalancer struct {
	cfg    Config
	store  Store
	feed   PriceFeed
	ranker Ranker
	rules  *RuleEngine
	exec   *Executor
}

// NewRebalancer wires a rebalancer. cfg must have been validated.
func NewRebalancer(cfg Config, store Store, feed PriceFeed, ranker Ranker) *Rebalancer {
	return &Rebalancer{
		cfg:    cfg,
		store:  store,
		feed:   feed,
		ranker: ranker,
		rules:  NewRuleEngine(cfg),
		exec:   NewExecutor(store, cfg.Fee()),
	}
}

// RunCycle executes one rebalance cycle against the portfolio.
//
// Each committed trade is individually atomic. On a store failure the cycle
// aborts and the error is returned together with the partial summary:
// earlier commits remain valid and durable, and nothing is rolled back.
// Recoverable conditions (missing price, insufficient cash, no position)
// skip the offending action and land in the summary's Skipped list.
func (r *Rebalancer) RunCycle(ctx context.Context, portfolioID string) (*CycleSummary, error) {
	summary := &CycleSummary{
		PortfolioID: portfolioID,
		Time:        time.Now().UTC(),
		Currency:    r.cfg.Currency,
	}

	// 1. Ranked candidates, filtered and truncated.
	candidates, err := r.ranker.Rank(ctx)
	if err != nil {
		return summary, fmt.Errorf("ranking candidates: %w", err)
	}
	target := TopCandidates(candidates, r.cfg.MinScore, r.cfg.TopK)
	targetSet := make(map[string]bool, len(target))
	for _, c := range target {
		summary.Target = append(summary.Target, c.Ticker)
		targetSet[c.Ticker] = true
	}

	// 2. Snapshot positions and trade history.
	positions, err := r.store.Positions(portfolioID)
	if err != nil {
		return summary, NewStoreError("positions", err)
	}
	history, err := r.store.Trades(portfolioID, 0)
	if err != nil {
		return summary, NewStoreError("trades", err)
	}

	// Price everything the cycle may touch, once. Missing prices skip only
	// that ticker's actions.
	prices := make(map[string]Money)
	tickers := make([]string, 0, len(positions)+len(target))
	for _, pos := range positions {
		tickers = append(tickers, pos.Ticker)
	}
	for _, c := range target {
		tickers = append(tickers, c.Ticker)
	}
	slices.Sort(tickers)
	tickers = slices.Compact(tickers)
	for _, ticker := range tickers {
		price, err := r.feed.Price(ctx, ticker)
		if err != nil {
			if errors.Is(err, ErrMarketDataUnavailable) {
				log.Printf("no price for %s, skipping its actions this cycle", ticker)
				continue
			}
			log.Printf("price fetch for %s failed (%v), skipping its actions this cycle", ticker, err)
			continue
		}
		prices[ticker] = price
	}

	// 3. Rule engine pass: stop-losses fire immediately (freeing cash before
	// entries are sized), pyramid adds are queued for after entries.
	var pyramids []Action
	sold := make(map[string]bool)
	for _, pos := range positions { // sorted by ticker per Store contract
		price, ok := prices[pos.Ticker]
		if !ok {
			summary.skip(pos.Ticker, "rules", "market data unavailable")
			continue
		}
		action, ok := r.rules.Evaluate(pos, price, history)
		if !ok {
			continue
		}
		if action.Kind != StopLoss {
			pyramids = append(pyramids, action)
			continue
		}
		t, err := r.exec.Execute(portfolioID, action.Ticker, Sell, action.Quantity, action.Price, action.Reason)
		if err != nil {
			if fatal := r.recover(summary, action.Ticker, "stop_loss", err); fatal != nil {
				return summary, fatal
			}
			continue
		}
		summary.Trades = append(summary.Trades, t)
		sold[pos.Ticker] = true
	}

	// 4. Exits: held tickers that fell out of the target set.
	for _, pos := range positions {
		if sold[pos.Ticker] || targetSet[pos.Ticker] {
			continue
		}
		price, ok := prices[pos.Ticker]
		if !ok {
			summary.skip(pos.Ticker, "exit", "market data unavailable")
			continue
		}
		t, err := r.exec.Execute(portfolioID, pos.Ticker, Sell, pos.Quantity, price, ReasonRebalanceExit)
		if err != nil {
			if fatal := r.recover(summary, pos.Ticker, "exit", err); fatal != nil {
				return summary, fatal
			}
			continue
		}
		summary.Trades = append(summary.Trades, t)
		sold[pos.Ticker] = true
	}

	// 5. Entries: target tickers not currently held, sized as a fraction of
	// total portfolio value, in lexicographic ticker order.
	held := make(map[string]bool)
	for _, pos := range positions {
		if !sold[pos.Ticker] {
			held[pos.Ticker] = true
		}
	}
	value, err := r.portfolioValue(portfolioID, prices)
	if err != nil {
		return summary, err
	}
	entrySize := value.Mul(Q(r.cfg.PositionSizeFraction))

	var entries []string
	for ticker := range targetSet {
		if !held[ticker] {
			entries = append(entries, ticker)
		}
	}
	slices.Sort(entries)
	for _, ticker := range entries {
		price, ok := prices[ticker]
		if !ok {
			summary.skip(ticker, "entry", "market data unavailable")
			continue
		}
		qty := entrySize.DivPrice(price)
		if !qty.IsPositive() {
			summary.skip(ticker, "entry", "entry size rounds to zero")
			continue
		}
		t, err := r.exec.Execute(portfolioID, ticker, Buy, qty, price, ReasonRebalanceEntry)
		if err != nil {
			// no partial fills: an entry cash cannot cover is dropped whole.
			if fatal := r.recover(summary, ticker, "entry", err); fatal != nil {
				return summary, fatal
			}
			continue
		}
		summary.Trades = append(summary.Trades, t)
	}

	// 6. Queued pyramid adds, same ordering and skip rule as entries.
	slices.SortFunc(pyramids, func(a, b Action) int {
		switch {
		case a.Ticker < b.Ticker:
			return -1
		case a.Ticker > b.Ticker:
			return 1
		default:
			return 0
		}
	})
	for _, action := range pyramids {
		if sold[action.Ticker] {
			continue // exited earlier in this cycle
		}
		t, err := r.exec.Execute(portfolioID, action.Ticker, Buy, action.Quantity, action.Price, action.Reason)
		if err != nil {
			if fatal := r.recover(summary, action.Ticker, action.Kind.String(), err); fatal != nil {
				return summary, fatal
			}
			continue
		}
		summary.Trades = append(summary.Trades, t)
	}

	// 7. Closing state.
	if err := r.close(summary, prices); err != nil {
		return summary, err
	}
	return summary, nil
}

// DryRun computes a full cycle against an in-memory snapshot of the
// portfolio. The summary reports what the cycle would have traded; nothing
// is committed to the underlying store.
func (r *Rebalancer) DryRun(ctx context.Context, portfolioID string) (*CycleSummary, error) {
	clone, err := SnapshotStore(r.store, portfolioID)
	if err != nil {
		return nil, NewStoreError("snapshot", err)
	}
	dry := NewRebalancer(r.cfg, clone, r.feed, r.ranker)
	summary, err := dry.RunCycle(ctx, portfolioID)
	if summary != nil {
		summary.DryRun = true
	}
	return summary, err
}

// recover classifies an execution error: recoverable conditions are recorded
// as skips and return nil, anything else (store failures) is fatal for the
// remainder of the cycle.
func (r *Rebalancer) recover(summary *CycleSummary, ticker, op string, err error) error {
	switch {
	case errors.Is(err, ErrInsufficientCash):
		log.Printf("skipping %s %s: %v", op, ticker, err)
		summary.skip(ticker, op, "insufficient cash")
		return nil
	case errors.Is(err, ErrNoPosition):
		log.Printf("skipping %s %s: %v", op, ticker, err)
		summary.skip(ticker, op, "no open position")
		return nil
	default:
		return err
	}
}

// portfolioValue is cash plus the market value of all open positions.
// Positions without a live price are valued at cost.
func (r *Rebalancer) portfolioValue(portfolioID string, prices map[string]Money) (Money, error) {
	cash, err := r.store.CashBalance(portfolioID)
	if err != nil {
		return Money{}, NewStoreError("cash-balance", err)
	}
	positions, err := r.store.Positions(portfolioID)
	if err != nil {
		return Money{}, NewStoreError("positions", err)
	}
	value := cash
	for _, pos := range positions {
		if price, ok := prices[pos.Ticker]; ok {
			value = value.Add(pos.MarketValue(price))
		} else {
			value = value.Add(pos.CostBasis())
		}
	}
	return value, nil
}

func (r *Rebalancer) close(summary *CycleSummary, prices map[string]Money) error {
	positions, err := r.store.Positions(summary.PortfolioID)
	if err != nil {
		return NewStoreError("positions", err)
	}
	cash, err := r.store.CashBalance(summary.PortfolioID)
	if err != nil {
		return NewStoreError("cash-balance", err)
	}
	value, err := r.portfolioValue(summary.PortfolioID, prices)
	if err != nil {
		return err
	}
	summary.Positions = positions
	summary.Cash = cash
	summary.Value = value
	return nil
}

func (s *CycleSummary) skip(ticker, op, reason string) {
	s.Skipped = append(s.Skipped, SkippedAction{Ticker: ticker, Op: op, Reason: reason})
}
