package papertrade

// ActionKind identifies what a rule decided for a position.
type ActionKind int

const (
	// StopLoss forces a full exit of the position.
	StopLoss ActionKind = iota
	// PyramidTier3 adds to a position whose gain crossed the tier-2 threshold.
	PyramidTier3
	// PyramidTier2 adds to a position whose gain crossed the tier-1 threshold.
	PyramidTier2
)

func (k ActionKind) String() string {
	switch k {
	case StopLoss:
		return "stop_loss"
	case PyramidTier3:
		return "pyramid_tier_3"
	case PyramidTier2:
		return "pyramid_tier_2"
	default:
		return "unknown"
	}
}

// Action is a trade required by a rule match.
type Action struct {
	Kind     ActionKind
	Ticker   string
	Side     Side
	Quantity Quantity
	Price    Money
	Reason   string
}

// RuleEngine evaluates open positions against the stop-loss and pyramid
// thresholds of a Config.
type RuleEngine struct {
	cfg Config
}

// NewRuleEngine creates a rule engine for the given (validated) config.
func NewRuleEngine(cfg Config) *RuleEngine { return &RuleEngine{cfg: cfg} }

// Evaluate checks one position against the rules, in strict precedence
// order: stop-loss, then the tier-3 pyramid, then the tier-2 pyramid. A
// position matches at most one rule per cycle, and a position breaching
// both stop-loss and a pyramid threshold always resolves to stop-loss.
//
// history is the portfolio trade log; it sizes pyramid adds from the
// original entry cost and suppresses a tier that already fired for the
// current holding interval.
func (e *RuleEngine) Evaluate(pos Position, price Money, history []Trade) (Action, bool) {
	pnlPct := pos.PnLPct(price)

	if pnlPct <= e.cfg.StopLossPct {
		return Action{
			Kind:     StopLoss,
			Ticker:   pos.Ticker,
			Side:     Sell,
			Quantity: pos.Quantity,
			Price:    price,
			Reason:   ReasonStopLoss,
		}, true
	}

	if pnlPct >= e.cfg.PyramidTier2Pct {
		return e.pyramid(pos, price, PyramidTier3, ReasonPyramidTier3, history)
	}
	if pnlPct >= e.cfg.PyramidTier1Pct {
		return e.pyramid(pos, price, PyramidTier2, ReasonPyramidTier2, history)
	}
	return Action{}, false
}

func (e *RuleEngine) pyramid(pos Position, price Money, kind ActionKind, reason string, history []Trade) (Action, bool) {
	if tierFired(pos, reason, history) {
		return Action{}, false
	}
	basis := originalCostBasis(pos, history)
	if !basis.IsPositive() {
		return Action{}, false
	}
	// quantity = fraction * original_cost_basis / current_price
	qty := basis.Mul(Q(e.cfg.PyramidFraction)).DivPrice(price)
	if !qty.IsPositive() {
		return Action{}, false
	}
	return Action{
		Kind:     kind,
		Ticker:   pos.Ticker,
		Side:     Buy,
		Quantity: qty,
		Price:    price,
		Reason:   reason,
	}, true
}

// originalCostBasis returns the cost of the first buy of the current holding
// interval, i.e. the earliest buy of the ticker at or after the position was
// opened. Later adds do not change it.
func originalCostBasis(pos Position, history []Trade) Money {
	var first Trade
	found := false
	for _, t := range history {
		if t.Ticker != pos.Ticker || t.Side != Buy || t.Time.Before(pos.OpenedAt) {
			continue
		}
		if !found || t.Time.Before(first.Time) {
			first, found = t, true
		}
	}
	if !found {
		// no recorded entry trade: fall back to the current basis.
		return pos.CostBasis()
	}
	return first.Gross()
}

// tierFired reports whether a pyramid trade with this reason already exists
// for the current holding interval.
func tierFired(pos Position, reason string, history []Trade) bool {
	for _, t := range history {
		if t.Ticker == pos.Ticker && t.Reason == reason && !t.Time.Before(pos.OpenedAt) {
			return true
		}
	}
	return false
}
