package papertrade

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Side is a typed string identifying the direction of a trade.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// ParseSide parses a string into a Side.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case Buy, Sell:
		return Side(s), nil
	default:
		return "", fmt.Errorf("unknown trade side: %q", s)
	}
}

// Well-known trade reasons. Reason is free text provenance; these are the
// values the engine itself writes.
const (
	ReasonStopLoss       = "stop_loss"
	ReasonPyramidTier2   = "pyramid_tier_2"
	ReasonPyramidTier3   = "pyramid_tier_3"
	ReasonRebalanceEntry = "rebalance_entry"
	ReasonRebalanceExit  = "rebalance_exit"
)

// Trade is one immutable entry of the append-only trade log.
type Trade struct {
	ID          string
	PortfolioID string
	Ticker      string
	Side        Side
	Quantity    Quantity
	Price       Money
	Fees        Money
	PnL         Money // realized gain, set only for sells
	Time        time.Time
	Reason      string
}

// NewTrade creates a trade with a fresh id, stamped now.
func NewTrade(portfolioID, ticker string, side Side, qty Quantity, price Money, reason string) Trade {
	return Trade{
		ID:          uuid.NewString(),
		PortfolioID: portfolioID,
		Ticker:      ticker,
		Side:        side,
		Quantity:    qty,
		Price:       price,
		Time:        time.Now().UTC(),
		Reason:      reason,
	}
}

// Gross returns quantity*price, the cash moved by the trade before fees.
func (t Trade) Gross() Money { return t.Price.Mul(t.Quantity) }

// Equal reports whether two trades are the same log entry.
func (t Trade) Equal(o Trade) bool { return t.ID == o.ID }

// MarshalJSON renders the trade as a single flat JSON object with a stable
// field order, suitable for JSONL output. The side discriminator comes first.
func (t Trade) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("side", t.Side)
	w.Append("time", t.Time.Format(time.RFC3339))
	w.Append("ticker", t.Ticker)
	w.Append("quantity", t.Quantity)
	w.Append("price", t.Price.value)
	w.Optional("fees", t.Fees.value)
	if t.Side == Sell {
		w.Append("pnl", t.PnL.value)
	}
	w.Optional("currency", t.Price.cur)
	w.Optional("reason", t.Reason)
	w.Append("id", t.ID)
	w.Optional("portfolio", t.PortfolioID)
	return w.MarshalJSON()
}

// tradeLine mirrors the wire shape of a Trade for decoding.
type tradeLine struct {
	Side      Side            `json:"side"`
	Time      string          `json:"time"`
	Ticker    string          `json:"ticker"`
	Quantity  Quantity        `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Fees      decimal.Decimal `json:"fees"`
	PnL       decimal.Decimal `json:"pnl"`
	Currency  string          `json:"currency"`
	Reason    string          `json:"reason"`
	ID        string          `json:"id"`
	Portfolio string          `json:"portfolio"`
}

// EncodeTrade writes one trade as a single JSON line.
func EncodeTrade(w io.Writer, t Trade) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

// DecodeTrades reads a stream of JSONL trade lines. Empty lines are skipped.
func DecodeTrades(r io.Reader) ([]Trade, error) {
	var trades []Trade
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue
		}
		var line tradeLine
		if err := json.Unmarshal(lineBytes, &line); err != nil {
			return nil, fmt.Errorf("could not decode trade line %q: %w", string(lineBytes), err)
		}
		if _, err := ParseSide(string(line.Side)); err != nil {
			return nil, err
		}
		when, err := time.Parse(time.RFC3339, line.Time)
		if err != nil {
			return nil, fmt.Errorf("invalid trade time %q: %w", line.Time, err)
		}
		trades = append(trades, Trade{
			ID:          line.ID,
			PortfolioID: line.Portfolio,
			Ticker:      line.Ticker,
			Side:        line.Side,
			Quantity:    line.Quantity,
			Price:       M(line.Price, line.Currency),
			Fees:        M(line.Fees, line.Currency),
			PnL:         M(line.PnL, line.Currency),
			Time:        when,
			Reason:      line.Reason,
		})
	}
	return trades, scanner.Err()
}
