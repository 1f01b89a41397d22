// Package renderer turns engine reports into markdown for the terminal.
package renderer

import (
	"bytes"
	"fmt"
	"time"

	md "github.com/nao1215/markdown"

	"github.com/etnz/papertrade"
)

// StatusMarkdown renders a portfolio status snapshot.
func StatusMarkdown(r *papertrade.StatusReport) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Portfolio %s on %s", r.Name, r.Time.Format("2006-01-02")))
	doc.PlainText(fmt.Sprintf("Total Value: %s (cash %s)", r.Value, r.Cash))

	doc.H2("Performance")
	table := md.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Unrealized P&L", r.UnrealizedPnL.SignedString()},
			{"Realized P&L", r.RealizedPnL.SignedString()},
			{"Win Rate", fmt.Sprintf("%.0f%% (%d/%d)", r.WinRate()*100, r.WinningSells, r.TotalSells)},
			{"Drawdown", r.Drawdown.String()},
		},
	}
	doc.Table(table)

	if len(r.Positions) > 0 {
		doc.H2("Positions")
		positions := md.TableSet{
			Alignment: []md.TableAlignment{
				md.AlignLeft,
				md.AlignRight,
				md.AlignRight,
				md.AlignRight,
				md.AlignRight,
				md.AlignRight,
			},
			Header: []string{"Ticker", "Quantity", "Avg Cost", "Price", "Value", "P&L %"},
			Rows:   [][]string{},
		}
		for _, pos := range r.Positions {
			price := pos.Price.String()
			if pos.Stale {
				price += " (stale)"
			}
			positions.Rows = append(positions.Rows, []string{
				pos.Ticker,
				pos.Quantity.String(),
				pos.AvgCost.String(),
				price,
				pos.MarketValue.String(),
				pos.PnLPct.SignedString(),
			})
		}
		doc.Table(positions)
	}

	return doc.String()
}

// HistoryMarkdown renders the trade log, newest first.
func HistoryMarkdown(name string, trades []papertrade.Trade) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Trade History for %s", name))
	if len(trades) == 0 {
		doc.PlainText("No trades yet.")
		return doc.String()
	}

	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignLeft,
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignLeft,
		},
		Header: []string{"Time", "Side", "Ticker", "Quantity", "Price", "P&L", "Reason"},
		Rows:   [][]string{},
	}
	for _, t := range trades {
		pnl := "-"
		if t.Side == papertrade.Sell {
			pnl = t.PnL.SignedString()
		}
		table.Rows = append(table.Rows, []string{
			t.Time.Format(time.RFC3339),
			string(t.Side),
			t.Ticker,
			t.Quantity.String(),
			t.Price.String(),
			pnl,
			t.Reason,
		})
	}
	doc.Table(table)

	return doc.String()
}

// CycleMarkdown renders the outcome of one rebalance cycle.
func CycleMarkdown(s *papertrade.CycleSummary) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	title := fmt.Sprintf("Rebalance Cycle on %s", s.Time.Format("2006-01-02 15:04"))
	if s.DryRun {
		title += " (dry run)"
	}
	doc.H1(title)

	if len(s.Target) == 0 {
		doc.PlainText("Target: empty (all holdings exit)")
	} else {
		doc.PlainText(fmt.Sprintf("Target: %v", s.Target))
	}

	doc.H2("Trades")
	if len(s.Trades) == 0 {
		doc.PlainText("Nothing traded this cycle.")
	} else {
		table := md.TableSet{
			Alignment: []md.TableAlignment{
				md.AlignLeft,
				md.AlignLeft,
				md.AlignRight,
				md.AlignRight,
				md.AlignLeft,
			},
			Header: []string{"Side", "Ticker", "Quantity", "Price", "Reason"},
			Rows:   [][]string{},
		}
		for _, t := range s.Trades {
			table.Rows = append(table.Rows, []string{
				string(t.Side),
				t.Ticker,
				t.Quantity.String(),
				t.Price.String(),
				t.Reason,
			})
		}
		doc.Table(table)
	}

	if len(s.Skipped) > 0 {
		doc.H2("Skipped")
		table := md.TableSet{
			Header: []string{"Ticker", "Action", "Reason"},
			Rows:   [][]string{},
		}
		for _, skip := range s.Skipped {
			table.Rows = append(table.Rows, []string{skip.Ticker, skip.Op, skip.Reason})
		}
		doc.Table(table)
	}

	doc.H2("Closing State")
	doc.PlainText(fmt.Sprintf("Cash: %s, Total Value: %s, Open Positions: %d",
		s.Cash, s.Value, len(s.Positions)))

	return doc.String()
}
