package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/papertrade"
	"github.com/etnz/papertrade/renderer"
)

type statusCmd struct{}

func (*statusCmd) Name() string     { return "status" }
func (*statusCmd) Synopsis() string { return "display the current portfolio snapshot" }
func (*statusCmd) Usage() string {
	return `ptc status

  Displays the portfolio value, cash, realized and unrealized P&L, win
  rate, drawdown and every open position. Positions without a live price
  are valued at cost and flagged stale.

`
}

func (*statusCmd) SetFlags(*flag.FlagSet) {}

func (c *statusCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := engineConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		return subcommands.ExitUsageError
	}
	store, p, err := openLedger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not open ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	reporter := papertrade.NewReporter(store, priceFeed())
	report, err := reporter.Status(ctx, p.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not build status: %v\n", err)
		return subcommands.ExitFailure
	}
	// Consistency check against the trade log; drift is logged, the stored
	// balance stays authoritative.
	if _, _, err := reporter.CheckCash(p.ID); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cash check failed: %v\n", err)
	}

	printMarkdown(renderer.StatusMarkdown(report))
	return subcommands.ExitSuccess
}
