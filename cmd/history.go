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

type historyCmd struct {
	limit int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "display the trade log, newest first" }
func (*historyCmd) Usage() string {
	return `ptc history [-limit <n>]

  Displays the portfolio trade log, newest first. -limit caps the number
  of trades shown; 0 shows the whole log.

`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "limit", 0, "maximum number of trades to show, 0 for all")
}

func (c *historyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	trades, err := reporter.History(p.ID, c.limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not read trade log: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.HistoryMarkdown(p.Name, trades))
	return subcommands.ExitSuccess
}
