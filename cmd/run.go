package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/papertrade"
	"github.com/etnz/papertrade/feed"
	"github.com/etnz/papertrade/renderer"
)

type runCmd struct {
	dryRun bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "execute one rebalance cycle" }
func (*runCmd) Usage() string {
	return `ptc run [-dry-run]

  Executes one full rebalance cycle: rule evaluation (stop-losses and
  pyramid adds), exits of holdings that fell out of the target set, and
  entries into new target tickers, in deterministic order.

  With -dry-run the cycle is computed against an in-memory snapshot and
  reported without committing anything.

Usage Examples:
# Preview the next cycle.
$ ptc -rank-url https://ranker.example/top -quote-url https://quotes.example/%s run -dry-run

`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.dryRun, "dry-run", false, "compute and report the cycle without committing any trade")
}

func (c *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if *rankURL == "" {
		fmt.Fprintln(os.Stderr, "-rank-url is required: a cycle needs ranked candidates")
		return subcommands.ExitUsageError
	}
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

	ranker := feed.NewRankerClient(*rankURL, *itemsPath, *tickerField, *scoreField)
	rebalancer := papertrade.NewRebalancer(cfg, store, priceFeed(), ranker)

	var summary *papertrade.CycleSummary
	if c.dryRun {
		summary, err = rebalancer.DryRun(ctx, p.ID)
	} else {
		summary, err = rebalancer.RunCycle(ctx, p.ID)
	}
	if summary != nil {
		printMarkdown(renderer.CycleMarkdown(summary))
	}
	if err != nil {
		// committed trades stay valid; the summary above shows how far the
		// cycle got.
		fmt.Fprintf(os.Stderr, "Error: cycle aborted: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
