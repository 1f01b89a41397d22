package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type initCmd struct{}

func (*initCmd) Name() string     { return "init" }
func (*initCmd) Synopsis() string { return "create the portfolio with its starting cash" }
func (*initCmd) Usage() string {
	return `ptc init

  Creates the portfolio named by -portfolio, funded with -initial-cash.
  Idempotent: running it against an existing portfolio changes nothing
  and reports the current balance.

Usage Examples:
# Create a $250,000 paper portfolio.
$ ptc -portfolio momentum -initial-cash 250000 init

`
}

func (*initCmd) SetFlags(*flag.FlagSet) {}

func (c *initCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	fmt.Printf("Portfolio %q ready in %s (cash %s)\n", p.Name, *dbFile, p.CashBalance)
	return subcommands.ExitSuccess
}
