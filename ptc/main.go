package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"

	"github.com/etnz/papertrade/cmd"
)

func main() {
	// Shell completion: a no-op outside of a completion request.
	complete.Complete("ptc", &complete.Command{
		Flags: map[string]complete.Predictor{
			"db":        predict.Files("*.db"),
			"portfolio": predict.Nothing,
		},
		Sub: map[string]*complete.Command{
			"init": {},
			"run": {Flags: map[string]complete.Predictor{
				"dry-run": predict.Nothing,
			}},
			"status": {},
			"history": {Flags: map[string]complete.Predictor{
				"limit": predict.Something,
			}},
		},
	})

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	for _, c := range cmd.Commands {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
