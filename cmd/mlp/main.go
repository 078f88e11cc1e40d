// Command mlp builds, runs and checks packed-buffer multilayer perceptrons.
//
// To create a network: `go run ./cmd/mlp init --layers=4,3,2,1 --activations=linear,relu,sigmoid --out=net.bin`
//
// To run it: `go run ./cmd/mlp run --weights=net.bin --inputs=x.npy --out=y.npy`
//
// To reproduce the reference trace: `go run ./cmd/mlp demo`
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&InitCommand{}, "")
	subcommands.Register(&RunCommand{}, "")
	subcommands.Register(&GradientCommand{}, "")
	subcommands.Register(&GradCheckCommand{}, "")
	subcommands.Register(&ExportCommand{}, "exchange")
	subcommands.Register(&ImportCommand{}, "exchange")
	subcommands.Register(&DemoCommand{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
