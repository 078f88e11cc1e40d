package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ahmedtd/densenet/internal/splitmix"
	"github.com/ahmedtd/densenet/mlp"
	"github.com/google/subcommands"
)

// DemoCommand runs one backpropagation step on a fixed 4-3-2-1 network and
// prints every neuron, delta and weight.  The output only depends on the
// seed, so it can be diffed against other implementations of the engine.
type DemoCommand struct {
	seed   uint64
	target float64
	mode   string
	what   string
}

var _ subcommands.Command = (*DemoCommand)(nil)

func (*DemoCommand) Name() string {
	return "demo"
}

func (*DemoCommand) Synopsis() string {
	return "Print a reproducible forward and backward pass"
}

func (*DemoCommand) Usage() string {
	return ``
}

func (c *DemoCommand) SetFlags(f *flag.FlagSet) {
	f.Uint64Var(&c.seed, "seed", 0, "SplitMix64 seed for the weights and inputs")
	f.Float64Var(&c.target, "target", 0.5, "Target value of the single output")
	f.StringVar(&c.mode, "mode", "squared", "Error function: squared or absolute")
	f.StringVar(&c.what, "what", "nwd", "Sections to print: n (neurons), w (weights), d (deltas)")
}

func (c *DemoCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *DemoCommand) executeErr(ctx context.Context) error {
	mode, err := mlp.ParseErrorMode(c.mode)
	if err != nil {
		return fmt.Errorf("while parsing --mode: %w", err)
	}

	net, err := mlp.Build([]int{4, 3, 2, 1}, []mlp.Activation{mlp.Linear, mlp.ReLU, mlp.Sigmoid})
	if err != nil {
		return fmt.Errorf("while building network: %w", err)
	}
	defer net.Release()

	// Weights first, then the inputs, from one stream.
	src := splitmix.New(c.seed)
	src.Fill(net.Weights())
	src.Fill(net.Inputs())

	if err := net.Forward(nil); err != nil {
		return fmt.Errorf("while running forward: %w", err)
	}
	if err := net.Backward([]float64{c.target}, mode); err != nil {
		return fmt.Errorf("while running backward: %w", err)
	}

	return net.Dump(os.Stdout, c.what)
}
