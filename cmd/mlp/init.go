package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/ahmedtd/densenet/internal/splitmix"
	"github.com/ahmedtd/densenet/mlp"
	"github.com/google/subcommands"
)

type InitCommand struct {
	layers      string
	activations string
	seed        uint64
	outFile     string
	versioned   bool
}

var _ subcommands.Command = (*InitCommand)(nil)

func (*InitCommand) Name() string {
	return "init"
}

func (*InitCommand) Synopsis() string {
	return "Create a network with seeded random weights"
}

func (*InitCommand) Usage() string {
	return `init --layers=4,3,2,1 --activations=linear,relu,sigmoid [--seed=N] [--out=net.bin]
`
}

func (c *InitCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.layers, "layers", "4,3,2,1", "Comma separated neuron counts, input layer first")
	f.StringVar(&c.activations, "activations", "linear,relu,sigmoid", "Comma separated activations (linear, relu, sigmoid), one per non-input layer")
	f.Uint64Var(&c.seed, "seed", 0, "SplitMix64 seed for the weights")
	f.StringVar(&c.outFile, "out", "net.bin", "Path to write the network")
	f.BoolVar(&c.versioned, "versioned", false, "Prefix the file with the format magic and version")
}

func (c *InitCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *InitCommand) executeErr(ctx context.Context) error {
	net, err := buildFromFlags(c.layers, c.activations)
	if err != nil {
		return err
	}
	defer net.Release()

	splitmix.New(c.seed).Fill(net.Weights())

	if err := mlp.SaveFile(c.outFile, net, c.versioned); err != nil {
		return fmt.Errorf("while saving network: %w", err)
	}

	log.Printf("wrote %s layers=%v activations=%v weights=%d", c.outFile, net.NeuronCounts(), net.Activations(), net.WeightCount())
	return nil
}
