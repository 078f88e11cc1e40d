package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/ahmedtd/densenet/internal/splitmix"
	"github.com/ahmedtd/densenet/mlp"
	"github.com/ahmedtd/densenet/mlp/gradcheck"
	"github.com/google/subcommands"
)

type GradCheckCommand struct {
	weightsFile string
	layers      string
	activations string
	seed        uint64
	samples     int
	step        float64
	relTol      float64
}

var _ subcommands.Command = (*GradCheckCommand)(nil)

func (*GradCheckCommand) Name() string {
	return "gradcheck"
}

func (*GradCheckCommand) Synopsis() string {
	return "Compare backpropagated gradients with finite differences"
}

func (*GradCheckCommand) Usage() string {
	return `gradcheck [--weights=net.bin | --layers=... --activations=...] [--seed=N] [--samples=N]
`
}

func (c *GradCheckCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.weightsFile, "weights", "", "Path to a network; if empty one is built from --layers and --activations")
	f.StringVar(&c.layers, "layers", "3,4,2", "Comma separated neuron counts when --weights is empty")
	f.StringVar(&c.activations, "activations", "sigmoid,linear", "Comma separated activations when --weights is empty")
	f.Uint64Var(&c.seed, "seed", 1, "SplitMix64 seed for generated weights, inputs and targets")
	f.IntVar(&c.samples, "samples", 4, "Number of random samples to check per error mode")
	f.Float64Var(&c.step, "step", 1e-6, "Finite-difference step")
	f.Float64Var(&c.relTol, "rel-tol", 1e-6, "Relative tolerance")
}

func (c *GradCheckCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *GradCheckCommand) executeErr(ctx context.Context) error {
	src := splitmix.New(c.seed)

	var net *mlp.Network
	var err error
	if c.weightsFile != "" {
		net, err = mlp.LoadFile(c.weightsFile)
		if err != nil {
			return fmt.Errorf("while loading network: %w", err)
		}
	} else {
		net, err = buildFromFlags(c.layers, c.activations)
		if err != nil {
			return err
		}
		src.Fill(net.Weights())
	}
	defer net.Release()

	inputs := make([]float64, net.Layer(0).NeuronCount())
	targets := make([]float64, net.Layer(net.LayerCount()-1).NeuronCount())
	settings := &gradcheck.Settings{Step: c.step, RelTol: c.relTol}

	failures := 0
	for _, mode := range []mlp.ErrorMode{mlp.SquaredError, mlp.AbsoluteError} {
		for s := 0; s < c.samples; s++ {
			src.Fill(inputs)
			src.Fill(targets)

			report, err := gradcheck.Check(net, inputs, targets, mode, settings)
			if err != nil {
				return fmt.Errorf("while checking sample %d: %w", s, err)
			}
			log.Printf("mode=%v sample=%d %v", mode, s, report)
			if !report.OK() {
				failures++
			}
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d samples disagree with finite differences", failures)
	}
	return nil
}
