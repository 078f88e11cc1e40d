package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ahmedtd/densenet/mlp"
	"github.com/google/subcommands"
	"gonum.org/v1/gonum/mat"
)

type RunCommand struct {
	weightsFile string
	inputsFile  string
	input       string
	outFile     string
	f32         bool
	dump        string
}

var _ subcommands.Command = (*RunCommand)(nil)

func (*RunCommand) Name() string {
	return "run"
}

func (*RunCommand) Synopsis() string {
	return "Run a network forward over one or more samples"
}

func (*RunCommand) Usage() string {
	return `run --weights=net.bin (--inputs=x.npy | --input=v0,v1,...) [--out=y.npy] [--f32] [--dump=nw]
`
}

func (c *RunCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.weightsFile, "weights", "net.bin", "Path to the network written by init")
	f.StringVar(&c.inputsFile, "inputs", "", "Path to an .npy array of samples, one per row")
	f.StringVar(&c.input, "input", "", "A single comma separated input sample")
	f.StringVar(&c.outFile, "out", "", "Path to write the outputs as .npy; logged if empty")
	f.BoolVar(&c.f32, "f32", false, "Run with a float32 snapshot of the weights")
	f.StringVar(&c.dump, "dump", "", "After the last sample, print the network; any of n (neurons), w (weights)")
}

func (c *RunCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *RunCommand) executeErr(ctx context.Context) error {
	net, err := mlp.LoadFile(c.weightsFile)
	if err != nil {
		return fmt.Errorf("while loading network: %w", err)
	}
	defer net.Release()

	x, err := c.loadInputs()
	if err != nil {
		return err
	}

	samples, inputSize := x.Dims()
	if inputSize != net.Layer(0).NeuronCount() {
		return fmt.Errorf("inputs have %d columns, network takes %d", inputSize, net.Layer(0).NeuronCount())
	}
	outputSize := net.Layer(net.LayerCount() - 1).NeuronCount()
	y := mat.NewDense(samples, outputSize, nil)

	if c.f32 {
		if err := runFloat32(net, x, y); err != nil {
			return err
		}
	} else {
		for k := 0; k < samples; k++ {
			if err := net.Forward(x.RawRowView(k)); err != nil {
				return fmt.Errorf("while running sample %d: %w", k, err)
			}
			y.SetRow(k, net.Outputs())
		}
	}

	if c.outFile != "" {
		if err := saveMatrix(c.outFile, y); err != nil {
			return err
		}
		log.Printf("wrote %d samples to %s", samples, c.outFile)
	} else {
		for k := 0; k < samples; k++ {
			log.Printf("sample %d outputs=%v", k, y.RawRowView(k))
		}
	}

	if c.dump != "" {
		if err := net.Dump(os.Stdout, c.dump); err != nil {
			return fmt.Errorf("while dumping network: %w", err)
		}
	}

	return nil
}

func (c *RunCommand) loadInputs() (*mat.Dense, error) {
	switch {
	case c.inputsFile != "" && c.input != "":
		return nil, fmt.Errorf("--inputs and --input are mutually exclusive")
	case c.inputsFile != "":
		return loadMatrix(c.inputsFile)
	case c.input != "":
		v, err := parseVector(c.input)
		if err != nil {
			return nil, fmt.Errorf("while parsing --input: %w", err)
		}
		return mat.NewDense(1, len(v), v), nil
	default:
		return nil, fmt.Errorf("one of --inputs or --input is required")
	}
}

func runFloat32(net *mlp.Network, x, y *mat.Dense) error {
	snap, err := net.Snapshot32()
	if err != nil {
		return fmt.Errorf("while taking float32 snapshot: %w", err)
	}

	samples, inputSize := x.Dims()
	x32 := make([]float32, inputSize)
	y32 := make([]float32, snap.OutputSize())
	for k := 0; k < samples; k++ {
		for i, v := range x.RawRowView(k) {
			x32[i] = float32(v)
		}
		if err := snap.Apply(x32, y32); err != nil {
			return fmt.Errorf("while running sample %d: %w", k, err)
		}
		for j, v := range y32 {
			y.Set(k, j, float64(v))
		}
	}
	return nil
}
