package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/ahmedtd/densenet/mlp"
	"github.com/google/subcommands"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// GradientCommand averages the per-sample gradient over a data set.  It
// never updates the weights.
type GradientCommand struct {
	weightsFile string
	inputsFile  string
	targetsFile string
	mode        string
	outFile     string
}

var _ subcommands.Command = (*GradientCommand)(nil)

func (*GradientCommand) Name() string {
	return "gradient"
}

func (*GradientCommand) Synopsis() string {
	return "Compute the mean weight gradient over a data set"
}

func (*GradientCommand) Usage() string {
	return `gradient --weights=net.bin --inputs=x.npy --targets=y.npy [--mode=squared] [--out=grad.npy]
`
}

func (c *GradientCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.weightsFile, "weights", "net.bin", "Path to the network written by init")
	f.StringVar(&c.inputsFile, "inputs", "", "Path to an .npy array of input samples, one per row")
	f.StringVar(&c.targetsFile, "targets", "", "Path to an .npy array of target outputs, one per row")
	f.StringVar(&c.mode, "mode", "squared", "Error function: squared or absolute")
	f.StringVar(&c.outFile, "out", "grad.npy", "Path to write the mean gradient, laid out like the weights")
}

func (c *GradientCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *GradientCommand) executeErr(ctx context.Context) error {
	mode, err := mlp.ParseErrorMode(c.mode)
	if err != nil {
		return fmt.Errorf("while parsing --mode: %w", err)
	}

	net, err := mlp.LoadFile(c.weightsFile)
	if err != nil {
		return fmt.Errorf("while loading network: %w", err)
	}
	defer net.Release()

	x, err := loadMatrix(c.inputsFile)
	if err != nil {
		return fmt.Errorf("while loading inputs: %w", err)
	}
	y, err := loadMatrix(c.targetsFile)
	if err != nil {
		return fmt.Errorf("while loading targets: %w", err)
	}

	samples, _ := x.Dims()
	if ySamples, _ := y.Dims(); ySamples != samples {
		return fmt.Errorf("got %d input samples but %d target samples", samples, ySamples)
	}

	mean, loss, err := meanGradient(net, x, y, mode)
	if err != nil {
		return err
	}

	if err := saveMatrix(c.outFile, mat.NewDense(1, len(mean), mean)); err != nil {
		return err
	}

	log.Printf("samples=%d mode=%v mean-loss=%f gradient-norm=%f wrote %s", samples, mode, loss, floats.Norm(mean, 2), c.outFile)
	return nil
}

// meanGradient averages the gradient and the loss of every row of x
// against the matching row of y.
func meanGradient(net *mlp.Network, x, y *mat.Dense, mode mlp.ErrorMode) ([]float64, float64, error) {
	samples, _ := x.Dims()

	sum := make([]float64, net.WeightCount())
	grad := make([]float64, net.WeightCount())
	var loss float64

	for k := 0; k < samples; k++ {
		if err := net.GradientInto(grad, x.RawRowView(k), y.RawRowView(k), mode); err != nil {
			return nil, 0, fmt.Errorf("while computing gradient of sample %d: %w", k, err)
		}
		l, err := net.Loss(y.RawRowView(k), mode)
		if err != nil {
			return nil, 0, fmt.Errorf("while computing loss of sample %d: %w", k, err)
		}
		loss += l
		floats.Add(sum, grad)
	}

	floats.Scale(1/float64(samples), sum)
	return sum, loss / float64(samples), nil
}
