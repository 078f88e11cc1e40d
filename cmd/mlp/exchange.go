package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ahmedtd/densenet/mlp"
	"github.com/google/subcommands"
)

type ExportCommand struct {
	weightsFile string
	outFile     string
}

var _ subcommands.Command = (*ExportCommand)(nil)

func (*ExportCommand) Name() string {
	return "export"
}

func (*ExportCommand) Synopsis() string {
	return "Convert a network file to safetensors"
}

func (*ExportCommand) Usage() string {
	return ``
}

func (c *ExportCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.weightsFile, "weights", "net.bin", "Path to the network written by init")
	f.StringVar(&c.outFile, "out", "net.safetensors", "Path to write the safetensors file")
}

func (c *ExportCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *ExportCommand) executeErr(ctx context.Context) error {
	net, err := mlp.LoadFile(c.weightsFile)
	if err != nil {
		return fmt.Errorf("while loading network: %w", err)
	}
	defer net.Release()

	f, err := os.Create(c.outFile)
	if err != nil {
		return fmt.Errorf("while creating safetensors file: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := mlp.ExportSafeTensors(bw, net); err != nil {
		return fmt.Errorf("while writing safetensors: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("while flushing safetensors file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("while closing safetensors file: %w", err)
	}

	log.Printf("wrote %s", c.outFile)
	return nil
}

type ImportCommand struct {
	inFile    string
	outFile   string
	versioned bool
}

var _ subcommands.Command = (*ImportCommand)(nil)

func (*ImportCommand) Name() string {
	return "import"
}

func (*ImportCommand) Synopsis() string {
	return "Convert a safetensors file written by export back to a network file"
}

func (*ImportCommand) Usage() string {
	return ``
}

func (c *ImportCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inFile, "in", "net.safetensors", "Path to the safetensors file")
	f.StringVar(&c.outFile, "out", "net.bin", "Path to write the network")
	f.BoolVar(&c.versioned, "versioned", false, "Prefix the file with the format magic and version")
}

func (c *ImportCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *ImportCommand) executeErr(ctx context.Context) error {
	f, err := os.Open(c.inFile)
	if err != nil {
		return fmt.Errorf("while opening safetensors file: %w", err)
	}
	defer f.Close()

	net, err := mlp.ImportSafeTensors(f)
	if err != nil {
		return fmt.Errorf("while reading safetensors: %w", err)
	}
	defer net.Release()

	if err := mlp.SaveFile(c.outFile, net, c.versioned); err != nil {
		return fmt.Errorf("while saving network: %w", err)
	}

	log.Printf("wrote %s layers=%v activations=%v", c.outFile, net.NeuronCounts(), net.Activations())
	return nil
}
