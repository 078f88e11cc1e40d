package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ahmedtd/densenet/mlp"
)

// parseLayers parses a comma separated list of neuron counts, input layer
// first.
func parseLayers(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	layers := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("while parsing layer %d: %w", i, err)
		}
		layers[i] = n
	}
	return layers, nil
}

// parseActivations parses a comma separated list of activation names, one
// per non-input layer.
func parseActivations(s string) ([]mlp.Activation, error) {
	parts := strings.Split(s, ",")
	acts := make([]mlp.Activation, len(parts))
	for i, p := range parts {
		a, err := mlp.ParseActivation(p)
		if err != nil {
			return nil, fmt.Errorf("while parsing activation %d: %w", i, err)
		}
		acts[i] = a
	}
	return acts, nil
}

// parseVector parses a comma separated list of floats.
func parseVector(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	v := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("while parsing value %d: %w", i, err)
		}
		v[i] = f
	}
	return v, nil
}

func buildFromFlags(layersFlag, activationsFlag string) (*mlp.Network, error) {
	layers, err := parseLayers(layersFlag)
	if err != nil {
		return nil, fmt.Errorf("while parsing --layers: %w", err)
	}
	acts, err := parseActivations(activationsFlag)
	if err != nil {
		return nil, fmt.Errorf("while parsing --activations: %w", err)
	}
	net, err := mlp.Build(layers, acts)
	if err != nil {
		return nil, fmt.Errorf("while building network: %w", err)
	}
	return net, nil
}
