// Package mlp implements a dense feed-forward network whose weights,
// activations and deltas all live in one packed []float64.
//
// The buffer is laid out as
//
//	weights[weightCount] | neurons[neuronCount] | deltas[neuronCount - inputSize]
//
// and each Layer only records index ranges into it.
package mlp

import (
	"fmt"
	"math"
)

const (
	// MaxBufferLen bounds the packed buffer of a single network.
	MaxBufferLen = 1 << 30
)

// span is a half-open range [off, off+n) of the packed buffer.
type span struct {
	off, n int
}

func (s span) slice(buf []float64) []float64 {
	return buf[s.off : s.off+s.n : s.off+s.n]
}

// Layer is a view of one stage of neurons.  The input layer has no deltas
// and no activation; the output layer has no outgoing weights.
type Layer struct {
	neuronCount int
	activation  Activation

	neurons span
	deltas  span // n == 0 for the input layer
	weights span // n == 0 for the output layer; (neuronCount+1)*next rows, bias last
}

func (l *Layer) NeuronCount() int {
	return l.neuronCount
}

// Activation is meaningless for the input layer.
func (l *Layer) Activation() Activation {
	return l.activation
}

type Network struct {
	layers      []Layer
	weightCount int
	neuronCount int

	buf []float64
}

// Build allocates a zeroed network.  neuronCounts has one entry per layer,
// input first; activations has one entry per non-input layer.
func Build(neuronCounts []int, activations []Activation) (*Network, error) {
	if len(neuronCounts) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 layers, got %d", ErrInvalidArgument, len(neuronCounts))
	}
	if len(activations) != len(neuronCounts)-1 {
		return nil, fmt.Errorf("%w: got %d activations for %d layers", ErrInvalidArgument, len(activations), len(neuronCounts))
	}
	for i, n := range neuronCounts {
		if n <= 0 {
			return nil, fmt.Errorf("%w: layer %d has %d neurons", ErrInvalidArgument, i, n)
		}
	}
	for i, a := range activations {
		if !a.Valid() {
			return nil, fmt.Errorf("%w: layer %d has unknown activation id %d", ErrInvalidArgument, i+1, uint32(a))
		}
	}

	weightCount, neuronCount, total, ok := bufferSizes(neuronCounts)
	if !ok {
		return nil, fmt.Errorf("%w: architecture %v needs more than %d values", ErrAllocation, neuronCounts, MaxBufferLen)
	}

	net := &Network{
		layers:      make([]Layer, len(neuronCounts)),
		weightCount: weightCount,
		neuronCount: neuronCount,
		buf:         make([]float64, total),
	}

	net.layers[0] = Layer{
		neuronCount: neuronCounts[0],
		neurons:     span{weightCount, neuronCounts[0]},
		weights:     span{0, (neuronCounts[0] + 1) * neuronCounts[1]},
	}

	for i := 1; i < len(neuronCounts); i++ {
		prev := &net.layers[i-1]

		deltaOff := weightCount + neuronCount
		if i > 1 {
			deltaOff = prev.deltas.off + prev.deltas.n
		}

		var weights span
		if i+1 < len(neuronCounts) {
			weights = span{prev.weights.off + prev.weights.n, (neuronCounts[i] + 1) * neuronCounts[i+1]}
		}

		net.layers[i] = Layer{
			neuronCount: neuronCounts[i],
			activation:  activations[i-1],
			neurons:     span{prev.neurons.off + prev.neurons.n, neuronCounts[i]},
			deltas:      span{deltaOff, neuronCounts[i]},
			weights:     weights,
		}
	}

	return net, nil
}

// bufferSizes computes weightCount, neuronCount and the packed buffer
// length, reporting false if any of them would exceed MaxBufferLen.
func bufferSizes(neuronCounts []int) (weightCount, neuronCount, total int, ok bool) {
	for i, n := range neuronCounts {
		if n > MaxBufferLen {
			return 0, 0, 0, false
		}
		neuronCount += n
		if i+1 < len(neuronCounts) {
			next := neuronCounts[i+1]
			if next > MaxBufferLen || (n+1) > math.MaxInt/next {
				return 0, 0, 0, false
			}
			weightCount += (n + 1) * next
		}
		if neuronCount > MaxBufferLen || weightCount > MaxBufferLen {
			return 0, 0, 0, false
		}
	}
	total = weightCount + 2*neuronCount - neuronCounts[0]
	if total > MaxBufferLen {
		return 0, 0, 0, false
	}
	return weightCount, neuronCount, total, true
}

// Release drops the packed buffer and the layer views together.  Afterwards
// every operation that returns an error returns ErrReleased, and the
// accessors describe a network with no layers: Inputs, Outputs and Weights
// are empty, and indexing a layer panics like any out-of-range index.
func (net *Network) Release() {
	*net = Network{}
}

func (net *Network) released() bool {
	return net.buf == nil
}

func (net *Network) LayerCount() int {
	return len(net.layers)
}

// Layer returns a view of layer i; the input layer is 0.
func (net *Network) Layer(i int) *Layer {
	return &net.layers[i]
}

func (net *Network) WeightCount() int {
	return net.weightCount
}

func (net *Network) NeuronCount() int {
	return net.neuronCount
}

// NeuronCounts returns a copy of the per-layer neuron counts.
func (net *Network) NeuronCounts() []int {
	counts := make([]int, len(net.layers))
	for i := range net.layers {
		counts[i] = net.layers[i].neuronCount
	}
	return counts
}

// Activations returns a copy of the activation of every non-input layer.
func (net *Network) Activations() []Activation {
	if len(net.layers) == 0 {
		return nil
	}
	acts := make([]Activation, len(net.layers)-1)
	for i := 1; i < len(net.layers); i++ {
		acts[i-1] = net.layers[i].activation
	}
	return acts
}

// Weights returns the whole weight region.  It aliases the network and is
// meant for optimizers and initializers that update weights in place.
func (net *Network) Weights() []float64 {
	return net.buf[:net.weightCount:net.weightCount]
}

// LayerWeights returns the outgoing weights of layer l, one row of
// NeuronCount()+1 values (bias last) per neuron of layer l+1.
func (net *Network) LayerWeights(l int) []float64 {
	return net.layers[l].weights.slice(net.buf)
}

// Neurons returns the activations of layer l.
func (net *Network) Neurons(l int) []float64 {
	return net.layers[l].neurons.slice(net.buf)
}

// Deltas returns the deltas of layer l, or nil for the input layer.
func (net *Network) Deltas(l int) []float64 {
	if l == 0 {
		return nil
	}
	return net.layers[l].deltas.slice(net.buf)
}

// Inputs returns the input layer activations.  Writing to it and then
// calling Forward(nil) runs the network on the written values.
func (net *Network) Inputs() []float64 {
	if net.released() {
		return nil
	}
	return net.Neurons(0)
}

// Outputs returns the output layer activations.
func (net *Network) Outputs() []float64 {
	if net.released() {
		return nil
	}
	return net.Neurons(len(net.layers) - 1)
}

func (net *Network) deltaRegion() []float64 {
	return net.buf[net.weightCount+net.neuronCount:]
}
