package mlp

import "fmt"

// Forward propagates inputs through the network, leaving every layer's
// activations in the packed buffer.  If inputs is nil the values already
// resident in the input layer are used.
//
// Forward also zeroes every delta so a following Backward starts clean.
func (net *Network) Forward(inputs []float64) error {
	if net.released() {
		return ErrReleased
	}
	if inputs != nil {
		if len(inputs) != net.layers[0].neuronCount {
			return fmt.Errorf("%w: got %d inputs, want %d", ErrInvalidArgument, len(inputs), net.layers[0].neuronCount)
		}
		copy(net.Inputs(), inputs)
	}

	clear(net.deltaRegion())

	for l := 1; l < len(net.layers); l++ {
		net.forwardLayer(l)
	}
	return nil
}

// forwardLayer computes the activations of layer l from layer l-1.
//
// This function is equivalent to:
//
//	for o := 0; o < outputSize; o++ {
//		sum := 0.0
//		for i := 0; i < inputSize; i++ {
//			sum += x[i] * w[o*(inputSize+1)+i]
//		}
//		sum += w[o*(inputSize+1)+inputSize]
//		a[o] = act(sum)
//	}
func (net *Network) forwardLayer(l int) {
	x := net.Neurons(l - 1)
	a := net.Neurons(l)
	w := net.LayerWeights(l - 1)
	act := net.layers[l].activation

	inputSize := len(x)
	rowSize := inputSize + 1

	// Hint for bounds-check elimination.
	_ = w[len(a)*rowSize-1]

	for o := range a {
		row := w[o*rowSize : o*rowSize+rowSize]
		var sum float64
		for i, xi := range x {
			sum += xi * row[i]
		}
		sum += row[inputSize]
		a[o] = act.Apply(sum)
	}
}
