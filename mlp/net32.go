package mlp

import "fmt"

// Net32 is a float32 copy of a network's weights for inference only.  It
// runs the same forward pass as Network.Forward at half the memory
// traffic, at the cost of float32 rounding.
type Net32 struct {
	neuronCounts []int
	activations  []Activation
	weights      []float32

	// scratch activations, sized for the widest layer
	a0, a1 []float32
}

// Snapshot32 copies the current weights of net into a Net32.  Later
// changes to net are not reflected.
func (net *Network) Snapshot32() (*Net32, error) {
	if net.released() {
		return nil, ErrReleased
	}

	s := &Net32{
		neuronCounts: net.NeuronCounts(),
		activations:  net.Activations(),
		weights:      make([]float32, net.weightCount),
	}
	for i, w := range net.Weights() {
		s.weights[i] = float32(w)
	}

	widest := 0
	for _, n := range s.neuronCounts {
		widest = max(widest, n)
	}
	s.a0 = make([]float32, 0, widest)
	s.a1 = make([]float32, 0, widest)

	return s, nil
}

func (s *Net32) InputSize() int {
	return s.neuronCounts[0]
}

func (s *Net32) OutputSize() int {
	return s.neuronCounts[len(s.neuronCounts)-1]
}

// Apply runs the network on x and writes the outputs into out, which must
// have OutputSize entries.  A Net32 is not safe for concurrent use.
func (s *Net32) Apply(x, out []float32) error {
	if len(x) != s.InputSize() {
		return fmt.Errorf("%w: got %d inputs, want %d", ErrInvalidArgument, len(x), s.InputSize())
	}
	if len(out) != s.OutputSize() {
		return fmt.Errorf("%w: output buffer has %d entries, want %d", ErrInvalidArgument, len(out), s.OutputSize())
	}

	a0 := append(s.a0[:0], x...)
	a1 := s.a1
	w := s.weights

	for l := 1; l < len(s.neuronCounts); l++ {
		inputSize := s.neuronCounts[l-1]
		rowSize := inputSize + 1
		act := s.activations[l-1]

		a1 = a1[:s.neuronCounts[l]]
		for o := range a1 {
			row := w[o*rowSize : o*rowSize+rowSize]
			var sum float32
			for i, xi := range a0 {
				sum += xi * row[i]
			}
			sum += row[inputSize]
			a1[o] = act.apply32(sum)
		}
		w = w[len(a1)*rowSize:]

		// This layer's output becomes the input for the next layer.
		a0, a1 = a1, a0
	}

	copy(out, a0)
	return nil
}
