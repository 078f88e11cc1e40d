package mlp

import "fmt"

// Gradient runs Forward and Backward for one sample and returns dE/dw for
// every weight.  The result has WeightCount entries laid out exactly like
// Weights(), so an optimizer can update weights positionally.
func (net *Network) Gradient(inputs, targets []float64, mode ErrorMode) ([]float64, error) {
	if net.released() {
		return nil, ErrReleased
	}
	grad := make([]float64, net.weightCount)
	if err := net.GradientInto(grad, inputs, targets, mode); err != nil {
		return nil, err
	}
	return grad, nil
}

// GradientInto is Gradient writing into dst, which must have WeightCount
// entries.
func (net *Network) GradientInto(dst, inputs, targets []float64, mode ErrorMode) error {
	if net.released() {
		return ErrReleased
	}
	if len(dst) != net.weightCount {
		return fmt.Errorf("%w: gradient buffer has %d entries, want %d", ErrInvalidArgument, len(dst), net.weightCount)
	}
	if err := net.checkTargets(targets, mode); err != nil {
		return err
	}
	if err := net.Forward(inputs); err != nil {
		return err
	}
	if err := net.Backward(targets, mode); err != nil {
		return err
	}
	net.extractGradient(dst)
	return nil
}

// extractGradient converts the resident activations and deltas into
// per-weight gradients.
//
// For each connection layer l and each neuron j of layer l+1 it emits
// a[l][i]*delta[l+1][j] for every input i, then delta[l+1][j] for the bias.
func (net *Network) extractGradient(dst []float64) {
	pos := 0
	for l := 0; l+1 < len(net.layers); l++ {
		x := net.Neurons(l)
		nextD := net.Deltas(l + 1)

		for _, dj := range nextD {
			row := dst[pos : pos+len(x)+1]
			for i, xi := range x {
				row[i] = xi * dj
			}
			row[len(x)] = dj
			pos += len(x) + 1
		}
	}

	if pos != net.weightCount {
		panic(fmt.Sprintf("gradient layout wrote %d entries, want %d", pos, net.weightCount))
	}
}
