package mlp

import (
	"fmt"
	"math"
)

// ErrorMode selects the error function whose gradient Backward computes.
type ErrorMode int

const (
	// SquaredError is E = 1/2 * sum((a - t)^2).
	SquaredError ErrorMode = iota
	// AbsoluteError is E = sum(|a - t|).  At a == t the sub-gradient used is
	// 0.
	AbsoluteError
)

func (m ErrorMode) String() string {
	switch m {
	case SquaredError:
		return "squared"
	case AbsoluteError:
		return "absolute"
	default:
		return fmt.Sprintf("ErrorMode(%d)", int(m))
	}
}

func ParseErrorMode(name string) (ErrorMode, error) {
	switch name {
	case "squared", "sq", "mse":
		return SquaredError, nil
	case "absolute", "abs", "mae":
		return AbsoluteError, nil
	default:
		return 0, fmt.Errorf("%w: unknown error mode %q", ErrInvalidArgument, name)
	}
}

// errorDerivative returns dE/da for a single output given diff = a - t.
func (m ErrorMode) errorDerivative(diff float64) float64 {
	switch m {
	case SquaredError:
		return diff
	case AbsoluteError:
		return sign(diff)
	default:
		panic("unhandled error mode")
	}
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func (net *Network) checkTargets(targets []float64, mode ErrorMode) error {
	if net.released() {
		return ErrReleased
	}
	if mode != SquaredError && mode != AbsoluteError {
		return fmt.Errorf("%w: unknown error mode %d", ErrInvalidArgument, int(mode))
	}
	if want := net.layers[len(net.layers)-1].neuronCount; len(targets) != want {
		return fmt.Errorf("%w: got %d targets, want %d", ErrInvalidArgument, len(targets), want)
	}
	return nil
}

// Backward computes the delta of every non-input neuron for targets.  It
// must follow a Forward on the sample the targets belong to, since it reads
// the activations Forward left behind.
func (net *Network) Backward(targets []float64, mode ErrorMode) error {
	if err := net.checkTargets(targets, mode); err != nil {
		return err
	}

	last := len(net.layers) - 1

	// Output layer.
	act := net.layers[last].activation
	a := net.Neurons(last)
	d := net.Deltas(last)
	for j := range a {
		d[j] = act.DerivOnOutput(a[j]) * mode.errorDerivative(a[j]-targets[j])
	}

	// Hidden layers, from the output side down to layer 1.
	for l := last - 1; l > 0; l-- {
		net.backwardLayer(l)
	}

	return nil
}

// backwardLayer computes the deltas of hidden layer l from those of layer
// l+1, walking the same weight rows Forward used.
//
// This function is equivalent to:
//
//	for i := 0; i < size; i++ {
//		for j := 0; j < nextSize; j++ {
//			d[i] += w[j*(size+1)+i] * nextD[j]
//		}
//		d[i] *= act'(a[i])
//	}
//
// but iterates j in the outer loop so each weight row is read contiguously.
func (net *Network) backwardLayer(l int) {
	a := net.Neurons(l)
	d := net.Deltas(l)
	nextD := net.Deltas(l + 1)
	w := net.LayerWeights(l)
	act := net.layers[l].activation

	rowSize := len(a) + 1

	// Hint for bounds-check elimination.
	_ = w[len(nextD)*rowSize-1]

	// Forward already zeroed d; clearing again lets Backward be repeated
	// with different targets after a single Forward.
	clear(d)

	for j, dj := range nextD {
		row := w[j*rowSize : j*rowSize+len(a)]
		for i, wji := range row {
			d[i] += wji * dj
		}
	}

	for i := range d {
		d[i] *= act.DerivOnOutput(a[i])
	}
}

// Loss evaluates the error function for targets against the current output
// activations.  Backward computes the gradient of exactly this quantity.
func (net *Network) Loss(targets []float64, mode ErrorMode) (float64, error) {
	if err := net.checkTargets(targets, mode); err != nil {
		return 0, err
	}

	var loss float64
	for j, a := range net.Outputs() {
		diff := a - targets[j]
		switch mode {
		case SquaredError:
			loss += diff * diff / 2
		case AbsoluteError:
			loss += math.Abs(diff)
		}
	}
	return loss, nil
}
