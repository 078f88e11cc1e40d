package mlp

import (
	"fmt"
	"math"
	"strings"

	"github.com/chewxy/math32"
)

// Activation identifies an activation function.  The numeric values are
// written by Save, so they must never be renumbered.
type Activation uint32

const (
	Linear  Activation = 0
	ReLU    Activation = 1
	Sigmoid Activation = 2
)

var activationNames = [...]string{
	Linear:  "linear",
	ReLU:    "relu",
	Sigmoid: "sigmoid",
}

func (a Activation) Valid() bool {
	return int(a) < len(activationNames)
}

func (a Activation) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Activation(%d)", uint32(a))
	}
	return activationNames[a]
}

// ParseActivation accepts the names produced by String, in any case.
func ParseActivation(name string) (Activation, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for i, n := range activationNames {
		if n == lower {
			return Activation(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown activation %q", ErrInvalidArgument, name)
}

func (a Activation) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: unknown activation id %d", ErrInvalidArgument, uint32(a))
	}
	return []byte(a.String()), nil
}

func (a *Activation) UnmarshalText(text []byte) error {
	parsed, err := ParseActivation(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Apply computes y = f(x).
func (a Activation) Apply(x float64) float64 {
	switch a {
	case Linear:
		return x
	case ReLU:
		if x > 0 {
			return x
		}
		return 0
	case Sigmoid:
		return 1 / (1 + math.Exp(-x))
	default:
		panic("unhandled activation function")
	}
}

// DerivOnOutput computes f'(x) given only y = f(x).  This is well defined
// because every supported activation is monotone, so the pre-activation sum
// never needs to be stored.
func (a Activation) DerivOnOutput(y float64) float64 {
	switch a {
	case Linear:
		return 1
	case ReLU:
		if y > 0 {
			return 1
		}
		return 0
	case Sigmoid:
		return y * (1 - y)
	default:
		panic("unhandled activation function")
	}
}

func (a Activation) apply32(x float32) float32 {
	switch a {
	case Linear:
		return x
	case ReLU:
		return math32.Max(x, 0)
	case Sigmoid:
		return 1 / (1 + math32.Exp(-x))
	default:
		panic("unhandled activation function")
	}
}
