package mlp

import (
	"errors"
	"math"
	"testing"
)

func TestActivationBoundaryValues(t *testing.T) {
	testCases := []struct {
		desc string
		got  float64
		want float64
	}{
		{desc: "ReLU(-1)", got: ReLU.Apply(-1), want: 0},
		{desc: "ReLU(0)", got: ReLU.Apply(0), want: 0},
		{desc: "ReLU(2)", got: ReLU.Apply(2), want: 2},
		{desc: "Linear(-3.5)", got: Linear.Apply(-3.5), want: -3.5},
		{desc: "Sigmoid(0)", got: Sigmoid.Apply(0), want: 0.5},
		{desc: "LinearDerivOnOutput(-7)", got: Linear.DerivOnOutput(-7), want: 1},
		{desc: "ReLUDerivOnOutput(0)", got: ReLU.DerivOnOutput(0), want: 0},
		{desc: "ReLUDerivOnOutput(2)", got: ReLU.DerivOnOutput(2), want: 1},
		{desc: "SigmoidDerivOnOutput(0.5)", got: Sigmoid.DerivOnOutput(0.5), want: 0.25},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %v, want %v", tc.got, tc.want)
			}
		})
	}
}

func TestDerivOnOutputMatchesDerivative(t *testing.T) {
	const h = 1e-6
	for _, act := range []Activation{Linear, ReLU, Sigmoid} {
		for _, x := range []float64{-2.5, -0.3, 0.7, 3.1} {
			numeric := (act.Apply(x+h) - act.Apply(x-h)) / (2 * h)
			got := act.DerivOnOutput(act.Apply(x))
			if math.Abs(got-numeric) > 1e-6 {
				t.Errorf("%v: derivative at x=%v got %v, want %v", act, x, got, numeric)
			}
		}
	}
}

func TestActivationIDsAreStable(t *testing.T) {
	// These ids are written by Save.
	if Linear != 0 || ReLU != 1 || Sigmoid != 2 {
		t.Fatalf("activation ids changed: linear=%d relu=%d sigmoid=%d", Linear, ReLU, Sigmoid)
	}
}

func TestParseActivation(t *testing.T) {
	for _, act := range []Activation{Linear, ReLU, Sigmoid} {
		got, err := ParseActivation(act.String())
		if err != nil {
			t.Fatalf("ParseActivation(%q): %v", act.String(), err)
		}
		if got != act {
			t.Errorf("ParseActivation(%q) = %v, want %v", act.String(), got, act)
		}
	}

	if got, err := ParseActivation(" ReLU "); err != nil || got != ReLU {
		t.Errorf("ParseActivation(\" ReLU \") = %v, %v; want relu", got, err)
	}

	if _, err := ParseActivation("tanh"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("ParseActivation(\"tanh\") error = %v, want ErrInvalidArgument", err)
	}
}

func TestActivationText(t *testing.T) {
	var a Activation
	if err := a.UnmarshalText([]byte("sigmoid")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if a != Sigmoid {
		t.Errorf("UnmarshalText(sigmoid) = %v", a)
	}

	if _, err := Activation(9).MarshalText(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("MarshalText of unknown id error = %v, want ErrInvalidArgument", err)
	}
	if got := Activation(9).String(); got != "Activation(9)" {
		t.Errorf("String() = %q", got)
	}
}

func TestApply32AgreesWithApply(t *testing.T) {
	for _, act := range []Activation{Linear, ReLU, Sigmoid} {
		for _, x := range []float64{-4, -1, 0, 0.25, 4} {
			want := act.Apply(x)
			got := float64(act.apply32(float32(x)))
			if math.Abs(got-want) > 1e-6 {
				t.Errorf("%v(%v): apply32 = %v, Apply = %v", act, x, got, want)
			}
		}
	}
}
