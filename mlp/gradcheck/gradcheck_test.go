package gradcheck

import (
	"testing"

	"github.com/ahmedtd/densenet/internal/splitmix"
	"github.com/ahmedtd/densenet/mlp"
	"github.com/google/go-cmp/cmp"
)

func TestGradientMatchesFiniteDifferences(t *testing.T) {
	testCases := []struct {
		desc         string
		neuronCounts []int
		activations  []mlp.Activation
	}{
		{
			desc:         "sigmoid-linear",
			neuronCounts: []int{3, 4, 2},
			activations:  []mlp.Activation{mlp.Sigmoid, mlp.Linear},
		},
		{
			desc:         "linear-relu-sigmoid",
			neuronCounts: []int{4, 3, 2, 1},
			activations:  []mlp.Activation{mlp.Linear, mlp.ReLU, mlp.Sigmoid},
		},
		{
			desc:         "relu-sigmoid-sigmoid",
			neuronCounts: []int{2, 5, 5, 3},
			activations:  []mlp.Activation{mlp.ReLU, mlp.Sigmoid, mlp.Sigmoid},
		},
		{
			desc:         "single layer",
			neuronCounts: []int{6, 2},
			activations:  []mlp.Activation{mlp.Sigmoid},
		},
	}
	for _, tc := range testCases {
		for _, mode := range []mlp.ErrorMode{mlp.SquaredError, mlp.AbsoluteError} {
			t.Run(tc.desc+"/"+mode.String(), func(t *testing.T) {
				net, err := mlp.Build(tc.neuronCounts, tc.activations)
				if err != nil {
					t.Fatalf("Build: %v", err)
				}
				src := splitmix.New(42)
				src.Fill(net.Weights())

				inputs := make([]float64, tc.neuronCounts[0])
				targets := make([]float64, tc.neuronCounts[len(tc.neuronCounts)-1])
				for s := 0; s < 3; s++ {
					src.Fill(inputs)
					src.Fill(targets)

					report, err := Check(net, inputs, targets, mode, nil)
					if err != nil {
						t.Fatalf("Check: %v", err)
					}
					if !report.OK() {
						t.Errorf("sample %d: %v\nanalytic=%v\nnumeric=%v", s, report, report.Analytic, report.Numeric)
					}
				}
			})
		}
	}
}

func TestCheckRestoresWeights(t *testing.T) {
	net, err := mlp.Build([]int{3, 3, 1}, []mlp.Activation{mlp.Sigmoid, mlp.Sigmoid})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	splitmix.New(3).Fill(net.Weights())
	want := append([]float64(nil), net.Weights()...)

	report, err := Check(net, []float64{0.1, 0.2, 0.3}, []float64{1}, mlp.SquaredError, &Settings{Step: 1e-5})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if diff := cmp.Diff(net.Weights(), want); diff != "" {
		t.Errorf("weights after Check diff (-got +want)\n%s", diff)
	}

	grad, err := net.Gradient([]float64{0.1, 0.2, 0.3}, []float64{1}, mlp.SquaredError)
	if err != nil {
		t.Fatalf("Gradient: %v", err)
	}
	if diff := cmp.Diff(report.Analytic, grad); diff != "" {
		t.Errorf("report analytic gradient diff (-got +want)\n%s", diff)
	}
}

func TestCheckExactForQuadraticLoss(t *testing.T) {
	net, err := mlp.Build([]int{2, 1}, []mlp.Activation{mlp.Linear})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	copy(net.Weights(), []float64{0.5, -0.5, 0.25})

	// Central differences are exact for a quadratic, so even a huge step
	// must agree.
	report, err := Check(net, []float64{1, 2}, []float64{3}, mlp.SquaredError, &Settings{Step: 0.5})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !report.OK() {
		t.Errorf("linear network with quadratic loss disagreed: %v", report)
	}
}

func TestCheckPropagatesErrors(t *testing.T) {
	net, err := mlp.Build([]int{2, 1}, []mlp.Activation{mlp.Linear})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := Check(net, []float64{1, 2, 3}, []float64{3}, mlp.SquaredError, nil); err == nil {
		t.Errorf("Check with wrong input length succeeded")
	}
}
