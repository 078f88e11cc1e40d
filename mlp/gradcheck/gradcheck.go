// Package gradcheck compares the analytic gradient of an mlp.Network with a
// central finite-difference estimate of its loss.
package gradcheck

import (
	"fmt"
	"math"

	"github.com/ahmedtd/densenet/mlp"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats/scalar"
)

type Settings struct {
	// Step is the finite-difference step.  Defaults to 1e-6.
	Step float64

	// AbsTol and RelTol decide whether an entry agrees: it does if it is
	// within AbsTol or within RelTol relative error.  Default 1e-8 and 1e-6.
	AbsTol, RelTol float64
}

func (s *Settings) withDefaults() Settings {
	out := Settings{Step: 1e-6, AbsTol: 1e-8, RelTol: 1e-6}
	if s == nil {
		return out
	}
	if s.Step > 0 {
		out.Step = s.Step
	}
	if s.AbsTol > 0 {
		out.AbsTol = s.AbsTol
	}
	if s.RelTol > 0 {
		out.RelTol = s.RelTol
	}
	return out
}

type Report struct {
	Analytic []float64
	Numeric  []float64

	// MaxAbsDiff and MaxRelDiff are taken over all weights.  Worst is the
	// index of the weight with the largest relative difference.
	MaxAbsDiff float64
	MaxRelDiff float64
	Worst      int

	// Mismatches counts the weights that fail the tolerance.
	Mismatches int
}

func (r Report) OK() bool {
	return r.Mismatches == 0
}

func (r Report) String() string {
	return fmt.Sprintf("weights=%d mismatches=%d max-abs-diff=%g max-rel-diff=%g worst=%d",
		len(r.Analytic), r.Mismatches, r.MaxAbsDiff, r.MaxRelDiff, r.Worst)
}

// Check computes the gradient of net's loss for one sample both ways.  The
// weights of net are restored before returning; its activations and deltas
// are left holding the analytic pass.
func Check(net *mlp.Network, inputs, targets []float64, mode mlp.ErrorMode, settings *Settings) (Report, error) {
	s := settings.withDefaults()

	original := append([]float64(nil), net.Weights()...)
	defer copy(net.Weights(), original)

	var evalErr error
	loss := func(w []float64) float64 {
		copy(net.Weights(), w)
		if err := net.Forward(inputs); err != nil {
			evalErr = err
			return math.NaN()
		}
		l, err := net.Loss(targets, mode)
		if err != nil {
			evalErr = err
			return math.NaN()
		}
		return l
	}

	numeric := fd.Gradient(nil, loss, original, &fd.Settings{
		Formula: fd.Central,
		Step:    s.Step,
	})
	if evalErr != nil {
		return Report{}, fmt.Errorf("while estimating gradient: %w", evalErr)
	}

	copy(net.Weights(), original)
	analytic, err := net.Gradient(inputs, targets, mode)
	if err != nil {
		return Report{}, fmt.Errorf("while computing gradient: %w", err)
	}

	r := Report{
		Analytic: analytic,
		Numeric:  numeric,
	}
	for i := range analytic {
		absDiff := math.Abs(analytic[i] - numeric[i])
		relDiff := 0.0
		if scale := math.Max(math.Abs(analytic[i]), math.Abs(numeric[i])); scale > 0 {
			relDiff = absDiff / scale
		}
		r.MaxAbsDiff = math.Max(r.MaxAbsDiff, absDiff)
		if relDiff > r.MaxRelDiff {
			r.MaxRelDiff = relDiff
			r.Worst = i
		}
		if !scalar.EqualWithinAbsOrRel(analytic[i], numeric[i], s.AbsTol, s.RelTol) {
			r.Mismatches++
		}
	}

	return r, nil
}
