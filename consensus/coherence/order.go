// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package coherence

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	ErrRaggedHistory = errors.New("history rows differ in length")

	errOrderOutOfRange = errors.New("order parameter not reachable")
)

// ComputeOrderParameter returns the magnitude r in [0, 1] and angle psi in
// [0, 2pi) of the mean unit vector of phases. An empty input yields (0, 0).
func ComputeOrderParameter[T float32 | float64](phases []T) (float64, float64) {
	if len(phases) == 0 {
		return 0, 0
	}
	var sumCos, sumSin float64
	for _, theta := range phases {
		sin, cos := math.Sincos(float64(theta))
		sumCos += cos
		sumSin += sin
	}
	n := float64(len(phases))
	r := math.Min(math.Hypot(sumCos, sumSin)/n, 1)
	return r, wrap(math.Atan2(sumSin, sumCos))
}

// EdwardsAnderson returns q = mean_j |<exp(i*theta_j(t))>_t|^2 over a
// history of phase snapshots indexed [t][j]. q is 1 for frozen oscillators
// and tends to 0 for freely rotating ones. An empty history yields 0.
func EdwardsAnderson(history [][]float64) (float64, error) {
	if len(history) == 0 || len(history[0]) == 0 {
		return 0, nil
	}
	n := len(history[0])
	sumCos := make([]float64, n)
	sumSin := make([]float64, n)
	for _, row := range history {
		if len(row) != n {
			return 0, ErrRaggedHistory
		}
		for j, theta := range row {
			sin, cos := math.Sincos(theta)
			sumCos[j] += cos
			sumSin[j] += sin
		}
	}

	steps := float64(len(history))
	floats.Scale(1/steps, sumCos)
	floats.Scale(1/steps, sumSin)
	floats.Mul(sumCos, sumCos)
	floats.Mul(sumSin, sumSin)
	floats.Add(sumCos, sumSin)
	q := floats.Sum(sumCos) / float64(n)
	return math.Min(q, 1), nil
}

// angularDistance returns the shortest distance between two angles.
func angularDistance(a, b float64) float64 {
	d := math.Abs(math.Mod(a-b, twoPi))
	if d > math.Pi {
		d = twoPi - d
	}
	return d
}

// QuantizeAngle rounds an angle in [0, 2pi) to float32 without letting it
// round up to 2pi.
func QuantizeAngle(a float64) float32 {
	f := float32(a)
	if float64(f) >= twoPi {
		return 0
	}
	return f
}

// PhasesWithOrder returns n phases whose order parameter is exactly r with
// psi = 0: one oscillator at 0 for odd n, and symmetric pairs at +/-delta.
func PhasesWithOrder(n int, r float64) ([]float64, error) {
	if n <= 0 {
		return nil, ErrInvalidOscillators
	}
	if !(r >= 0 && r <= 1) {
		return nil, fmt.Errorf("%w: r=%v", errOrderOutOfRange, r)
	}
	pairs := n / 2
	odd := n%2 == 1
	if pairs == 0 {
		if r != 1 {
			return nil, fmt.Errorf("%w: a single oscillator has r=1", errOrderOutOfRange)
		}
		return []float64{0}, nil
	}

	// n*r = (odd ? 1 : 0) + 2*pairs*cos(delta)
	cos := r * float64(n)
	if odd {
		cos--
	}
	cos /= float64(2 * pairs)
	if cos < -1 || cos > 1 {
		return nil, fmt.Errorf("%w: r=%v with %d oscillators", errOrderOutOfRange, r, n)
	}
	delta := math.Acos(cos)

	phases := make([]float64, 0, n)
	if odd {
		phases = append(phases, 0)
	}
	for range pairs {
		phases = append(phases, delta, wrap(-delta))
	}
	return phases, nil
}
