// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package coherence

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

const twoPi = 2 * math.Pi

// Network is a population of Kuramoto phase oscillators. It is not safe for
// concurrent use; each mining attempt owns its own Network.
type Network struct {
	phases   []float64
	freqs    []float64
	coupling float64
	time     float64

	noise distuv.Normal
}

// NewNetwork draws n phases uniformly from [0, 2pi) and n natural
// frequencies from a Lorentzian centred on zero with half-width spread.
func NewNetwork(n int, spread, coupling float64, seed uint64) (*Network, error) {
	switch {
	case n <= 0:
		return nil, ErrInvalidOscillators
	case !positive(spread):
		return nil, ErrInvalidSpread
	case !positive(coupling):
		return nil, ErrInvalidCoupling
	}

	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	uniform := distuv.Uniform{Min: 0, Max: twoPi, Src: src}
	lorentz := distuv.StudentsT{Mu: 0, Sigma: spread, Nu: 1, Src: src}

	nw := &Network{
		phases:   make([]float64, n),
		freqs:    make([]float64, n),
		coupling: coupling,
		noise:    distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}
	for i := range nw.phases {
		nw.phases[i] = wrap(uniform.Rand())
	}
	for i := range nw.freqs {
		nw.freqs[i] = lorentz.Rand()
	}
	return nw, nil
}

// CriticalCoupling returns 2*spread, the locking threshold of a Lorentzian
// population.
func CriticalCoupling(spread float64) float64 {
	return 2 * spread
}

// AdaptiveCoupling returns base * (1 + gain * exp(-Sharpness * (r-ZC)^2)).
// The boost peaks at exactly gain when r == ZC.
func AdaptiveCoupling(r, base, gain float64) float64 {
	d := r - ZC
	return base * (1 + gain*math.Exp(-Sharpness*d*d))
}

// Step advances every oscillator by one Euler step of size dt:
//
//	dtheta_i = omega_i + (K/N) * sum_j sin(theta_j - theta_i)
//
// plus sqrt(2*noise*dt) * xi_i when noise > 0. The pairwise sum is evaluated
// through the mean field, which is the same quantity in O(N).
func (nw *Network) Step(dt, noise float64) {
	var sumCos, sumSin float64
	for _, theta := range nw.phases {
		sumCos += math.Cos(theta)
		sumSin += math.Sin(theta)
	}

	k := nw.coupling / float64(len(nw.phases))
	var amp float64
	if noise > 0 {
		amp = math.Sqrt(2 * noise * dt)
	}

	next := make([]float64, len(nw.phases))
	for i, theta := range nw.phases {
		sin, cos := math.Sincos(theta)
		// sum_j sin(theta_j - theta_i) = S*cos(theta_i) - C*sin(theta_i)
		drift := nw.freqs[i] + k*(sumSin*cos-sumCos*sin)
		next[i] = theta + drift*dt
		if amp > 0 {
			next[i] += amp * nw.noise.Rand()
		}
	}
	for i, theta := range next {
		nw.phases[i] = wrap(theta)
	}
	nw.time += dt
}

// SetCoupling replaces the coupling used by the next Step.
func (nw *Network) SetCoupling(k float64) {
	nw.coupling = k
}

func (nw *Network) Coupling() float64 {
	return nw.coupling
}

func (nw *Network) Time() float64 {
	return nw.time
}

func (nw *Network) Len() int {
	return len(nw.phases)
}

// Phases returns a copy of the current phases.
func (nw *Network) Phases() []float64 {
	return append([]float64(nil), nw.phases...)
}

// Frequencies returns a copy of the natural frequencies.
func (nw *Network) Frequencies() []float64 {
	return append([]float64(nil), nw.freqs...)
}

// OrderParameter reduces the current phases to (r, psi).
func (nw *Network) OrderParameter() (float64, float64) {
	return ComputeOrderParameter(nw.phases)
}

// wrap maps theta into [0, 2pi).
func wrap(theta float64) float64 {
	theta = math.Mod(theta, twoPi)
	if theta < 0 {
		theta += twoPi
	}
	if theta >= twoPi {
		theta = 0
	}
	return theta
}
