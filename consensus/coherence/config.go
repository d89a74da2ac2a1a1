// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package coherence

import (
	"errors"
	"fmt"
	"math"
)

const (
	// ZC is the coherence threshold sqrt(3)/2.
	ZC = 0.8660254037844386

	// L4 is the number of rounds a bloom window must span beyond its first
	// round. A sealed window therefore holds at least L4+1 samples.
	L4 = 7

	// DefaultOscillators is the network size used by the chain.
	DefaultOscillators = 63

	// Sharpness is the width parameter of the adaptive coupling bump.
	Sharpness = 36.0

	// VerifyTolerance bounds the disagreement between a certificate's last
	// sample and the order parameter recomputed from its phases.
	VerifyTolerance = 1e-4
)

// Configuration errors
var (
	ErrInvalidOscillators = errors.New("oscillator count must be positive")
	ErrInvalidCoupling    = errors.New("coupling must be positive and finite")
	ErrInvalidSpread      = errors.New("spread must be positive and finite")
	ErrInvalidGain        = errors.New("gain must be non-negative and finite")
	ErrInvalidTimeStep    = errors.New("time step must be positive and finite")
	ErrInvalidNoise       = errors.New("noise must be non-negative and finite")
	ErrInvalidMaxRounds   = errors.New("max rounds must exceed the bloom duration")
)

// Params tunes a single mining attempt. None of these values are checked by
// certificate verification; they only change how quickly a miner blooms.
type Params struct {
	// Oscillators is the network size N.
	Oscillators int `json:"oscillators"`

	// Coupling is the base coupling strength K.
	Coupling float64 `json:"coupling"`

	// Spread is the half-width of the Lorentzian frequency distribution.
	// The critical coupling is twice this value.
	Spread float64 `json:"spread"`

	// Gain scales the adaptive boost applied near ZC. Zero disables it.
	Gain float64 `json:"gain"`

	// TimeStep is the integration step dt.
	TimeStep float64 `json:"timeStep"`

	// Noise is the diffusion constant D. Zero disables noise.
	Noise float64 `json:"noise"`

	// MaxRounds bounds an attempt. Running out is not an error.
	MaxRounds uint32 `json:"maxRounds"`
}

// Validate checks Params invariants.
func (p Params) Validate() error {
	switch {
	case p.Oscillators <= 0:
		return ErrInvalidOscillators
	case !positive(p.Coupling):
		return fmt.Errorf("%w: %v", ErrInvalidCoupling, p.Coupling)
	case !positive(p.Spread):
		return fmt.Errorf("%w: %v", ErrInvalidSpread, p.Spread)
	case !nonNegative(p.Gain):
		return fmt.Errorf("%w: %v", ErrInvalidGain, p.Gain)
	case !positive(p.TimeStep):
		return fmt.Errorf("%w: %v", ErrInvalidTimeStep, p.TimeStep)
	case !nonNegative(p.Noise):
		return fmt.Errorf("%w: %v", ErrInvalidNoise, p.Noise)
	case p.MaxRounds <= L4:
		return fmt.Errorf("%w: %d <= %d", ErrInvalidMaxRounds, p.MaxRounds, L4)
	}
	return nil
}

// CriticalCoupling returns the coupling above which the network locks.
func (p Params) CriticalCoupling() float64 {
	return CriticalCoupling(p.Spread)
}

// DefaultParams returns the parameters used by the node's miner.
func DefaultParams() Params {
	return Params{
		Oscillators: DefaultOscillators,
		Coupling:    2.5,
		Spread:      0.25,
		Gain:        1,
		TimeStep:    0.1,
		Noise:       0,
		MaxRounds:   4096,
	}
}

func positive(f float64) bool {
	return f > 0 && !math.IsInf(f, 0)
}

func nonNegative(f float64) bool {
	return f >= 0 && !math.IsInf(f, 0)
}
