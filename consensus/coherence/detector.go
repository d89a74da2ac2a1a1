// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package coherence

import (
	"errors"
	"fmt"
)

var (
	ErrDetectorSealed  = errors.New("detector already sealed")
	ErrRoundOutOfOrder = errors.New("round not after previous observation")
)

// State of a Detector.
type State uint8

const (
	Scattered State = iota
	Candidate
	Sealed
)

func (s State) String() string {
	switch s {
	case Scattered:
		return "scattered"
	case Candidate:
		return "candidate"
	case Sealed:
		return "sealed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Sample is one round's order parameter.
type Sample struct {
	Round uint32
	R     float64
	Psi   float64
}

// Detector watches a stream of samples for a bloom: a run of strictly
// consecutive rounds whose r is at least ZC and which spans L4 rounds beyond
// its first. r is compared after rounding to float32 so the certificate
// it emits carries exactly the values that were accepted.
type Detector struct {
	state    State
	observed bool
	last     uint32

	start uint32
	r     []float32
	psi   []float32

	cert *Certificate
}

func NewDetector() *Detector {
	return &Detector{}
}

func (d *Detector) State() State {
	return d.state
}

// Certificate returns the sealed certificate, or nil before sealing.
func (d *Detector) Certificate() *Certificate {
	return d.cert
}

// Window returns the first round and length of the open candidate window.
func (d *Detector) Window() (uint32, int) {
	return d.start, len(d.r)
}

// Observe records the sample for [round]. [phases] are the network phases
// after that round; they are only read if this sample seals the window.
// It returns the certificate on the sealing round and nil otherwise.
func (d *Detector) Observe(s Sample, phases []float64) (*Certificate, error) {
	if d.state == Sealed {
		return nil, ErrDetectorSealed
	}
	if d.observed && s.Round <= d.last {
		return nil, fmt.Errorf("%w: %d <= %d", ErrRoundOutOfOrder, s.Round, d.last)
	}
	gap := d.observed && s.Round != d.last+1
	d.observed = true
	d.last = s.Round

	r := float32(s.R)
	if !(float64(r) >= ZC) {
		d.reset()
		return nil, nil
	}
	if d.state == Scattered || gap {
		d.reset()
		d.state = Candidate
		d.start = s.Round
	}
	d.r = append(d.r, r)
	d.psi = append(d.psi, QuantizeAngle(s.Psi))

	if s.Round-d.start < L4 {
		return nil, nil
	}

	final := make([]float32, len(phases))
	for i, theta := range phases {
		final[i] = float32(theta)
	}
	d.cert = &Certificate{
		start:  d.start,
		end:    s.Round,
		r:      d.r,
		psi:    d.psi,
		phases: final,
	}
	d.r, d.psi = nil, nil
	d.state = Sealed
	return d.cert, nil
}

func (d *Detector) reset() {
	d.state = Scattered
	d.start = 0
	d.r = d.r[:0]
	d.psi = d.psi[:0]
}
