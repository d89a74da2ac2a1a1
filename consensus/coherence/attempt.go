// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package coherence

import "context"

const (
	// diagnosticHistory is the number of trailing phase snapshots kept for
	// the Edwards-Anderson diagnostic.
	diagnosticHistory = 32

	// ctxCheckInterval is how many rounds run between context checks.
	ctxCheckInterval = 64
)

// Result summarises one mining attempt.
type Result struct {
	Seed   uint64
	Rounds uint32
	// Certificate is nil if the round budget ran out first.
	Certificate *Certificate
	// LastR is the order parameter after the final round.
	LastR float64
	// EdwardsAnderson is q over the trailing phase snapshots.
	EdwardsAnderson float64
}

// Sealed reports whether the attempt produced a certificate.
func (r Result) Sealed() bool {
	return r.Certificate != nil
}

// RunAttempt steps a fresh network seeded with [seed], feeding each round's
// order parameter back through AdaptiveCoupling, until the detector seals or
// p.MaxRounds elapse. Exhausting the budget returns a Result with no
// certificate and a nil error. The only errors are invalid params and
// context cancellation.
func RunAttempt(ctx context.Context, p Params, seed uint64) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	nw, err := NewNetwork(p.Oscillators, p.Spread, p.Coupling, seed)
	if err != nil {
		return Result{}, err
	}

	var (
		res     = Result{Seed: seed}
		det     = NewDetector()
		history = make([][]float64, 0, diagnosticHistory)
	)
	for round := uint32(0); round < p.MaxRounds; round++ {
		if round%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}

		nw.Step(p.TimeStep, p.Noise)
		phases := nw.Phases()
		r, psi := ComputeOrderParameter(phases)
		nw.SetCoupling(AdaptiveCoupling(r, p.Coupling, p.Gain))

		if len(history) == diagnosticHistory {
			copy(history, history[1:])
			history = history[:diagnosticHistory-1]
		}
		history = append(history, phases)

		res.Rounds = round + 1
		res.LastR = r

		cert, err := det.Observe(Sample{Round: round, R: r, Psi: psi}, phases)
		if err != nil {
			return res, err
		}
		if cert != nil {
			res.Certificate = cert
			break
		}
	}

	res.EdwardsAnderson, err = EdwardsAnderson(history)
	return res, err
}
