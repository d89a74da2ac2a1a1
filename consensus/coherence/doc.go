// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

/*
Package coherence implements Proof-of-Coherence: a block may only be sealed
after a network of simulated Kuramoto oscillators has held sustained phase
synchronization ("bloom").

# Overview

Each mining attempt owns a Network of N phase oscillators with natural
frequencies drawn from a Lorentzian of half-width Spread. Every round the
network is stepped forward, reduced to the order parameter (r, psi), and the
r value is handed to a Detector.

	Network.Step
	    |
	ComputeOrderParameter -> (r, psi)
	    |                        |
	AdaptiveCoupling <-----------+
	    |
	Detector.Observe
	    |
	    +-- r <  ZC : SCATTERED (window discarded)
	    +-- r >= ZC : CANDIDATE (window extended)
	    +-- round - start >= L4 : SEALED -> Certificate

# Coupling

The critical coupling of a Lorentzian population is 2*Spread. Above it the
population locks. AdaptiveCoupling boosts the base coupling with a Gaussian
bump centred on ZC so networks near the threshold are pushed through it.

# Certificates

A Certificate carries every (r, psi) sample of the bloom window and the final
phases. Verify recomputes the order parameter from those phases and checks it
against the last sample within VerifyTolerance, so any node can check a seal
without re-running the simulation.

# Determinism

A Network owns its random source. The same seed and the same sequence of
calls produce bit-identical phases on a given platform.
*/
package coherence
