// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package miner runs oscillator networks until one blooms and assembles the
// resulting block.
package miner

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/log"

	"github.com/luxfi/coherence/consensus/coherence"
	"github.com/luxfi/coherence/vms/bloomvm/metrics"
)

var errInvalidParallelism = errors.New("parallelism must be positive")

// Pool runs independent mining attempts concurrently. Attempts share no
// state; each is reproducible from its seed.
type Pool struct {
	params      coherence.Params
	parallelism int
	log         log.Logger
	metrics     metrics.Metrics
}

func NewPool(params coherence.Params, parallelism int, logger log.Logger, m metrics.Metrics) (*Pool, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if parallelism <= 0 {
		return nil, errInvalidParallelism
	}
	if m == nil {
		m = metrics.Noop
	}
	return &Pool{
		params:      params,
		parallelism: parallelism,
		log:         logger,
		metrics:     m,
	}, nil
}

// Mine runs one attempt per seed in [seed, seed+parallelism). The first
// attempt to seal cancels the rest. If every attempt exhausts its round
// budget the returned bool is false and the error is nil.
func (p *Pool) Mine(ctx context.Context, seed uint64) (coherence.Result, bool, error) {
	sealCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		g, attemptCtx = errgroup.WithContext(sealCtx)
		lock          sync.Mutex
		winner        coherence.Result
		sealed        bool
	)
	for i := 0; i < p.parallelism; i++ {
		attemptSeed := seed + uint64(i)
		g.Go(func() error {
			res, err := coherence.RunAttempt(attemptCtx, p.params, attemptSeed)
			if err != nil {
				if sealCtx.Err() != nil && ctx.Err() == nil {
					// Another attempt sealed first.
					return nil
				}
				return err
			}

			p.metrics.MarkAttempt(res.Rounds, res.Sealed(), res.LastR)
			p.log.Debug("mining attempt finished",
				log.Uint64("seed", res.Seed),
				log.Uint32("rounds", res.Rounds),
				log.Bool("sealed", res.Sealed()),
				log.Reflect("lastR", res.LastR),
				log.Reflect("edwardsAnderson", res.EdwardsAnderson),
			)
			if !res.Sealed() {
				return nil
			}

			lock.Lock()
			defer lock.Unlock()
			if !sealed {
				sealed = true
				winner = res
				cancel()
			}
			return nil
		})
	}
	err := g.Wait()

	switch {
	case sealed:
		return winner, true, nil
	case ctx.Err() != nil:
		return coherence.Result{}, false, ctx.Err()
	default:
		return coherence.Result{}, false, err
	}
}
