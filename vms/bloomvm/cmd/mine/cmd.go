// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mine

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/luxfi/coherence/consensus/coherence"
	"github.com/luxfi/coherence/utils/profiler"
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "mine",
		Short: "Runs a single mining attempt and prints its certificate",
		RunE:  mineFunc,
	}
	AddFlags(c.Flags())
	return c
}

func mineFunc(c *cobra.Command, args []string) error {
	config, err := ParseFlags(c.Flags(), args)
	if err != nil {
		return err
	}

	res, err := attempt(c.Context(), config)
	if err != nil {
		return err
	}
	if res.Sealed() && config.Verify {
		if err := res.Certificate.Verify(); err != nil {
			return fmt.Errorf("mined certificate failed verification: %w", err)
		}
	}
	return printResult(c.OutOrStdout(), res)
}

func attempt(ctx context.Context, config *Config) (coherence.Result, error) {
	if config.ProfileDir == "" {
		return coherence.RunAttempt(ctx, config.Params, config.Seed)
	}

	p := profiler.New(config.ProfileDir)
	if err := p.StartCPUProfiler(); err != nil {
		return coherence.Result{}, err
	}
	res, err := coherence.RunAttempt(ctx, config.Params, config.Seed)
	if stopErr := p.StopCPUProfiler(); err == nil {
		err = stopErr
	}
	if err != nil {
		return res, err
	}
	return res, p.MemoryProfile()
}

func printResult(w io.Writer, res coherence.Result) error {
	if _, err := fmt.Fprintf(w,
		"seed: %d\nrounds: %d\nsealed: %t\nlast r: %.6f\nedwards-anderson q: %.6f\n",
		res.Seed, res.Rounds, res.Sealed(), res.LastR, res.EdwardsAnderson,
	); err != nil {
		return err
	}
	if !res.Sealed() {
		return nil
	}

	cert := res.Certificate
	r, psi := cert.Last()
	_, err := fmt.Fprintf(w,
		"window: [%d, %d]\nduration: %d\noscillators: %d\ncertificate r: %.6f\ncertificate psi: %.6f\n",
		cert.Start(), cert.End(), cert.Duration(), cert.N(), r, psi,
	)
	return err
}
