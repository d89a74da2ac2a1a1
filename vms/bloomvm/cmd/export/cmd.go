// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package export

import (
	"context"
	"errors"

	"github.com/google/renameio/v2"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/luxfi/coherence/vms/bloomvm/archive"
	"github.com/luxfi/coherence/vms/bloomvm/cmd/node"
)

const OutputKey = "output"

var errMissingOutput = errors.New("--output is required")

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "export",
		Short: "Writes the canonical chain to a file",
		RunE:  exportFunc,
	}
	flags := c.Flags()
	node.AddFlags(flags)
	flags.String(OutputKey, "", "File the chain is written to; replaced atomically (required)")
	return c
}

func exportFunc(c *cobra.Command, args []string) error {
	flags := c.Flags()
	config, err := node.ParseFlags(flags, args)
	if err != nil {
		return err
	}
	output, err := flags.GetString(OutputKey)
	if err != nil {
		return err
	}
	if output == "" {
		return errMissingOutput
	}

	logger := log.Root()
	vm, err := node.Open(c.Context(), config, logger, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer func() {
		_ = vm.Shutdown(context.Background())
	}()

	return Export(output, vm.Chain(), logger)
}

// Export writes [chain] to [path], replacing any existing file only once
// every block is written.
func Export(path string, chain archive.Chain, logger log.Logger) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return err
	}
	defer func() {
		_ = pending.Cleanup()
	}()

	numBlocks, err := archive.Export(pending, chain)
	if err != nil {
		return err
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return err
	}

	logger.Info("exported chain",
		log.String("path", path),
		log.Uint64("numBlocks", numBlocks),
	)
	return nil
}
