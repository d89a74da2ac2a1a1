// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package importer

import (
	"context"
	"errors"
	"os"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/luxfi/coherence/vms/bloomvm/archive"
	"github.com/luxfi/coherence/vms/bloomvm/block"
	"github.com/luxfi/coherence/vms/bloomvm/chain"
	"github.com/luxfi/coherence/vms/bloomvm/cmd/node"
)

const InputKey = "input"

var errMissingInput = errors.New("--input is required")

// BlockAdder accepts imported blocks.
type BlockAdder interface {
	AddBlock(blk *block.Block) error
}

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "import",
		Short: "Adds the blocks of an exported chain file to the local chain",
		RunE:  importFunc,
	}
	flags := c.Flags()
	node.AddFlags(flags)
	flags.String(InputKey, "", "File written by export (required)")
	return c
}

func importFunc(c *cobra.Command, args []string) error {
	flags := c.Flags()
	config, err := node.ParseFlags(flags, args)
	if err != nil {
		return err
	}
	input, err := flags.GetString(InputKey)
	if err != nil {
		return err
	}
	if input == "" {
		return errMissingInput
	}

	logger := log.Root()
	vm, err := node.Open(c.Context(), config, logger, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer func() {
		_ = vm.Shutdown(context.Background())
	}()

	return Import(input, vm, logger)
}

// Import adds every block in the file at [path] to [adder]. Blocks that are
// already known are skipped.
func Import(path string, adder BlockAdder, logger log.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var known uint64
	numBlocks, err := archive.Import(f, func(blk *block.Block) error {
		err := adder.AddBlock(blk)
		if errors.Is(err, chain.ErrDuplicateBlock) {
			known++
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}

	logger.Info("imported chain",
		log.String("path", path),
		log.Uint64("numBlocks", numBlocks),
		log.Uint64("known", known),
	)
	return nil
}
