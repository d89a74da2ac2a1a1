// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/luxfi/coherence/vms/bloomvm/cmd/export"
	"github.com/luxfi/coherence/vms/bloomvm/cmd/importer"
	"github.com/luxfi/coherence/vms/bloomvm/cmd/mine"
	"github.com/luxfi/coherence/vms/bloomvm/cmd/run"
)

func main() {
	cmd := &cobra.Command{
		Use:          "bloomd",
		Short:        "Proof-of-coherence chain node",
		SilenceUsage: true,
	}
	cmd.AddCommand(
		run.Command(),
		mine.Command(),
		export.Command(),
		importer.Command(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "command failed %v\n", err)
		os.Exit(1)
	}
}
