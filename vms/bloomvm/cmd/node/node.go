// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package node opens a persistent coherence VM for the bloomd commands.
package node

import (
	"context"
	"fmt"

	"github.com/luxfi/database/badgerdb"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/coherence/vms/bloomvm"
)

// Open initializes a VM over the database in [c.DataDir]. The caller must
// call Shutdown on the result.
func Open(ctx context.Context, c *Config, logger log.Logger, registerer prometheus.Registerer) (*bloomvm.VM, error) {
	db, err := badgerdb.New(
		c.DataDir,
		nil, // configBytes - use default
		"",  // namespace
		nil, // metrics
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database in %q: %w", c.DataDir, err)
	}

	configBytes, err := c.ConfigBytes()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	vm := &bloomvm.VM{}
	if err := vm.Initialize(ctx, logger, db, c.GenesisBytes, configBytes, registerer); err != nil {
		_ = db.Close()
		return nil, err
	}
	return vm, nil
}
