// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"context"
	"net"
	"time"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/coherence/api/server"
	"github.com/luxfi/coherence/vms/bloomvm/cmd/node"
)

const (
	chainBase       = "bloom"
	metricsBase     = "metrics"
	shutdownTimeout = 10 * time.Second
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "run",
		Short: "Runs a coherence node, serving the API and mining if enabled",
		RunE:  runFunc,
	}
	node.AddFlags(c.Flags())
	return c
}

func runFunc(c *cobra.Command, args []string) error {
	config, err := node.ParseFlags(c.Flags(), args)
	if err != nil {
		return err
	}

	logger := log.Root()
	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return err
	}

	ctx := c.Context()
	vm, err := node.Open(ctx, config, logger, registry)
	if err != nil {
		return err
	}
	defer func() {
		if err := vm.Shutdown(context.Background()); err != nil {
			logger.Error("failed to close database",
				log.Err(err),
			)
		}
	}()

	listener, err := net.Listen("tcp", config.VM.APIAddress)
	if err != nil {
		return err
	}
	apiServer, err := server.New(
		logger,
		listener,
		config.VM.AllowedOrigins,
		shutdownTimeout,
		config.VM.APIMaxConnections,
		registry,
		server.DefaultHTTPConfig(),
	)
	if err != nil {
		_ = listener.Close()
		return err
	}

	handlers, err := vm.CreateHandlers(ctx)
	if err != nil {
		return err
	}
	for endpoint, handler := range handlers {
		if err := apiServer.AddRoute(handler, chainBase, endpoint); err != nil {
			return err
		}
	}
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	if err := apiServer.AddRoute(metricsHandler, metricsBase, ""); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(apiServer.Dispatch)
	g.Go(func() error {
		<-gctx.Done()
		return apiServer.Shutdown()
	})
	if config.VM.MiningEnabled {
		g.Go(func() error {
			return vm.Run(gctx)
		})
	}
	return g.Wait()
}
