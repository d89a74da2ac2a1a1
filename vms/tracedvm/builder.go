// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package tracedvm wraps chain components with OpenTelemetry spans.
package tracedvm

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/luxfi/coherence/vms/bloomvm/block"

	oteltrace "go.opentelemetry.io/otel/trace"
)

// BlockBuilder mines a block on the current tip.
type BlockBuilder interface {
	Build(ctx context.Context) (*block.Block, bool, error)
}

// BlockAdder inserts a block into the block tree.
type BlockAdder interface {
	AddBlock(blk *block.Block) error
}

var (
	_ BlockBuilder = (*tracedBuilder)(nil)
	_ BlockAdder   = (*tracedAdder)(nil)
)

type tracedBuilder struct {
	builder BlockBuilder
	tracer  oteltrace.Tracer
}

func NewBuilder(builder BlockBuilder, tracer oteltrace.Tracer) BlockBuilder {
	return &tracedBuilder{
		builder: builder,
		tracer:  tracer,
	}
}

func (b *tracedBuilder) Build(ctx context.Context) (*block.Block, bool, error) {
	ctx, span := b.tracer.Start(ctx, "tracedBuilder.Build")
	defer span.End()

	blk, sealed, err := b.builder.Build(ctx)
	span.SetAttributes(attribute.Bool("sealed", sealed))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if sealed {
		span.SetAttributes(
			attribute.Stringer("blkID", blk.ID()),
			attribute.Int("numTxs", len(blk.Txs())),
		)
	}
	return blk, sealed, nil
}

type tracedAdder struct {
	adder  BlockAdder
	tracer oteltrace.Tracer
}

func NewAdder(adder BlockAdder, tracer oteltrace.Tracer) BlockAdder {
	return &tracedAdder{
		adder:  adder,
		tracer: tracer,
	}
}

func (a *tracedAdder) AddBlock(blk *block.Block) error {
	_, span := a.tracer.Start(context.Background(), "tracedAdder.AddBlock", oteltrace.WithAttributes(
		attribute.Stringer("blkID", blk.ID()),
		attribute.Stringer("parentID", blk.Parent()),
	))
	defer span.End()

	err := a.adder.AddBlock(blk)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
