// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics exposes chain and mining metrics to prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/coherence/utils/wrappers"
)

var _ Metrics = (*metrics)(nil)

type Metrics interface {
	// MarkAccepted records a block connected to the canonical chain.
	MarkAccepted(height uint64, work float64, numTxs int)
	// MarkReorg records a switch to a heavier branch that disconnected
	// [depth] blocks.
	MarkReorg(depth uint64)
	MarkSideBlock()
	MarkInvalid()
	SetOrphans(n int)
	MarkOrphanEvicted()
	// MarkAttempt records one finished mining attempt.
	MarkAttempt(rounds uint32, sealed bool, lastR float64)
	SetMempoolSize(n int)
}

type metrics struct {
	height        prometheus.Gauge
	work          prometheus.Gauge
	accepted      prometheus.Counter
	acceptedTxs   prometheus.Counter
	reorgs        prometheus.Counter
	reorgDepth    prometheus.Histogram
	sideBlocks    prometheus.Counter
	invalid       prometheus.Counter
	orphans       prometheus.Gauge
	orphanEvicted prometheus.Counter
	attempts      *prometheus.CounterVec
	rounds        prometheus.Histogram
	lastR         prometheus.Gauge
	mempool       prometheus.Gauge
}

func New(namespace string, registerer prometheus.Registerer) (Metrics, error) {
	m := &metrics{
		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "height",
			Help:      "height of the canonical tip",
		}),
		work: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cumulative_work",
			Help:      "cumulative difficulty of the canonical chain",
		}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_accepted",
			Help:      "number of blocks connected to the canonical chain",
		}),
		acceptedTxs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "txs_accepted",
			Help:      "number of transactions in connected blocks, coinbases included",
		}),
		reorgs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reorgs",
			Help:      "number of switches to a heavier branch",
		}),
		reorgDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reorg_depth",
			Help:      "blocks disconnected per reorg",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		sideBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_blocks",
			Help:      "number of valid blocks stored off the canonical chain",
		}),
		invalid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_invalid",
			Help:      "number of blocks rejected",
		}),
		orphans: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orphans",
			Help:      "number of blocks waiting for their parent",
		}),
		orphanEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphans_evicted",
			Help:      "number of orphan blocks dropped from a full pool",
		}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mining_attempts",
			Help:      "number of finished mining attempts",
		}, []string{"result"}),
		rounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mining_rounds",
			Help:      "oscillator rounds run per mining attempt",
			Buckets:   prometheus.ExponentialBuckets(8, 2, 12),
		}),
		lastR: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_order_parameter",
			Help:      "order parameter at the end of the last mining attempt",
		}),
		mempool: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mempool_txs",
			Help:      "number of pending transactions",
		}),
	}

	errs := wrappers.Errs{}
	errs.Add(
		registerer.Register(m.height),
		registerer.Register(m.work),
		registerer.Register(m.accepted),
		registerer.Register(m.acceptedTxs),
		registerer.Register(m.reorgs),
		registerer.Register(m.reorgDepth),
		registerer.Register(m.sideBlocks),
		registerer.Register(m.invalid),
		registerer.Register(m.orphans),
		registerer.Register(m.orphanEvicted),
		registerer.Register(m.attempts),
		registerer.Register(m.rounds),
		registerer.Register(m.lastR),
		registerer.Register(m.mempool),
	)
	return m, errs.Err
}

func (m *metrics) MarkAccepted(height uint64, work float64, numTxs int) {
	m.height.Set(float64(height))
	m.work.Set(work)
	m.accepted.Inc()
	m.acceptedTxs.Add(float64(numTxs))
}

func (m *metrics) MarkReorg(depth uint64) {
	m.reorgs.Inc()
	m.reorgDepth.Observe(float64(depth))
}

func (m *metrics) MarkSideBlock() {
	m.sideBlocks.Inc()
}

func (m *metrics) MarkInvalid() {
	m.invalid.Inc()
}

func (m *metrics) SetOrphans(n int) {
	m.orphans.Set(float64(n))
}

func (m *metrics) MarkOrphanEvicted() {
	m.orphanEvicted.Inc()
}

func (m *metrics) MarkAttempt(rounds uint32, sealed bool, lastR float64) {
	result := "exhausted"
	if sealed {
		result = "sealed"
	}
	m.attempts.WithLabelValues(result).Inc()
	m.rounds.Observe(float64(rounds))
	m.lastR.Set(lastR)
}

func (m *metrics) SetMempoolSize(n int) {
	m.mempool.Set(float64(n))
}
