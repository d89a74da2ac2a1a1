// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

var Noop Metrics = noopMetrics{}

type noopMetrics struct{}

func (noopMetrics) MarkAccepted(uint64, float64, int) {}

func (noopMetrics) MarkReorg(uint64) {}

func (noopMetrics) MarkSideBlock() {}

func (noopMetrics) MarkInvalid() {}

func (noopMetrics) SetOrphans(int) {}

func (noopMetrics) MarkOrphanEvicted() {}

func (noopMetrics) MarkAttempt(uint32, bool, float64) {}

func (noopMetrics) SetMempoolSize(int) {}
