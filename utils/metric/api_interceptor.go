// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package utilmetric records per-method metrics for JSON-RPC handlers.
package utilmetric

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/rpc/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/coherence/utils/wrappers"
)

// APIInterceptor is registered on a gorilla rpc.Server with
// RegisterInterceptFunc and RegisterAfterFunc.
type APIInterceptor interface {
	InterceptRequest(i *rpc.RequestInfo) *http.Request
	AfterRequest(i *rpc.RequestInfo)
}

type contextKey int

const requestTimestampKey contextKey = iota

type apiInterceptor struct {
	requestDuration *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
}

func NewAPIInterceptor(namespace string, registerer prometheus.Registerer) (APIInterceptor, error) {
	a := &apiInterceptor{
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "time spent handling each type of request",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_errors",
			Help:      "number of requests that returned an error",
		}, []string{"method"}),
	}

	errs := wrappers.Errs{}
	errs.Add(
		registerer.Register(a.requestDuration),
		registerer.Register(a.requestErrors),
	)
	return a, errs.Err
}

func (*apiInterceptor) InterceptRequest(i *rpc.RequestInfo) *http.Request {
	ctx := context.WithValue(i.Request.Context(), requestTimestampKey, time.Now())
	return i.Request.WithContext(ctx)
}

func (a *apiInterceptor) AfterRequest(i *rpc.RequestInfo) {
	timestamp, ok := i.Request.Context().Value(requestTimestampKey).(time.Time)
	if !ok {
		return
	}

	a.requestDuration.WithLabelValues(i.Method).Observe(time.Since(timestamp).Seconds())
	if i.Error != nil {
		a.requestErrors.WithLabelValues(i.Method).Inc()
	}
}
