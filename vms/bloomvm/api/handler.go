// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"net/http"

	"github.com/gorilla/rpc/v2"
	"github.com/luxfi/utils/json"

	utilmetric "github.com/luxfi/coherence/utils/metric"
)

// ServiceName prefixes every JSON-RPC method, as in "coherence.getHeight".
const ServiceName = "coherence"

// NewHandler returns a JSON-RPC 2.0 handler for [service]. Method names are
// lowerCamelCase on the wire. [interceptor] may be nil.
func NewHandler(service *Service, interceptor utilmetric.APIInterceptor) (http.Handler, error) {
	server := rpc.NewServer()
	codec := json.NewCodec()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	if interceptor != nil {
		server.RegisterInterceptFunc(interceptor.InterceptRequest)
		server.RegisterAfterFunc(interceptor.AfterRequest)
	}
	return server, server.RegisterService(service, ServiceName)
}
