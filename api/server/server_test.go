// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (Server, string) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s, err := New(
		log.NewNoOpLogger(),
		listener,
		[]string{"http://example.com"},
		time.Second,
		4,
		prometheus.NewRegistry(),
		DefaultHTTPConfig(),
	)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- s.Dispatch()
	}()
	t.Cleanup(func() {
		require.NoError(t, s.Shutdown())
		require.NoError(t, <-done)
	})
	return s, "http://" + listener.Addr().String()
}

func TestServerRoutes(t *testing.T) {
	require := require.New(t)

	s, url := newTestServer(t)
	require.NoError(s.AddRoute(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("coherent"))
	}), "bloom", ""))

	resp, err := http.Get(url + "/ext/bloom")
	require.NoError(err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(err)
	require.NoError(resp.Body.Close())
	require.Equal(http.StatusOK, resp.StatusCode)
	require.Equal("coherent", string(body))

	resp, err = http.Get(url + "/ext/missing")
	require.NoError(err)
	require.NoError(resp.Body.Close())
	require.Equal(http.StatusNotFound, resp.StatusCode)
}

func TestServerDuplicateRoute(t *testing.T) {
	s, _ := newTestServer(t)

	handler := http.NotFoundHandler()
	require.NoError(t, s.AddRoute(handler, "bloom", "/rpc"))
	err := s.AddRoute(handler, "bloom", "/rpc")
	require.ErrorIs(t, err, errAlreadyRouted)
}

func TestServerCORS(t *testing.T) {
	require := require.New(t)

	s, url := newTestServer(t)
	require.NoError(s.AddRoute(http.NotFoundHandler(), "bloom", ""))

	req, err := http.NewRequest(http.MethodGet, url+"/ext/bloom", nil)
	require.NoError(err)
	req.Header.Set("Origin", "http://example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(err)
	require.NoError(resp.Body.Close())
	require.Equal("http://example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}
