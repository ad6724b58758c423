// Copyright 2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: BSD-2-Clause

package stompclient

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	connectionsOpened = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lasso_engine_connections_opened_total",
		Help: "Number of sockets successfully established by the engine.",
	})
	reconnectAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lasso_engine_reconnect_attempts_total",
		Help: "Number of redial cycles entered after a socket drop.",
	})
	framesRead = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lasso_engine_frames_read_total",
		Help: "Number of STOMP frames read from the broker.",
	})
	framesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lasso_engine_frames_written_total",
		Help: "Number of STOMP frames written to the broker.",
	})
	framesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lasso_engine_frames_dropped_total",
		Help: "Number of outbound frames dropped because no connection was ready.",
	})
)

var registerMetricsOnce sync.Once

// registerMetrics registers engine counters on the default registry, exposed
// by whatever /prometheus endpoint the host application sets up.
func registerMetrics() {
	registerMetricsOnce.Do(func() {
		prometheus.MustRegister(connectionsOpened, reconnectAttempts,
			framesRead, framesWritten, framesDropped)
	})
}
