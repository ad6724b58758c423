// Copyright 2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: BSD-2-Clause

package stompclient

import (
	"time"
)

// EngineListener receives the raw callbacks produced by an Engine. Callbacks
// are delivered serially from a single engine goroutine, implementations do
// not need their own locking as long as they stay on that goroutine.
type EngineListener interface {
	// OnSocketConnected fires when the underlying socket is established,
	// before any STOMP handshake has taken place.
	OnSocketConnected()

	// OnProtocolConnected fires when the broker has acknowledged the STOMP
	// handshake (CONNECTED frame).
	OnProtocolConnected()

	// OnSocketDisconnected fires exactly once per connect command, when the
	// engine has given up on the socket for good. This is the terminal event.
	OnSocketDisconnected()

	// OnProtocolDisconnected fires when the protocol layer dropped while the
	// socket stayed up. If auto-reconnect is enabled the engine will
	// re-establish the protocol layer on its own.
	OnProtocolDisconnected()

	// OnMessage delivers an inbound MESSAGE frame. The body is either a
	// string or a []byte depending on the transport.
	OnMessage(body interface{}, messageId string, destination string, headers map[string]string)

	// OnError delivers an inbound ERROR frame.
	OnError(brief string, full string, receiptId string, errorType string)

	// OnReceipt delivers an inbound RECEIPT frame.
	OnReceipt(receiptId string)

	// OnSocketEvent reports transport-level conditions that are neither
	// frames nor connection state changes (e.g. a failed dial attempt).
	OnSocketEvent(name string, description string)
}

// Engine is the boundary to the STOMP wire machinery: framing, transport and
// reconnection policy all live behind it. Commands are fire-and-forget,
// results surface asynchronously through the registered EngineListener.
type Engine interface {
	// SetListener registers the callback target. A nil listener detaches the
	// previous one, subsequent callbacks are discarded.
	SetListener(l EngineListener)

	// Connect starts the connection attempt. While autoReconnect is enabled
	// the engine redials dropped sockets and re-runs the handshake on its
	// own, only firing OnSocketDisconnected once it stops trying.
	Connect(timeout time.Duration, autoReconnect bool)

	// Disconnect tears the connection down. A forced disconnect closes the
	// socket immediately, a graceful one performs the STOMP DISCONNECT
	// receipt exchange first.
	Disconnect(force bool)

	// SetAutoReconnect flips the reconnection policy at runtime.
	SetAutoReconnect(enabled bool)

	// EnableAutoPing starts periodic heart-beat frames on the live
	// connection at the given interval.
	EnableAutoPing(interval time.Duration)

	// Subscribe opens a subscription to a destination. Subscription
	// bookkeeping (ids, re-subscription after reconnect) is the engine's
	// responsibility.
	Subscribe(destination string)

	// Unsubscribe closes a previously opened subscription.
	Unsubscribe(destination string)

	// Send transmits an already encoded body to a destination.
	Send(body []byte, destination string)
}
