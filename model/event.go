// Copyright 2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: BSD-2-Clause

package model

// EventType identifies the kind of session event being delivered.
type EventType int

const (
	// EventConnecting fires as soon as a connection attempt has been issued.
	EventConnecting EventType = iota

	// EventConnected fires once the STOMP handshake has completed over the socket.
	EventConnected

	// EventDisconnected fires when the socket has been torn down.
	EventDisconnected

	// EventPayloadReceived fires when an inbound message body decoded into one
	// of the session's candidate types.
	EventPayloadReceived

	// EventErrorReceived fires when the broker reports an ERROR frame.
	EventErrorReceived
)

func (t EventType) String() string {
	switch t {
	case EventConnecting:
		return "connecting"
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventPayloadReceived:
		return "payloadReceived"
	case EventErrorReceived:
		return "errorReceived"
	}
	return "unknown"
}

// Event represents a single session event delivered to the registered handler.
// Payload and Destination are only populated for EventPayloadReceived, Error
// only for EventErrorReceived.
type Event struct {
	Type        EventType
	Payload     interface{}
	Destination string
	Error       string
}

// EventHandlerFunction consumes session events. A session holds exactly one
// handler at a time, setting a new one replaces the previous.
type EventHandlerFunction func(Event)
