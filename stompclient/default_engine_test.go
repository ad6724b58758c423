// Copyright 2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: BSD-2-Clause

package stompclient

import (
	"testing"
	"time"

	"github.com/pb33f/lasso/brokertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 10 * time.Second

type receivedMessage struct {
	body        interface{}
	messageId   string
	destination string
	headers     map[string]string
}

// recordingListener pushes every callback onto buffered channels so tests can
// wait on them without blocking the engine goroutine.
type recordingListener struct {
	socketConnected      chan struct{}
	protocolConnected    chan struct{}
	socketDisconnected   chan struct{}
	protocolDisconnected chan struct{}
	messages             chan receivedMessage
	errors               chan string
	receipts             chan string
	socketEvents         chan string
}

func newRecordingListener() *recordingListener {
	return &recordingListener{
		socketConnected:      make(chan struct{}, 16),
		protocolConnected:    make(chan struct{}, 16),
		socketDisconnected:   make(chan struct{}, 16),
		protocolDisconnected: make(chan struct{}, 16),
		messages:             make(chan receivedMessage, 16),
		errors:               make(chan string, 16),
		receipts:             make(chan string, 16),
		socketEvents:         make(chan string, 16),
	}
}

func (l *recordingListener) OnSocketConnected()      { l.socketConnected <- struct{}{} }
func (l *recordingListener) OnProtocolConnected()    { l.protocolConnected <- struct{}{} }
func (l *recordingListener) OnSocketDisconnected()   { l.socketDisconnected <- struct{}{} }
func (l *recordingListener) OnProtocolDisconnected() { l.protocolDisconnected <- struct{}{} }

func (l *recordingListener) OnMessage(body interface{}, messageId string, destination string, headers map[string]string) {
	l.messages <- receivedMessage{body: body, messageId: messageId, destination: destination, headers: headers}
}

func (l *recordingListener) OnError(brief string, full string, receiptId string, errorType string) {
	l.errors <- brief
}

func (l *recordingListener) OnReceipt(receiptId string) { l.receipts <- receiptId }

func (l *recordingListener) OnSocketEvent(name string, description string) {
	l.socketEvents <- name
}

func waitSignal(t *testing.T, ch chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(testTimeout):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func connectedEngine(t *testing.T) (Engine, *recordingListener) {
	t.Helper()
	broker, err := brokertest.New()
	require.NoError(t, err)
	t.Cleanup(broker.Close)

	listener := newRecordingListener()
	engine := NewEngine(EngineConfig{Endpoint: broker.Endpoint()})
	engine.SetListener(listener)
	engine.Connect(5*time.Second, false)

	waitSignal(t, listener.socketConnected, "socket connect")
	waitSignal(t, listener.protocolConnected, "protocol connect")
	return engine, listener
}

func TestEngineConnectHandshake(t *testing.T) {
	engine, _ := connectedEngine(t)
	engine.Disconnect(true)
}

func TestEngineSubscribeSendEcho(t *testing.T) {
	engine, listener := connectedEngine(t)
	defer engine.Disconnect(true)

	engine.Subscribe("/topic/echo")
	engine.Send([]byte(`{"kind":"ping"}`), "/topic/echo")

	select {
	case msg := <-listener.messages:
		assert.Equal(t, "/topic/echo", msg.destination)
		assert.Equal(t, []byte(`{"kind":"ping"}`), msg.body)
		assert.NotEmpty(t, msg.messageId)
		assert.NotEmpty(t, msg.headers["subscription"])
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for echoed message")
	}
}

func TestEngineDuplicateSubscribeIsIdempotent(t *testing.T) {
	engine, listener := connectedEngine(t)
	defer engine.Disconnect(true)

	engine.Subscribe("/topic/echo")
	engine.Subscribe("/topic/echo")
	engine.Send([]byte(`{"kind":"ping"}`), "/topic/echo")

	select {
	case <-listener.messages:
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for echoed message")
	}

	// a second subscription would have doubled the echo
	select {
	case msg := <-listener.messages:
		t.Fatalf("unexpected duplicate delivery: %+v", msg)
	case <-time.After(250 * time.Millisecond):
	}
}

func TestEngineUnsubscribeStopsDelivery(t *testing.T) {
	engine, listener := connectedEngine(t)
	defer engine.Disconnect(true)

	engine.Subscribe("/topic/echo")
	engine.Send([]byte(`{"kind":"ping"}`), "/topic/echo")
	select {
	case <-listener.messages:
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for first echo")
	}

	engine.Unsubscribe("/topic/echo")
	engine.Send([]byte(`{"kind":"ping"}`), "/topic/echo")

	select {
	case msg := <-listener.messages:
		t.Fatalf("message delivered after unsubscribe: %+v", msg)
	case <-time.After(250 * time.Millisecond):
	}
}

func TestEngineGracefulDisconnect(t *testing.T) {
	engine, listener := connectedEngine(t)

	engine.Disconnect(false)

	waitSignal(t, listener.socketDisconnected, "socket disconnect")
	select {
	case id := <-listener.receipts:
		assert.NotEmpty(t, id)
	default:
		// the socket may close before the receipt callback is observed,
		// the terminal disconnect is what matters
	}
}

func TestEngineForceDisconnect(t *testing.T) {
	engine, listener := connectedEngine(t)

	engine.Disconnect(true)

	waitSignal(t, listener.socketDisconnected, "socket disconnect")
}

func TestEngineDialFailureWithoutReconnect(t *testing.T) {
	listener := newRecordingListener()
	engine := NewEngine(EngineConfig{Endpoint: "ws://127.0.0.1:1/ranch"})
	engine.SetListener(listener)
	engine.Connect(time.Second, false)

	select {
	case name := <-listener.socketEvents:
		assert.Equal(t, "dial-failed", name)
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for dial failure event")
	}
	waitSignal(t, listener.socketDisconnected, "terminal disconnect")
}

func TestEngineDisconnectDuringDial(t *testing.T) {
	broker, err := brokertest.NewWithUpgradeDelay(500 * time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(broker.Close)

	listener := newRecordingListener()
	engine := NewEngine(EngineConfig{Endpoint: broker.Endpoint()})
	engine.SetListener(listener)
	engine.Connect(5*time.Second, false)

	// disconnect while the broker is still holding the upgrade, the socket
	// produced by the in-flight dial must be torn down rather than left open
	time.Sleep(100 * time.Millisecond)
	engine.Disconnect(true)

	waitSignal(t, listener.socketDisconnected, "terminal disconnect")
	select {
	case <-listener.protocolConnected:
		t.Fatal("handshake completed after disconnect")
	case <-time.After(time.Second):
	}
}

func TestDialEndpointRejectsUnknownScheme(t *testing.T) {
	_, err := dialEndpoint("http://localhost:8090", nil, time.Second)
	assert.ErrorIs(t, err, unsupportedEndpointSchemeError)
}

func TestCapDelay(t *testing.T) {
	assert.Equal(t, time.Second, capDelay(time.Second, time.Minute))
	assert.Equal(t, time.Minute, capDelay(2*time.Minute, time.Minute))
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "broker.pb33f.io", hostOf("wss://broker.pb33f.io:443/ranch"))
	assert.Equal(t, "127.0.0.1", hostOf("tcp://127.0.0.1:61613"))
}
