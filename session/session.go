// Copyright 2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: BSD-2-Clause

package session

import (
	"log/slog"
	"sync/atomic"

	"github.com/gobwas/glob"
	"github.com/pb33f/lasso/model"
	"github.com/pb33f/lasso/stompclient"
)

const (
	disconnected int32 = iota
	connecting
	socketOpen
	connected
)

// Session is a client-side STOMP session over a persistent socket. It owns
// the connection state, gates public operations on it and translates engine
// callbacks into the model.Event vocabulary delivered to the registered
// handler.
//
// All public operations are fire-and-forget commands to the engine, results
// surface later as events. Operations and engine callbacks are expected on a
// single goroutine, the session keeps no lock of its own beyond the atomic
// state word.
type Session struct {
	engine     stompclient.Engine
	config     Config
	state      int32
	handler    model.EventHandlerFunction
	candidates []model.Candidate
	scoped     []scopedCandidates
	decoder    model.Decoder
	logger     *slog.Logger
}

type scopedCandidates struct {
	pattern    glob.Glob
	candidates []model.Candidate
}

// New creates a Session bound to the supplied engine. Zero-value config
// fields are replaced with defaults.
func New(engine stompclient.Engine, config Config) *Session {
	config.applyDefaults()
	return &Session{
		engine:     engine,
		config:     config,
		handler:    config.Handler,
		candidates: config.Candidates,
		decoder:    config.Decoder,
		logger:     config.Logger,
	}
}

// IsConnecting reports whether a connection attempt is in flight, including
// the window where the socket is up but the handshake has not completed.
func (s *Session) IsConnecting() bool {
	st := atomic.LoadInt32(&s.state)
	return st == connecting || st == socketOpen
}

// IsConnectedViaSTOMP reports whether both the socket and the STOMP handshake
// have completed.
func (s *Session) IsConnectedViaSTOMP() bool {
	return atomic.LoadInt32(&s.state) == connected
}

// Connect starts a connection attempt. Calling it while an attempt is
// already in flight is a no-op, calling it while fully connected returns
// ErrAlreadyConnected.
func (s *Session) Connect() error {
	switch atomic.LoadInt32(&s.state) {
	case connecting, socketOpen:
		return nil
	case connected:
		return ErrAlreadyConnected
	}

	s.engine.SetListener(s)
	s.engine.Connect(s.config.ConnectTimeout, true)
	atomic.StoreInt32(&s.state, connecting)
	s.emit(model.Event{Type: model.EventConnecting})
	return nil
}

// Disconnect tears the session down. A forced disconnect bypasses the
// graceful protocol shutdown and emits the disconnected event synchronously,
// a graceful one defers the event until the engine reports the socket closed.
func (s *Session) Disconnect(force bool) {
	s.engine.SetAutoReconnect(false)
	s.engine.Disconnect(force)

	if force {
		s.engine.SetListener(nil)
		atomic.StoreInt32(&s.state, disconnected)
		s.emit(model.Event{Type: model.EventDisconnected})
	}
}

// Subscribe opens a subscription to a destination. The engine owns all
// subscription bookkeeping, the session only performs admission control.
func (s *Session) Subscribe(destination string) error {
	if !s.IsConnectedViaSTOMP() {
		return ErrNotConnected
	}
	s.engine.Subscribe(destination)
	return nil
}

// Unsubscribe closes a subscription to a destination.
func (s *Session) Unsubscribe(destination string) error {
	if !s.IsConnectedViaSTOMP() {
		return ErrNotConnected
	}
	s.engine.Unsubscribe(destination)
	return nil
}

// Send encodes payload with the configured decoder and forwards it to the
// engine for transmission.
func (s *Session) Send(payload interface{}, destination string) error {
	if !s.IsConnectedViaSTOMP() {
		return ErrNotConnected
	}
	body, err := s.decoder.Encode(payload)
	if err != nil {
		return err
	}
	s.engine.Send(body, destination)
	return nil
}

// SetHandler replaces the event handler. Exactly one handler is held at a
// time, a nil handler restores the no-op.
func (s *Session) SetHandler(handler model.EventHandlerFunction) {
	if handler == nil {
		handler = func(model.Event) {}
	}
	s.handler = handler
}

// AddDestinationCandidates scopes a candidate list to destinations matching a
// glob pattern. On receipt the first matching pattern supplies the candidate
// list, destinations matching no pattern fall back to the construction-time
// list. Patterns are checked in registration order.
func (s *Session) AddDestinationCandidates(pattern string, candidates ...model.Candidate) error {
	g, err := glob.Compile(pattern)
	if err != nil {
		return err
	}
	s.scoped = append(s.scoped, scopedCandidates{pattern: g, candidates: candidates})
	return nil
}

// OnSocketConnected records that the socket is up. Not yet a protocol-level
// connect, so no event fires.
func (s *Session) OnSocketConnected() {
	atomic.StoreInt32(&s.state, socketOpen)
}

// OnProtocolConnected marks the session fully connected, enables keep-alive
// pings and emits the connected event.
func (s *Session) OnProtocolConnected() {
	s.engine.EnableAutoPing(s.config.PingInterval)
	atomic.StoreInt32(&s.state, connected)
	s.emit(model.Event{Type: model.EventConnected})
}

// OnSocketDisconnected is the terminal event for this connection: it emits
// disconnected and clears the listener registration so the session can be
// released.
func (s *Session) OnSocketDisconnected() {
	s.emit(model.Event{Type: model.EventDisconnected})
	s.engine.SetListener(nil)
	atomic.StoreInt32(&s.state, disconnected)
}

// OnProtocolDisconnected is deliberately event-free: the socket is still up
// and the engine re-establishes the protocol layer on its own while
// auto-reconnect is enabled.
func (s *Session) OnProtocolDisconnected() {
	s.logger.Debug("protocol layer dropped, awaiting engine recovery")
}

// OnMessage resolves the raw body to bytes and attempts each candidate in
// order, emitting payloadReceived for the first success. Messages that match
// no candidate are expected traffic outside this session's configured set and
// are dropped without an event.
func (s *Session) OnMessage(body interface{}, messageId string, destination string, headers map[string]string) {
	data, ok := bodyBytes(body)
	if !ok {
		return
	}
	for _, c := range s.candidatesFor(destination) {
		if value, decoded := c.TryDecode(data); decoded {
			s.emit(model.Event{
				Type:        model.EventPayloadReceived,
				Payload:     value,
				Destination: destination,
			})
			return
		}
	}
}

// OnError surfaces the brief description only, extended detail and receipt
// metadata are not part of the public event vocabulary.
func (s *Session) OnError(brief string, full string, receiptId string, errorType string) {
	s.emit(model.Event{Type: model.EventErrorReceived, Error: brief})
}

func (s *Session) OnReceipt(receiptId string) {}

func (s *Session) OnSocketEvent(name string, description string) {}

func (s *Session) candidatesFor(destination string) []model.Candidate {
	for _, sc := range s.scoped {
		if sc.pattern.Match(destination) {
			return sc.candidates
		}
	}
	return s.candidates
}

func (s *Session) emit(event model.Event) {
	s.handler(event)
}

func bodyBytes(body interface{}) ([]byte, bool) {
	switch b := body.(type) {
	case []byte:
		return b, true
	case string:
		return []byte(b), true
	}
	return nil, false
}
