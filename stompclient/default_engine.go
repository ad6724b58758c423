// Copyright 2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: BSD-2-Clause

package stompclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	defaultReconnectBaseDelay = 1 * time.Second
	defaultReconnectMaxDelay  = 30 * time.Second
	defaultHeartBeatMs        = 10000
	disconnectGracePeriod     = 3 * time.Second
	outFrameQueueSize         = 32
)

// EngineConfig configures the default engine implementation.
type EngineConfig struct {
	// Endpoint is the broker address, ws://, wss:// or tcp://.
	Endpoint string

	// ConnectHeaders are added to the CONNECT frame (login, passcode, etc).
	ConnectHeaders map[string]string

	// HeartBeatMs is the heart-beat value offered during the handshake in
	// milliseconds. Zero applies the default of 10000.
	HeartBeatMs int64

	// ReconnectBaseDelay and ReconnectMaxDelay bound the exponential backoff
	// applied between redial attempts.
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration

	// SendRate throttles outbound SEND frames when greater than zero.
	// SendBurst defaults to 1 when a rate is set.
	SendRate  rate.Limit
	SendBurst int

	Logger *slog.Logger
}

type defaultEngine struct {
	config  EngineConfig
	logger  *slog.Logger
	limiter *rate.Limiter

	mu                sync.Mutex
	listener          EngineListener
	conn              RawConnection
	ready             bool              // protocol handshake completed on conn
	subscriptions     map[string]string // destination -> subscription id
	disconnectReceipt string

	outFrames     chan *frame.Frame
	running       atomic.Bool
	stopping      atomic.Bool
	autoReconnect atomic.Bool
}

// NewEngine builds the default Engine over a websocket (or plain tcp)
// transport using the go-stomp frame codec.
func NewEngine(config EngineConfig) Engine {
	registerMetrics()

	if config.ReconnectBaseDelay <= 0 {
		config.ReconnectBaseDelay = defaultReconnectBaseDelay
	}
	if config.ReconnectMaxDelay <= 0 {
		config.ReconnectMaxDelay = defaultReconnectMaxDelay
	}
	if config.HeartBeatMs <= 0 {
		config.HeartBeatMs = defaultHeartBeatMs
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	e := &defaultEngine{
		config:        config,
		logger:        config.Logger,
		subscriptions: make(map[string]string),
		outFrames:     make(chan *frame.Frame, outFrameQueueSize),
	}
	if config.SendRate > 0 {
		burst := config.SendBurst
		if burst <= 0 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(config.SendRate, burst)
	}
	return e
}

func (e *defaultEngine) SetListener(l EngineListener) {
	e.mu.Lock()
	e.listener = l
	e.mu.Unlock()
}

func (e *defaultEngine) SetAutoReconnect(enabled bool) {
	e.autoReconnect.Store(enabled)
}

func (e *defaultEngine) Connect(timeout time.Duration, autoReconnect bool) {
	e.autoReconnect.Store(autoReconnect)
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	e.stopping.Store(false)
	go e.connectLoop(timeout)
}

func (e *defaultEngine) Disconnect(force bool) {
	e.autoReconnect.Store(false)
	e.stopping.Store(true)

	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()
	if conn == nil {
		return
	}

	if force {
		conn.Close()
		return
	}

	receipt := uuid.New().String()
	e.mu.Lock()
	e.disconnectReceipt = receipt
	e.mu.Unlock()

	if err := conn.WriteFrame(frame.New(frame.DISCONNECT, frame.Receipt, receipt)); err != nil {
		conn.Close()
		return
	}

	// close the socket ourselves if the broker never answers the receipt
	time.AfterFunc(disconnectGracePeriod, func() {
		e.mu.Lock()
		current := e.conn
		e.mu.Unlock()
		if current == conn {
			conn.Close()
		}
	})
}

func (e *defaultEngine) EnableAutoPing(interval time.Duration) {
	if interval <= 0 {
		return
	}
	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()
	if conn == nil {
		return
	}
	go e.pingLoop(conn, interval)
}

func (e *defaultEngine) Subscribe(destination string) {
	e.mu.Lock()
	id, exists := e.subscriptions[destination]
	if !exists {
		id = uuid.New().String()
		e.subscriptions[destination] = id
	}
	e.mu.Unlock()
	if exists {
		return
	}
	e.enqueue(frame.New(frame.SUBSCRIBE,
		frame.Id, id,
		frame.Destination, destination,
		frame.Ack, "auto"))
}

func (e *defaultEngine) Unsubscribe(destination string) {
	e.mu.Lock()
	id, exists := e.subscriptions[destination]
	delete(e.subscriptions, destination)
	e.mu.Unlock()
	if !exists {
		return
	}
	e.enqueue(frame.New(frame.UNSUBSCRIBE, frame.Id, id))
}

func (e *defaultEngine) Send(body []byte, destination string) {
	f := frame.New(frame.SEND,
		frame.Destination, destination,
		frame.ContentType, "application/json")
	f.Body = body
	e.enqueue(f)
}

// enqueue hands a frame to the writer without ever blocking the caller.
func (e *defaultEngine) enqueue(f *frame.Frame) {
	select {
	case e.outFrames <- f:
	default:
		framesDropped.Inc()
		e.logger.Warn("outbound frame dropped, queue full", "command", f.Command)
	}
}

func (e *defaultEngine) notify(fn func(l EngineListener)) {
	e.mu.Lock()
	l := e.listener
	e.mu.Unlock()
	if l != nil {
		fn(l)
	}
}

func (e *defaultEngine) connectLoop(timeout time.Duration) {
	done := make(chan struct{})
	defer close(done)
	go e.writeLoop(done)

	delay := e.config.ReconnectBaseDelay

	for {
		if e.stopping.Load() {
			break
		}

		conn, err := dialEndpoint(e.config.Endpoint, e.dialHeaders(), timeout)
		if err != nil {
			e.logger.Warn("dial failed", "endpoint", e.config.Endpoint, "error", err.Error())
			e.notify(func(l EngineListener) {
				l.OnSocketEvent("dial-failed", err.Error())
			})
			if !e.autoReconnect.Load() {
				break
			}
			time.Sleep(delay)
			delay = capDelay(delay*2, e.config.ReconnectMaxDelay)
			continue
		}

		// publish the conn before re-checking stopping: Disconnect either
		// sees the conn and closes it, or stores stopping first and we
		// close it here. A disconnect racing the dial must not leave a
		// live socket behind.
		e.setConn(conn)
		if e.stopping.Load() {
			conn.Close()
			e.clearConn(conn)
			break
		}

		delay = e.config.ReconnectBaseDelay
		connectionsOpened.Inc()
		e.notify(func(l EngineListener) {
			l.OnSocketConnected()
		})

		e.readFrames(conn, timeout)
		e.clearConn(conn)

		if e.stopping.Load() || !e.autoReconnect.Load() {
			break
		}
		reconnectAttempts.Inc()
		time.Sleep(delay)
		delay = capDelay(delay*2, e.config.ReconnectMaxDelay)
	}

	e.running.Store(false)
	e.notify(func(l EngineListener) {
		l.OnSocketDisconnected()
	})
}

// readFrames drives a single socket from handshake to teardown. It returns
// once the socket is no longer usable.
func (e *defaultEngine) readFrames(conn RawConnection, timeout time.Duration) {
	defer conn.Close()

	connect := e.connectFrame()
	if err := conn.WriteFrame(connect); err != nil {
		return
	}
	framesWritten.Inc()

	ready := false
	infiniteTimeout := time.Time{}
	for {
		// apply the connect timeout until the handshake completes
		if ready {
			conn.SetReadDeadline(infiniteTimeout)
		} else {
			conn.SetReadDeadline(time.Now().Add(timeout))
		}

		f, err := conn.ReadFrame()
		if err != nil {
			return
		}
		if f == nil {
			// heart-beat
			continue
		}
		framesRead.Inc()

		switch f.Command {

		case frame.CONNECTED:
			ready = true
			e.setReady(conn, true)
			e.notify(func(l EngineListener) {
				l.OnProtocolConnected()
			})
			e.resubscribe()

		case frame.MESSAGE:
			e.notify(func(l EngineListener) {
				l.OnMessage(f.Body,
					f.Header.Get(frame.MessageId),
					f.Header.Get(frame.Destination),
					headerMap(f))
			})

		case frame.RECEIPT:
			id := f.Header.Get(frame.ReceiptId)
			e.notify(func(l EngineListener) {
				l.OnReceipt(id)
			})
			if e.isDisconnectReceipt(id) {
				return
			}

		case frame.ERROR:
			brief := f.Header.Get(frame.Message)
			e.notify(func(l EngineListener) {
				l.OnError(brief, string(f.Body),
					f.Header.Get(frame.ReceiptId),
					f.Header.Get(frame.ContentType))
			})
			if ready {
				ready = false
				e.setReady(conn, false)
				e.notify(func(l EngineListener) {
					l.OnProtocolDisconnected()
				})
				if e.autoReconnect.Load() {
					// re-establish the protocol layer over the live socket
					if err = conn.WriteFrame(connect); err != nil {
						return
					}
					framesWritten.Inc()
				}
			}
		}
	}
}

// writeLoop is the single writer for queued frames, it runs for one connect
// cycle and drops frames when no protocol session is established.
func (e *defaultEngine) writeLoop(done chan struct{}) {
	for {
		var f *frame.Frame
		select {
		case <-done:
			return
		case f = <-e.outFrames:
		}

		if f.Command == frame.SEND && e.limiter != nil {
			_ = e.limiter.Wait(context.Background())
		}

		e.mu.Lock()
		conn, ready := e.conn, e.ready
		e.mu.Unlock()
		if conn == nil || !ready {
			framesDropped.Inc()
			e.logger.Debug("outbound frame dropped, protocol not established", "command", f.Command)
			continue
		}

		if err := conn.WriteFrame(f); err != nil {
			e.logger.Debug("outbound frame write failed", "error", err.Error())
			continue
		}
		framesWritten.Inc()
	}
}

func (e *defaultEngine) pingLoop(conn RawConnection, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		e.mu.Lock()
		current := e.conn
		e.mu.Unlock()
		if current != conn {
			return
		}
		if err := conn.WriteFrame(nil); err != nil {
			return
		}
		framesWritten.Inc()
	}
}

func (e *defaultEngine) connectFrame() *frame.Frame {
	hb := fmt.Sprintf("%d,%d", e.config.HeartBeatMs, e.config.HeartBeatMs)
	f := frame.New(frame.CONNECT,
		frame.AcceptVersion, "1.1,1.2",
		frame.Host, hostOf(e.config.Endpoint),
		frame.HeartBeat, hb)
	for k, v := range e.config.ConnectHeaders {
		f.Header.Add(k, v)
	}
	return f
}

// dialHeaders carries connect headers to the websocket upgrade request too,
// brokers fronted by auth proxies expect them there.
func (e *defaultEngine) dialHeaders() http.Header {
	if len(e.config.ConnectHeaders) == 0 {
		return nil
	}
	headers := http.Header{}
	for k, v := range e.config.ConnectHeaders {
		headers.Set(k, v)
	}
	return headers
}

func (e *defaultEngine) resubscribe() {
	e.mu.Lock()
	subs := make(map[string]string, len(e.subscriptions))
	for dest, id := range e.subscriptions {
		subs[dest] = id
	}
	e.mu.Unlock()

	for dest, id := range subs {
		e.enqueue(frame.New(frame.SUBSCRIBE,
			frame.Id, id,
			frame.Destination, dest,
			frame.Ack, "auto"))
	}
}

func (e *defaultEngine) setConn(conn RawConnection) {
	e.mu.Lock()
	e.conn = conn
	e.ready = false
	e.mu.Unlock()
}

func (e *defaultEngine) clearConn(conn RawConnection) {
	e.mu.Lock()
	if e.conn == conn {
		e.conn = nil
		e.ready = false
	}
	e.mu.Unlock()
}

func (e *defaultEngine) setReady(conn RawConnection, ready bool) {
	e.mu.Lock()
	if e.conn == conn {
		e.ready = ready
	}
	e.mu.Unlock()
}

func (e *defaultEngine) isDisconnectReceipt(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return id != "" && id == e.disconnectReceipt
}

func headerMap(f *frame.Frame) map[string]string {
	headers := make(map[string]string, f.Header.Len())
	for i := 0; i < f.Header.Len(); i++ {
		k, v := f.Header.GetAt(i)
		headers[k] = v
	}
	return headers
}

func hostOf(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Hostname() == "" {
		return endpoint
	}
	return u.Hostname()
}

func capDelay(d, max time.Duration) time.Duration {
	if d > max {
		return max
	}
	return d
}
