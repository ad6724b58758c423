// Copyright 2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: BSD-2-Clause

// Package brokertest runs a minimal in-process STOMP-over-websocket broker so
// engine and session tests exercise a real frame round trip. Messages SENT by
// a client are echoed back as MESSAGE frames to that client's matching
// subscriptions, which is all the protocol surface the client needs.
package brokertest

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const endpointPath = "/ranch"

// Broker is a throwaway STOMP broker listening on a random localhost port.
type Broker struct {
	httpServer   *http.Server
	listener     net.Listener
	upgrader     websocket.Upgrader
	upgradeDelay time.Duration
}

// New starts a broker. Callers must Close it when done.
func New() (*Broker, error) {
	return NewWithUpgradeDelay(0)
}

// NewWithUpgradeDelay starts a broker that holds each websocket upgrade for
// the given duration, widening the dial window for tests that race it.
func NewWithUpgradeDelay(delay time.Duration) (*Broker, error) {
	b := &Broker{
		upgradeDelay: delay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	router := mux.NewRouter()
	router.HandleFunc(endpointPath, b.serveWebsocket)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	b.listener = listener
	b.httpServer = &http.Server{
		Handler: handlers.RecoveryHandler()(router),
	}

	go b.httpServer.Serve(listener)
	return b, nil
}

// Endpoint returns the ws:// address clients should dial.
func (b *Broker) Endpoint() string {
	return "ws://" + b.listener.Addr().String() + endpointPath
}

// Close stops the broker and drops all connections.
func (b *Broker) Close() {
	b.httpServer.Close()
}

func (b *Broker) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	if b.upgradeDelay > 0 {
		time.Sleep(b.upgradeDelay)
	}
	wsCon, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := &brokerConn{wsCon: wsCon, subscriptions: make(map[string]string)}
	conn.run()
}

type brokerConn struct {
	wsCon         *websocket.Conn
	subscriptions map[string]string // subscription id -> destination
	messageId     uint64
}

func (c *brokerConn) run() {
	defer c.wsCon.Close()

	for {
		f, err := c.readFrame()
		if err != nil {
			return
		}
		if f == nil {
			// heart-beat
			continue
		}

		switch f.Command {

		case frame.CONNECT, frame.STOMP:
			connected := frame.New(frame.CONNECTED,
				frame.Version, "1.2",
				frame.Server, "lasso-brokertest/0.0.1",
				frame.HeartBeat, "0,0")
			if err = c.writeFrame(connected); err != nil {
				return
			}

		case frame.SUBSCRIBE:
			id, okId := f.Header.Contains(frame.Id)
			dest, okDest := f.Header.Contains(frame.Destination)
			if !okId || !okDest {
				c.sendError("missing subscription headers")
				return
			}
			c.subscriptions[id] = dest
			c.sendReceipt(f)

		case frame.UNSUBSCRIBE:
			if id, ok := f.Header.Contains(frame.Id); ok {
				delete(c.subscriptions, id)
			}
			c.sendReceipt(f)

		case frame.SEND:
			dest := f.Header.Get(frame.Destination)
			if dest == "" {
				c.sendError("missing destination")
				return
			}
			c.sendReceipt(f)
			c.echo(dest, f.Body)

		case frame.DISCONNECT:
			c.sendReceipt(f)
			return

		default:
			c.sendError("unsupported command: " + f.Command)
			return
		}
	}
}

// echo fans the body out to every subscription this client holds on the
// destination.
func (c *brokerConn) echo(destination string, body []byte) {
	for id, dest := range c.subscriptions {
		if dest != destination {
			continue
		}
		c.messageId++
		m := frame.New(frame.MESSAGE,
			frame.Destination, destination,
			frame.Subscription, id,
			frame.MessageId, strconv.FormatUint(c.messageId, 10))
		m.Body = body
		if err := c.writeFrame(m); err != nil {
			return
		}
	}
}

func (c *brokerConn) sendReceipt(f *frame.Frame) {
	if receipt, ok := f.Header.Contains(frame.Receipt); ok {
		c.writeFrame(frame.New(frame.RECEIPT, frame.ReceiptId, receipt))
	}
}

func (c *brokerConn) sendError(message string) {
	c.writeFrame(frame.New(frame.ERROR, frame.Message, message))
}

func (c *brokerConn) readFrame() (*frame.Frame, error) {
	c.wsCon.SetReadDeadline(time.Time{})
	_, r, err := c.wsCon.NextReader()
	if err != nil {
		return nil, err
	}
	return frame.NewReader(r).Read()
}

func (c *brokerConn) writeFrame(f *frame.Frame) error {
	wr, err := c.wsCon.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	if err = frame.NewWriter(wr).Write(f); err != nil {
		return err
	}
	return wr.Close()
}
