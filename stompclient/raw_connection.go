// Copyright 2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: BSD-2-Clause

package stompclient

import (
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"
)

// RawConnection is a single established transport carrying STOMP frames.
type RawConnection interface {
	// ReadFrame reads a single frame. A nil frame with a nil error is a
	// heart-beat.
	ReadFrame() (*frame.Frame, error)
	// WriteFrame sends a single frame. A nil frame writes a heart-beat.
	WriteFrame(f *frame.Frame) error
	// SetReadDeadline sets the deadline for reading frames.
	SetReadDeadline(t time.Time)
	// Close the connection.
	Close() error
}

type websocketConnection struct {
	wsCon      *websocket.Conn
	writeMutex sync.Mutex
}

func (c *websocketConnection) ReadFrame() (*frame.Frame, error) {
	_, r, err := c.wsCon.NextReader()
	if err != nil {
		return nil, err
	}
	return frame.NewReader(r).Read()
}

func (c *websocketConnection) WriteFrame(f *frame.Frame) error {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()

	wr, err := c.wsCon.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	if err = frame.NewWriter(wr).Write(f); err != nil {
		return err
	}
	return wr.Close()
}

func (c *websocketConnection) SetReadDeadline(t time.Time) {
	c.wsCon.SetReadDeadline(t)
}

func (c *websocketConnection) Close() error {
	return c.wsCon.Close()
}

type tcpConnection struct {
	tcpCon     net.Conn
	writeMutex sync.Mutex
}

func (c *tcpConnection) ReadFrame() (*frame.Frame, error) {
	return frame.NewReader(c.tcpCon).Read()
}

func (c *tcpConnection) WriteFrame(f *frame.Frame) error {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()
	return frame.NewWriter(c.tcpCon).Write(f)
}

func (c *tcpConnection) SetReadDeadline(t time.Time) {
	c.tcpCon.SetReadDeadline(t)
}

func (c *tcpConnection) Close() error {
	return c.tcpCon.Close()
}

// dialEndpoint establishes a RawConnection for the endpoint. ws:// and wss://
// endpoints use a websocket transport, tcp:// endpoints speak STOMP straight
// over the socket.
func dialEndpoint(endpoint string, headers http.Header, timeout time.Duration) (RawConnection, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}

	switch u.Scheme {
	case "ws", "wss":
		dialer := &websocket.Dialer{
			HandshakeTimeout: timeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		}
		wsCon, _, err := dialer.Dial(endpoint, headers)
		if err != nil {
			return nil, err
		}
		return &websocketConnection{wsCon: wsCon}, nil

	case "tcp":
		tcpCon, err := net.DialTimeout("tcp", u.Host, timeout)
		if err != nil {
			return nil, err
		}
		return &tcpConnection{tcpCon: tcpCon}, nil
	}

	return nil, unsupportedEndpointSchemeError
}
