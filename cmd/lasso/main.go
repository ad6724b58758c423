// Copyright 2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/pb33f/lasso/model"
	"github.com/pb33f/lasso/session"
	"github.com/pb33f/lasso/stompclient"
	"github.com/spf13/pflag"
)

// ChatMessage is the demo payload shape published by the ranch sample
// services.
type ChatMessage struct {
	From string `json:"from"`
	Text string `json:"text"`
}

// Ping is a bare keep-alive payload.
type Ping struct {
	Kind string `json:"kind"`
}

func main() {
	flags := pflag.NewFlagSet("lasso", pflag.ExitOnError)
	flags.String("endpoint", session.DefaultEndpoint, "broker endpoint (ws://, wss:// or tcp://)")
	flags.String("destination", "/topic/lasso-demo", "destination to subscribe to")
	flags.Duration("timeout", session.DefaultConnectTimeout, "connection timeout")
	flags.Duration("ping", session.DefaultPingInterval, "keep-alive ping interval")
	flags.Parse(os.Args[1:])

	config, err := session.LoadConfig(flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	destination, _ := flags.GetString("destination")

	connectedColor := color.New(color.FgGreen, color.Bold)
	payloadColor := color.New(color.FgCyan)
	errorColor := color.New(color.FgRed)

	engine := stompclient.NewEngine(stompclient.EngineConfig{
		Endpoint: config.Endpoint,
	})

	config.Candidates = []model.Candidate{
		model.NewCandidate[ChatMessage](nil),
		model.NewCandidate[Ping](nil),
	}

	done := make(chan struct{})
	var closeDone sync.Once
	var client *session.Session

	config.Handler = func(event model.Event) {
		switch event.Type {
		case model.EventConnecting:
			fmt.Printf("connecting to %s...\n", config.Endpoint)
		case model.EventConnected:
			connectedColor.Println("connected")
			if err := client.Subscribe(destination); err != nil {
				errorColor.Printf("subscribe failed: %s\n", err)
			}
		case model.EventPayloadReceived:
			switch payload := event.Payload.(type) {
			case ChatMessage:
				payloadColor.Printf("[%s] %s: %s\n", event.Destination, payload.From, payload.Text)
			case Ping:
				payloadColor.Printf("[%s] ping\n", event.Destination)
			}
		case model.EventErrorReceived:
			errorColor.Printf("broker error: %s\n", event.Error)
		case model.EventDisconnected:
			fmt.Println("disconnected")
			closeDone.Do(func() { close(done) })
		}
	}

	client = session.New(engine, *config)
	if err = client.Connect(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	syschan := make(chan os.Signal, 1)
	signal.Notify(syschan, syscall.SIGINT, syscall.SIGTERM)
	<-syschan

	client.Disconnect(false)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		client.Disconnect(true)
	}
}
