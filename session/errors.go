// Copyright 2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: BSD-2-Clause

package session

import "errors"

var (
	// ErrAlreadyConnected occurs when Connect is called on a session whose
	// protocol layer is already fully connected. Disconnect first.
	ErrAlreadyConnected = errors.New("session: already connected")

	// ErrNotConnected occurs when Subscribe, Unsubscribe or Send is called
	// before the protocol layer is fully connected.
	ErrNotConnected = errors.New("session: not connected")
)
