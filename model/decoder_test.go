// Copyright 2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: BSD-2-Clause

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingShape struct {
	Kind string `json:"kind"`
}

type chatShape struct {
	From string `json:"from"`
	Text string `json:"text"`
}

func TestJSONDecoderRoundTrip(t *testing.T) {
	d := JSONDecoder{}
	original := chatShape{From: "dave", Text: "howdy"}

	data, err := d.Encode(original)
	require.NoError(t, err)

	var decoded chatShape
	require.NoError(t, d.Decode(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestJSONDecoderRejectsUnknownFields(t *testing.T) {
	d := JSONDecoder{}

	var decoded pingShape
	err := d.Decode([]byte(`{"kind":"ping","extra":"field"}`), &decoded)
	assert.Error(t, err, "unknown fields must reject the candidate")
}

func TestJSONDecoderRejectsMalformedInput(t *testing.T) {
	d := JSONDecoder{}

	var decoded pingShape
	assert.Error(t, d.Decode([]byte(`{"kind":`), &decoded))
}

func TestCandidateTryDecode(t *testing.T) {
	c := NewCandidate[pingShape](nil)

	value, ok := c.TryDecode([]byte(`{"kind":"ping"}`))
	require.True(t, ok)
	assert.Equal(t, pingShape{Kind: "ping"}, value)

	_, ok = c.TryDecode([]byte(`{"from":"dave","text":"hi"}`))
	assert.False(t, ok)

	_, ok = c.TryDecode([]byte(`garbage`))
	assert.False(t, ok)
}

func TestCandidateOrderDiscriminates(t *testing.T) {
	candidates := []Candidate{
		NewCandidate[pingShape](nil),
		NewCandidate[chatShape](nil),
	}

	// a chat body must fall through ping and land on chat
	body := []byte(`{"from":"dave","text":"hi"}`)
	_, ok := candidates[0].TryDecode(body)
	require.False(t, ok)

	value, ok := candidates[1].TryDecode(body)
	require.True(t, ok)
	assert.Equal(t, chatShape{From: "dave", Text: "hi"}, value)
}

func TestEventTypeStrings(t *testing.T) {
	assert.Equal(t, "connecting", EventConnecting.String())
	assert.Equal(t, "connected", EventConnected.String())
	assert.Equal(t, "disconnected", EventDisconnected.String())
	assert.Equal(t, "payloadReceived", EventPayloadReceived.String())
	assert.Equal(t, "errorReceived", EventErrorReceived.String())
	assert.Equal(t, "unknown", EventType(99).String())
}
