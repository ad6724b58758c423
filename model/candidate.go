// Copyright 2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: BSD-2-Clause

package model

// Candidate is one application type attempted when decoding an inbound
// message body. Implementations must never panic on malformed input, a failed
// attempt simply reports false so the next candidate can be tried.
type Candidate interface {
	// TryDecode returns the decoded value and true on success.
	TryDecode(data []byte) (interface{}, bool)
}

type candidate[T any] struct {
	decoder Decoder
}

// NewCandidate returns a Candidate that decodes bodies into T using the
// supplied decoder. A nil decoder falls back to JSONDecoder.
func NewCandidate[T any](d Decoder) Candidate {
	if d == nil {
		d = JSONDecoder{}
	}
	return candidate[T]{decoder: d}
}

func (c candidate[T]) TryDecode(data []byte) (interface{}, bool) {
	var out T
	if err := c.decoder.Decode(data, &out); err != nil {
		return nil, false
	}
	return out, true
}
