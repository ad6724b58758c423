// Copyright 2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: BSD-2-Clause

package model

import (
	"encoding/json"

	"github.com/mitchellh/mapstructure"
)

// Decoder converts message bodies to and from application values.
type Decoder interface {
	// Decode populates out from the raw message body.
	Decode(data []byte, out interface{}) error
	// Encode renders a value into a message body.
	Encode(v interface{}) ([]byte, error)
}

// JSONDecoder is the default Decoder. Decoding is strict: a body carrying
// fields the target type does not declare is rejected, otherwise nearly any
// object body would decode into the first struct candidate and ordered
// candidate matching would be meaningless.
type JSONDecoder struct{}

func (JSONDecoder) Decode(data []byte, out interface{}) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		TagName:     "json",
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func (JSONDecoder) Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
