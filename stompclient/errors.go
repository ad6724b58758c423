// Copyright 2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: BSD-2-Clause

package stompclient

import "errors"

var (
	unsupportedEndpointSchemeError = errors.New("stompclient: endpoint scheme must be ws, wss or tcp")
)
