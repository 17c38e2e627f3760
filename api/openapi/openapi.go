// Package openapi embeds the HTTP API description served at /openapi.json.
package openapi

import _ "embed"

//go:embed openapi.json
var Spec []byte
