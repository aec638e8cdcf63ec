// Package openapi holds the OpenAPI 3 document of the vending machine API,
// served at /openapi.yaml and rendered by /docs.
package openapi

import _ "embed"

//go:embed openapi.yaml
var YAML []byte
