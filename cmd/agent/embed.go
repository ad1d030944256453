package main

import _ "embed"

// embeddedConfig is the lowest configuration layer above the defaults.
// Device builds overwrite embed_config.yaml before compiling.
//
//go:embed embed_config.yaml
var embeddedConfig []byte
