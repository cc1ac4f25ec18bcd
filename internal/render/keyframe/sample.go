package keyframe

import _ "embed"

// Sample is a two second pulse used when no document is configured.
//
//go:embed sample.json
var Sample []byte
