package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// It is kept for reading archives written by older builds and as the
// portable fallback for tools that inspect archive payloads.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the codec used for new archive records and backend messages.
var Default Codec = GoJSON{}
