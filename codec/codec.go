// Package codec centralizes snapshot encoding.
//
// Snapshots written inside an envelope record the codec name in their header,
// so a datastore can be reopened with a different default codec. Raw snapshots
// (no envelope) are always JSON.
package codec

import "fmt"

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
//
// This is used by the snapshot envelope, which stores the codec name in its
// header.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	case "bson":
		return BSON{}, true
	default:
		return nil, false
	}
}

// Names returns the names of the built-in codecs.
func Names() []string {
	return []string{"json", "go-json", "bson"}
}

// MustMarshal is a helper for tests and benchmarks.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
