package codec

import "go.mongodb.org/mongo-driver/bson"

// BSON encodes values as BSON documents. Only document-like values (structs
// and maps) can be marshaled.
type BSON struct{}

// Marshal encodes the value to BSON.
func (BSON) Marshal(v any) ([]byte, error) { return bson.Marshal(v) }

// Unmarshal decodes the BSON data into v.
func (BSON) Unmarshal(data []byte, v any) error { return bson.Unmarshal(data, v) }

// Name returns the unique name of the codec ("bson").
func (BSON) Name() string { return "bson" }
