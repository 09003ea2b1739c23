// Package document defines the typed values and records stored in diskstore
// collections.
//
// A Record is a map of attribute names to Values. Value is a small tagged
// variant (null, int, float, string, bool, array, object) so that filtering,
// sorting and uniqueness checks never need reflection.
//
// Use FromAny and RecordFromMap to ingest decoded JSON or plain Go maps, and
// Value.Interface / Record.Map to hand results back to callers that expect
// untyped data.
//
// Values encode to natural JSON (the snapshot format) and to BSON.
package document
