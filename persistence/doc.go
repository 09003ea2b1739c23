// Package persistence saves and loads datastore snapshots.
//
// A snapshot is the whole state of a datastore: records, schemas and
// auto-increment counters of every collection. It is written as one blob and
// replaced atomically on every mutation.
//
// Two on-disk forms exist. A raw snapshot is plain JSON:
//
//	{"data": {...}, "schema": {...}, "counters": {...}}
//
// An enveloped snapshot carries a binary header followed by the payload,
// which may be compressed and encrypted:
//
//	"DSKS" | version u16 | compression u8 | flags u8 | codec-len u8 | codec | crc32 u32 | length u64 | payload
//
// Decode detects the form from the first bytes. Writes go through a Manager,
// which serializes them on a single worker.
package persistence
