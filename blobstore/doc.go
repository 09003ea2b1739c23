// Package blobstore provides storage backends for datastore snapshots.
//
// A BlobStore holds named blobs that are read and replaced as a whole.
// Implementations must be safe for concurrent use, and Put must be atomic:
// a concurrent or later Get observes either the old or the new content,
// never a mix.
//
// # Built-in Implementations
//
//   - LocalStore: files in a directory, replaced with write-temp-and-rename
//   - MemoryStore: in-process map, for tests and ephemeral datastores
//   - s3.Store / s3.DDBCommitStore: Amazon S3, optionally with DynamoDB commits
//   - minio.Store: MinIO and other S3-compatible services
//   - sqlite.Store, postgres.Store, mysql.Store: a blob table in a SQL database
//
// Stores that can keep other processes from writing the same blob implement
// Locker.
package blobstore
