// Package s3 stores datastore snapshots in Amazon S3.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("datastores/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	ds, err := diskstore.Open(ctx, "app", diskstore.WithBlobStore(store))
//
// Store is a plain object store: the last Put wins. DDBCommitStore adds
// DynamoDB conditional writes so that concurrent writers from different
// hosts detect each other instead of silently overwriting.
//
// # Features
//
//   - Multipart uploads for large snapshots
//   - CRC32C integrity validation on upload
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
