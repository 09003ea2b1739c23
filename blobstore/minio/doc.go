// Package minio stores datastore snapshots in MinIO or any other
// S3-compatible service (Ceph, SeaweedFS, Garage) through the MinIO client.
//
// # Basic Usage
//
//	store, err := minioblob.Dial("localhost:9000", "snapshots",
//	    minioblob.WithCredentials("minioadmin", "minioadmin"),
//	    minioblob.WithPrefix("app/"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ds, err := diskstore.Open(ctx, "app", diskstore.WithBlobStore(store))
//
// An existing *minio.Client can be wrapped with NewStore instead.
package minio
