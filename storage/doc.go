// Package storage defines the object store that byte pipelines upload to,
// with a factory registry for pluggable backends.
//
// # Backends
//
//   - storage/local: a directory on the local filesystem
//   - storage/s3: Amazon S3 and S3-compatible services
//
// # Configuration
//
//	storage:
//	  provider: "s3"
//	  bucket: "my-bucket"
//	  region: "us-east-1"
package storage
