// Package s3 provides Amazon S3 implementations of blobstore.Store.
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	if err != nil { ... }
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "rankinglists/")
//
// S3 offers no cheap compare-and-swap on regular buckets. DDBCommitStore adds
// first-writer-wins commits by recording each blob's object key in a
// DynamoDB table with conditional writes.
package s3
