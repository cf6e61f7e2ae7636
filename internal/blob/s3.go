package blob

import (
	"context"

	infraS3 "spreadsim/internal/infra/blob/s3"
)

// S3Config configures the S3 driver.
type S3Config = infraS3.Config

// NewS3 constructs an S3-backed artifact store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}

// OpenS3FromEnv constructs an S3 store from the environment.
//
//	SPREADSIM_BLOB_S3_BUCKET=<bucket> (required)
//	SPREADSIM_BLOB_S3_REGION=<region> (default us-east-1)
//	SPREADSIM_BLOB_S3_ENDPOINT=<url> (optional, e.g. MinIO)
//	SPREADSIM_BLOB_S3_PATH_STYLE=true|false
//	SPREADSIM_BLOB_S3_PREFIX=<key prefix> (optional)
//	AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN (optional)
func OpenS3FromEnv(ctx context.Context) (Store, error) {
	return infraS3.OpenFromEnv(ctx)
}

// NewMockS3ForTests exposes the in-memory S3 transport for cross-package tests.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
