// Package storage provides the data plane connections: PostgreSQL, Redis,
// and the audio blob backends.
//
// # Overview
//
// Connection helpers open and verify the Postgres pool and the Redis client
// from configuration. Blob stores implement the audio.BlobStore interface
// with either S3-compatible object storage or a local filesystem directory.
//
// # Usage Example
//
//	db, err := storage.ConnectPostgres(ctx, storage.PostgresConfig{
//		URL:      cfg.Database.URL,
//		MaxConns: cfg.Database.MaxConns,
//	})
//
//	client, err := storage.ConnectRedis(ctx, storage.RedisConfig{
//		URL: cfg.Redis.URL,
//	})
//
//	blobs, err := storage.NewS3BlobStore(ctx, storage.S3Config{
//		Bucket: cfg.Blob.S3Bucket,
//		Region: cfg.Blob.S3Region,
//	})
//
// # Related Packages
//
//   - pkg/audio: BlobStore consumer
//   - pkg/config: Configuration sources for these settings
package storage
