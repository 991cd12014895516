// Package blobstore abstracts the object storage that holds encrypted
// financial payloads. Metadata lives in Postgres; the bytes live here.
package blobstore

import "context"

type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
