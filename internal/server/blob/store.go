// Package blob talks to the S3-compatible object storage holding the raw
// file bytes.
package blob

import (
	"context"
	"io"
	"time"
)

// Store is the blob backend contract used by the file custody orchestrator.
type Store interface {
	// Put writes the object under key. A metadata record may only be
	// created after Put returns nil.
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	// PresignDownload returns a time-limited URL for the object. The URL
	// forces a download under downloadName via content-disposition.
	PresignDownload(ctx context.Context, key, downloadName string, validity time.Duration) (string, error)
	// Delete removes the object by key.
	Delete(ctx context.Context, key string) error
}
