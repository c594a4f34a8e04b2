// Package storage defines where capture-feed writes finished screenshots.
package storage

import (
	"context"
	"io"
)

// PutObjectInput describes one object to store.
type PutObjectInput struct {
	ObjectKey   string
	ContentType string
	Reader      io.Reader
}

// PutObjectOutput reports what was stored.
type PutObjectOutput struct {
	ObjectKey string
	Size      int64
}

// Provider is implemented by storage backends.
type Provider interface {
	Provider() string

	PutObject(ctx context.Context, in PutObjectInput) (PutObjectOutput, error)
	GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error)
	DeleteObject(ctx context.Context, objectKey string) error
}
