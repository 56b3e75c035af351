package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Move(ctx context.Context, from, to string) error
}

// Archiver moves aged journal data from the database to cold storage and
// writes position snapshot exports.
type Archiver interface {
	ArchiveTrades(ctx context.Context, before time.Time) (int64, error)
	ExportPositions(ctx context.Context, wallet string, positions []Position) (string, error)
}
