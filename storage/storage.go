package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// Storage is an object store that byte pipelines upload to and objects are
// read back from.
type Storage interface {
	// Upload writes the contents of reader under key, replacing any
	// existing object.
	Upload(ctx context.Context, key string, reader io.Reader) error

	// Download opens the object under key. The caller closes the reader.
	// A missing key is reported with errors.ErrCodeNotFound.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object under key. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns an address for the object under key.
	URL(ctx context.Context, key string) (string, error)

	// List returns the objects whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// Named is implemented by backends that report their provider name in logs
// and metrics.
type Named interface {
	Provider() string
}

// ProviderName returns the provider name of s, or "unknown".
func ProviderName(s Storage) string {
	if n, ok := s.(Named); ok {
		return n.Provider()
	}
	return "unknown"
}
