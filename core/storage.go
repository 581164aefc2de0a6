package core

import (
	"context"
	"io"
)

// FileStorage is any object store able to persist uploaded files.
type FileStorage interface {
	// Save stores the content of r under key and returns the public URL of the stored object.
	Save(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error)
}
