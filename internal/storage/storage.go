package storage

import (
	"context"
	"io"
)

// Storage holds the bytes behind File rows, keyed by stored filename. Rows and
// stored objects are coupled only by the handlers: whoever deletes a File row
// must also call Delete here.
type Storage interface {
	Save(ctx context.Context, name string, reader io.Reader, size int64, contentType string) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}
