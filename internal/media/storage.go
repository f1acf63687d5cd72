package media

import (
	"context"
	"io"
)

// Object is a stored file: the public URL plus the key used to delete it.
type Object struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

type Storage interface {
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) (Object, error)
	Delete(ctx context.Context, key string) error
}
