package remote

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned by Backend.Get when no blob is stored under a key.
var ErrNotExist = errors.New("blob does not exist")

// Backend stores opaque blobs under slash-separated keys. Implementations
// must be safe for concurrent use.
type Backend interface {
	// Name identifies the backend in logs and status output.
	Name() string

	// Put stores data under key, replacing any previous blob.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the blob stored under key, or ErrNotExist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the blob stored under key. A missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns every key below prefix, which must be empty or end in "/".
	List(ctx context.Context, prefix string) ([]string, error)

	// Ping checks that the backend is reachable and usable.
	Ping(ctx context.Context) error
}

// Cipher seals documents before they leave the device and opens them after
// they are fetched.
type Cipher interface {
	Encrypt(r io.Reader, w io.Writer) error
	Decrypt(r io.Reader, w io.Writer) error
}
