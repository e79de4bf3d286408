// Package blob defines the content-addressable store for uploaded menu
// images. Keys are namespaced as "{organizationSlug}/{fileName}" so a
// tenant's objects live under a single prefix.
package blob

import (
	"context"
	"io"
)

// Store is the capability the image manager needs from an object store.
// Implementations issue a public URL on write and delete by key.
type Store interface {
	// Put writes an object under key and returns its public URL.
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)

	// Delete removes the object stored under key. Deleting a key that does
	// not exist is not an error.
	Delete(ctx context.Context, key string) error
}
