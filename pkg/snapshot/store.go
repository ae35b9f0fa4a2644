// Package snapshot captures camera frames and keeps the most recent ones.
package snapshot

import (
	"context"
	"errors"
)

// ErrNotFound is returned when deleting an image that does not exist.
var ErrNotFound = errors.New("snapshot not found")

// Store persists JPEG images by name.
type Store interface {
	// Put writes data under name, replacing any existing image.
	Put(ctx context.Context, name string, data []byte) error
	// List returns every stored name, in no particular order.
	List(ctx context.Context) ([]string, error)
	// Delete removes name.
	Delete(ctx context.Context, name string) error
	// Location describes where name is stored, for operator messages.
	Location(name string) string
}
