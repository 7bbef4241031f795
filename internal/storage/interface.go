package storage

import (
	"context"
	"io"
)

// ArtifactSink is the destination downloaded files and archives are
// persisted to once retrieved from the backend.
type ArtifactSink interface {
	// Store writes one artifact under the given key and returns the
	// location it was stored at.
	Store(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)

	// Exists checks whether an artifact is already present.
	Exists(ctx context.Context, key string) (bool, error)
}
