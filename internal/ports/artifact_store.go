package ports

import (
	"context"
	"io"
)

// ArtifactStore defines the interface for reading serialized model artifacts
type ArtifactStore interface {
	// Open returns a reader for the named artifact
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Location describes where the named artifact lives, for logging
	Location(name string) string
}
