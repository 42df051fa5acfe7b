// Package remote abstracts the transport used to pull datasets off an
// export server. Connection lifecycle (open, authenticate, close) is the
// implementation's responsibility and is scoped around one run.
package remote

import (
	"context"
)

// Client is the transfer collaborator interface the core consumes. The core
// treats it as an opaque capability: it lists and fetches, nothing else.
type Client interface {
	// ListFiles walks the remote tree rooted at root and returns the full
	// paths of every file found.
	ListFiles(ctx context.Context, root string) ([]string, error)
	// Fetch downloads one remote file to localPath, creating parent
	// directories as needed.
	Fetch(ctx context.Context, remotePath, localPath string) error
	// Close releases the underlying connection.
	Close() error
}
