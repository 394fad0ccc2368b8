// Package ports defines the interfaces between the application layer and
// its adapters: the durable remote store, the remote executor, and the
// push channels.
package ports

import (
	"context"
	"time"
)

// ObjectInfo describes a stored object, used by diagnostics listings.
type ObjectInfo struct {
	Key      string    `json:"key"`
	Size     int64     `json:"size"`
	Uploaded time.Time `json:"uploaded"`
}

// RemoteStorePort is the durable key/value blob backend. Implementations are
// expected to be reliable but slow, rate-limited, and sometimes unreachable.
type RemoteStorePort interface {
	// Put writes a blob under the given key.
	Put(ctx context.Context, key string, data []byte) error

	// Get reads a blob. A missing key is reported as found=false with a nil
	// error; absence is an expected state, not a failure.
	Get(ctx context.Context, key string) (data []byte, found bool, err error)

	// List returns the objects under the given key prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Exists reports whether a key is present without fetching its body.
	Exists(ctx context.Context, key string) (bool, error)

	// IsConfigured reports whether the backend has usable credentials.
	// The dispatcher refuses to push when it returns false.
	IsConfigured() bool
}
