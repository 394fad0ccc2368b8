package ports

import (
	"context"

	"github.com/jbctechsolutions/clawsync/internal/domain/sync"
)

// SyncChannelPort is the common capability behind the structurally different
// push paths. A channel packages the local state tree and moves it to the
// durable store; the returned result carries the typed failure kind the
// dispatcher consults for its fallback decision.
type SyncChannelPort interface {
	// Name identifies the channel in logs and diagnostics.
	Name() string

	// Push moves current local state to the remote store.
	Push(ctx context.Context) sync.Result
}
