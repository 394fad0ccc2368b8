// Package sync implements the application core of the persistence
// synchronization subsystem: the push dispatcher with its typed fallback
// policy, the cold-start restore coordinator, and the backup scheduler.
package sync

import (
	"context"
	"time"

	"github.com/google/uuid"

	domainerrors "github.com/jbctechsolutions/clawsync/internal/domain/errors"
	syncdomain "github.com/jbctechsolutions/clawsync/internal/domain/sync"

	"github.com/jbctechsolutions/clawsync/internal/application/ports"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/logging"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/tracing"
)

// ChannelProvider yields the push channels in priority order. The channel
// registry satisfies it.
type ChannelProvider interface {
	Channels() []ports.SyncChannelPort
}

// Dispatcher walks the channels in priority order and applies the fallback
// policy: the walk stops at the first success, and a failure only continues
// it when its kind is fallback-eligible.
type Dispatcher struct {
	store    ports.RemoteStorePort
	registry ChannelProvider
	logger   *logging.Logger
	tracer   *tracing.Tracer
}

// NewDispatcher creates a dispatcher over the given channel provider.
func NewDispatcher(store ports.RemoteStorePort, registry ChannelProvider, logger *logging.Logger, tracer *tracing.Tracer) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	if tracer == nil {
		tracer = tracing.Default()
	}
	return &Dispatcher{
		store:    store,
		registry: registry,
		logger:   logger,
		tracer:   tracer,
	}
}

// Dispatch runs one push attempt. An unconfigured store fails immediately
// with zero executor round trips. The second return value names the channel
// that produced the result, empty when no channel ran.
func (d *Dispatcher) Dispatch(ctx context.Context) (syncdomain.Result, string) {
	syncID := uuid.NewString()
	ctx = logging.WithSyncID(ctx, syncID)

	ctx, span := d.tracer.StartPushSpan(ctx, syncID)

	if !d.store.IsConfigured() {
		res := syncdomain.Failed(syncdomain.KindUnconfigured,
			domainerrors.ErrStoreUnconfigured.Error(), "")
		d.logger.InfoContext(ctx, "push skipped", "reason", res.Error)
		span.EndWithFailure(res.Kind.String(), res.Error)
		return res, ""
	}

	channels := d.registry.Channels()
	if len(channels) == 0 {
		res := syncdomain.Failed(syncdomain.KindTransport, "no sync channels registered", "")
		span.EndWithFailure(res.Kind.String(), res.Error)
		return res, ""
	}

	var last syncdomain.Result
	lastName := ""
	tried := 0
	for _, ch := range channels {
		tried++
		lastName = ch.Name()
		chCtx := logging.WithChannel(ctx, ch.Name())
		logging.LogPushStart(chCtx, d.logger, ch.Name())

		chCtx, chSpan := d.tracer.StartChannelSpan(chCtx, ch.Name())
		start := time.Now()
		last = ch.Push(chCtx)
		elapsed := time.Since(start)

		if last.Success {
			chSpan.End()
			logging.LogPushComplete(chCtx, d.logger, ch.Name(), elapsed, *last.LastSync)
			span.SetChannelsTried(tried)
			span.SetWinningChannel(ch.Name())
			span.End()
			return last, ch.Name()
		}

		chSpan.EndWithFailure(last.Kind.String(), last.Error)
		logging.LogPushFailed(chCtx, d.logger, ch.Name(), last.Kind.String(), last.Error, elapsed)

		if !last.Kind.EligibleForFallback() {
			break
		}
	}

	span.SetChannelsTried(tried)
	span.EndWithFailure(last.Kind.String(), last.Error)
	return last, lastName
}
