package sync

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	domainerrors "github.com/jbctechsolutions/clawsync/internal/domain/errors"
	"github.com/jbctechsolutions/clawsync/internal/domain/state"
	syncdomain "github.com/jbctechsolutions/clawsync/internal/domain/sync"

	"github.com/jbctechsolutions/clawsync/internal/application/ports"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/archive"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/fscopy"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/logging"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/security"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/tracing"
)

// Restorer is the cold-start restore coordinator. It runs once, before the
// scheduler's first tick, and brings the local state tree up to the durable
// store's last pushed state. Failures are absorbed: a container that cannot
// restore starts with local defaults rather than refusing to start.
type Restorer struct {
	store  ports.RemoteStorePort
	tree   state.Tree
	logger *logging.Logger
	tracer *tracing.Tracer
}

// NewRestorer creates the restore coordinator.
func NewRestorer(store ports.RemoteStorePort, tree state.Tree, logger *logging.Logger, tracer *tracing.Tracer) *Restorer {
	if logger == nil {
		logger = logging.Default()
	}
	if tracer == nil {
		tracer = tracing.Default()
	}
	return &Restorer{store: store, tree: tree, logger: logger, tracer: tracer}
}

// Run executes the restore sequence. The returned error is advisory; the
// caller proceeds with local defaults regardless.
func (r *Restorer) Run(ctx context.Context) error {
	ctx, span := r.tracer.StartRestoreSpan(ctx)
	start := time.Now()

	if err := r.tree.EnsureDirs(); err != nil {
		span.EndWithError(err)
		return fmt.Errorf("failed to prepare state tree: %w", err)
	}

	if !r.store.IsConfigured() {
		r.logger.InfoContext(ctx, "restore skipped", "reason", domainerrors.ErrStoreUnconfigured.Error())
		span.SetSkipped()
		span.End()
		return nil
	}

	local := syncdomain.ParseMarker(r.tree.ReadMarker())

	remoteRaw, found, err := r.store.Get(ctx, syncdomain.MarkerKey)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to read remote sync marker", "error", err)
		span.EndWithError(err)
		return err
	}
	if !found {
		r.logger.InfoContext(ctx, "restore skipped", "reason", "no remote sync marker")
		span.SetSkipped()
		span.End()
		return nil
	}

	remote := syncdomain.ParseMarker(string(remoteRaw))
	if !syncdomain.ShouldRestore(local, remote) {
		logging.LogRestoreSkipped(ctx, r.logger, local, remote)
		span.SetSkipped()
		span.End()
		return nil
	}

	for _, layout := range syncdomain.RestoreOrder {
		layoutCtx := logging.WithLayout(ctx, layout.String())

		restored, err := r.restoreLayout(layoutCtx, layout)
		if err != nil {
			logging.LogRestoreLayoutFailed(layoutCtx, r.logger, layout.String(), err)
			continue
		}
		if !restored {
			continue
		}

		// Marker last: a partially restored tree must look stale, not current.
		if err := r.tree.WriteMarker(string(remoteRaw)); err != nil {
			r.logger.WarnContext(layoutCtx, "failed to persist local sync marker", "error", err)
		}

		logging.LogRestoreComplete(layoutCtx, r.logger, layout.String(), time.Since(start))
		span.SetLayout(layout.String())
		span.End()
		return nil
	}

	r.logger.WarnContext(ctx, "restore exhausted all layouts, starting with local defaults")
	span.EndWithError(domainerrors.ErrNoLayoutAvailable)
	return domainerrors.ErrNoLayoutAvailable
}

// restoreLayout attempts one layout. It returns (false, nil) when the layout
// is absent from the store, so the coordinator moves on without noise.
func (r *Restorer) restoreLayout(ctx context.Context, layout syncdomain.Layout) (bool, error) {
	switch layout {
	case syncdomain.LayoutArchive:
		return r.restoreArchive(ctx)
	case syncdomain.LayoutDirectory:
		return r.restoreDirectory(ctx)
	case syncdomain.LayoutLegacy:
		return r.restoreLegacy(ctx)
	default:
		return false, fmt.Errorf("unknown layout %v", layout)
	}
}

// restoreArchive fetches the single blob, extracts it into a scratch
// directory, validates the extracted workspace, and only then copies onto
// the live tree. Validation before copy keeps a corrupt archive from
// touching local state at all.
func (r *Restorer) restoreArchive(ctx context.Context) (bool, error) {
	data, found, err := r.store.Get(ctx, syncdomain.ArchiveKey)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	scratch, err := os.MkdirTemp("", "clawsync-restore-*")
	if err != nil {
		return false, err
	}
	defer os.RemoveAll(scratch)

	if err := archive.Extract(bytes.NewReader(data), scratch); err != nil {
		return false, fmt.Errorf("archive extraction failed: %w", err)
	}

	if !state.HasMemoryArtifact(filepath.Join(scratch, "workspace")) {
		return false, fmt.Errorf("restored workspace has no memory artifact")
	}

	// Config is fully owned by the stored state, so it is mirrored onto the
	// live tree. Workspace accumulates local data and is copied additively.
	opts := fscopy.Options{}
	if err := fscopy.MirrorTree(filepath.Join(scratch, "config"), r.tree.ConfigDir(), opts); err != nil {
		return false, err
	}
	if err := fscopy.CopyTree(filepath.Join(scratch, "workspace"), r.tree.WorkspaceDir(), opts); err != nil {
		return false, err
	}
	return true, nil
}

// restoreDirectory downloads the structured prefixes into their respective
// local directories. Additive: existing local entries not present remotely
// are kept.
func (r *Restorer) restoreDirectory(ctx context.Context) (bool, error) {
	prefixes := map[string]string{
		syncdomain.ConfigPrefix:    r.tree.ConfigDir(),
		syncdomain.SkillsPrefix:    r.tree.SkillsDir(),
		syncdomain.WorkspacePrefix: r.tree.WorkspaceDir(),
	}

	any := false
	for prefix, dst := range prefixes {
		objects, err := r.store.List(ctx, prefix)
		if err != nil {
			return false, err
		}
		for _, obj := range objects {
			rel := strings.TrimPrefix(obj.Key, prefix)
			if rel == "" || strings.HasSuffix(obj.Key, "/") {
				continue
			}
			if err := security.ValidateKey(obj.Key); err != nil {
				r.logger.Warn("skipping unsafe remote key", "key", obj.Key, "error", err)
				continue
			}
			target, err := security.ResolveUnder(dst, rel)
			if err != nil {
				r.logger.Warn("skipping unsafe remote key", "key", obj.Key, "error", err)
				continue
			}
			if err := r.download(ctx, obj.Key, target); err != nil {
				return false, err
			}
			any = true
		}
	}
	return any, nil
}

// restoreLegacy downloads the flat objects at the store root into the config
// directory. The oldest layout predates the structured prefixes and held
// config files only.
func (r *Restorer) restoreLegacy(ctx context.Context) (bool, error) {
	objects, err := r.store.List(ctx, "")
	if err != nil {
		return false, err
	}

	any := false
	for _, obj := range objects {
		if strings.Contains(obj.Key, "/") {
			continue
		}
		if obj.Key == syncdomain.MarkerKey || obj.Key == syncdomain.ArchiveKey {
			continue
		}
		if err := security.ValidateKey(obj.Key); err != nil {
			r.logger.Warn("skipping unsafe remote key", "key", obj.Key, "error", err)
			continue
		}
		target, err := security.ResolveUnder(r.tree.ConfigDir(), obj.Key)
		if err != nil {
			r.logger.Warn("skipping unsafe remote key", "key", obj.Key, "error", err)
			continue
		}
		if err := r.download(ctx, obj.Key, target); err != nil {
			return false, err
		}
		any = true
	}
	return any, nil
}

func (r *Restorer) download(ctx context.Context, key, dst string) error {
	data, found, err := r.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
