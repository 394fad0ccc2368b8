package channel

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	domainerrors "github.com/jbctechsolutions/clawsync/internal/domain/errors"
	"github.com/jbctechsolutions/clawsync/internal/domain/state"
	syncdomain "github.com/jbctechsolutions/clawsync/internal/domain/sync"

	"github.com/jbctechsolutions/clawsync/internal/application/ports"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/logging"
)

// MirrorChannel is the fallback push path. It mirrors the state tree onto a
// mounted remote filesystem, subtree by subtree, with one chained command.
// It only runs after the archive channel failed with a transport-class error.
type MirrorChannel struct {
	executor ports.RemoteExecutorPort
	tree     state.Tree
	logger   *logging.Logger

	mountPath    string
	mountCommand string
	timeout      time.Duration
}

// NewMirrorChannel creates the mirror push channel. mountCommand, when
// non-empty, is run to establish the mount if mountPath is not one already.
func NewMirrorChannel(
	executor ports.RemoteExecutorPort,
	tree state.Tree,
	logger *logging.Logger,
	mountPath, mountCommand string,
	timeout time.Duration,
) *MirrorChannel {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MirrorChannel{
		executor:     executor,
		tree:         tree,
		logger:       logger,
		mountPath:    mountPath,
		mountCommand: mountCommand,
		timeout:      timeout,
	}
}

// Name identifies the channel in logs and diagnostics.
func (c *MirrorChannel) Name() string { return "mirror" }

// Push ensures the remote filesystem is mounted, then runs the chained
// mirror command and parses the marker it prints as its trailing line.
func (c *MirrorChannel) Push(ctx context.Context) syncdomain.Result {
	if res, ok := c.ensureMounted(ctx); !ok {
		return res
	}

	command := chainStages(c.stages())

	handle, err := c.executor.Submit(ctx, command)
	if err != nil {
		return syncdomain.Failed(syncdomain.KindTransport,
			"mirror channel: executor rejected command", err.Error())
	}

	if err := handle.Wait(ctx, c.timeout); err != nil {
		if errors.Is(err, ports.ErrWaitTimeout) {
			return syncdomain.Failed(syncdomain.KindTimeout,
				"mirror channel: command timed out", err.Error())
		}
		return syncdomain.Failed(syncdomain.KindTransport,
			"mirror channel: wait failed", err.Error())
	}

	output := handle.Output()

	if strings.Contains(output.Stdout, SentinelNoConfig) {
		return syncdomain.Failed(syncdomain.KindConfigMissing,
			"Sync aborted: "+domainerrors.ErrSourceConfigMissing.Error(), "")
	}

	marker := trailingLine(output.Stdout)
	stamp := syncdomain.ParseMarker(marker)
	if stamp.IsZero() {
		return syncdomain.Failed(syncdomain.KindTransport,
			"mirror channel: marker missing from command output",
			truncate(output.Stderr, 512))
	}

	if err := c.tree.WriteMarker(syncdomain.FormatMarker(stamp)); err != nil {
		c.logger.Warn("failed to persist local sync marker", "error", err)
	}

	return syncdomain.Succeeded(stamp)
}

// ensureMounted checks the mount point and runs the mount command when it is
// absent. A failed mount is definitive: this channel has no further fallback.
func (c *MirrorChannel) ensureMounted(ctx context.Context) (syncdomain.Result, bool) {
	check := fmt.Sprintf("mountpoint -q %q", c.mountPath)
	handle, err := c.executor.Submit(ctx, check)
	if err != nil {
		return syncdomain.Failed(syncdomain.KindMountFailure,
			domainerrors.ErrMountFailed.Error(), err.Error()), false
	}
	if err := handle.Wait(ctx, c.timeout); err != nil {
		return syncdomain.Failed(syncdomain.KindMountFailure,
			domainerrors.ErrMountFailed.Error(), err.Error()), false
	}
	if handle.ExitCode() == 0 {
		return syncdomain.Result{}, true
	}

	if c.mountCommand == "" {
		return syncdomain.Failed(syncdomain.KindMountFailure,
			domainerrors.ErrMountFailed.Error(),
			fmt.Sprintf("%s is not a mount point and no mount command is configured", c.mountPath)), false
	}

	handle, err = c.executor.Submit(ctx, c.mountCommand)
	if err != nil {
		return syncdomain.Failed(syncdomain.KindMountFailure,
			domainerrors.ErrMountFailed.Error(), err.Error()), false
	}
	if err := handle.Wait(ctx, c.timeout); err != nil {
		return syncdomain.Failed(syncdomain.KindMountFailure,
			domainerrors.ErrMountFailed.Error(), err.Error()), false
	}
	if handle.ExitCode() != 0 {
		return syncdomain.Failed(syncdomain.KindMountFailure,
			domainerrors.ErrMountFailed.Error(),
			truncate(handle.Output().Stderr, 512)), false
	}

	return syncdomain.Result{}, true
}

// stages chains the full mirror into one command: config guard, destructive
// mirror of config and skills, additive mirror of workspace, marker write
// and echo. Config and skills are owned by this container so deletion on the
// destination is safe; workspace accumulates cross-session data and is never
// pruned.
func (c *MirrorChannel) stages() []stage {
	excludes := make([]string, 0, len(state.TransientPatterns))
	for _, p := range state.TransientPatterns {
		excludes = append(excludes, fmt.Sprintf("--exclude=%q", p))
	}
	ex := strings.Join(excludes, " ")

	markerPath := filepath.Join(c.mountPath, syncdomain.MarkerKey)

	return []stage{
		{
			name: "config-guard",
			script: fmt.Sprintf("[ -f %q ] || { echo %s; exit 40; }",
				c.tree.ConfigFile(), SentinelNoConfig),
		},
		{
			name: "mirror-config",
			script: fmt.Sprintf("rsync -a --delete %s %q %q",
				ex, c.tree.ConfigDir()+"/", c.mountTarget(syncdomain.ConfigPrefix)),
		},
		{
			name: "mirror-skills",
			script: fmt.Sprintf("rsync -a --delete %s %q %q",
				ex, c.tree.SkillsDir()+"/", c.mountTarget(syncdomain.SkillsPrefix)),
		},
		{
			name: "mirror-workspace",
			script: fmt.Sprintf("rsync -a %s --exclude=\"skills\" %q %q",
				ex, c.tree.WorkspaceDir()+"/", c.mountTarget(syncdomain.WorkspacePrefix)),
		},
		{
			name: "write-and-echo-marker",
			script: fmt.Sprintf("date -u +%%Y-%%m-%%dT%%H:%%M:%%SZ | tee %q",
				markerPath),
		},
	}
}

// mountTarget maps a remote layout prefix onto the mounted filesystem. The
// mirror must land under the same prefixes the object listing uses, or a
// later cold-start restore will never see the mirrored subtree.
func (c *MirrorChannel) mountTarget(prefix string) string {
	return filepath.Join(c.mountPath, strings.TrimSuffix(prefix, "/")) + "/"
}

// trailingLine returns the last non-blank line of s.
func trailingLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
