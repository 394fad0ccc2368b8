// Package channel provides the push channel adapters behind the
// SyncChannelPort: the archive channel and the mirror channel, plus the
// ordered registry the dispatcher walks.
package channel

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	domainerrors "github.com/jbctechsolutions/clawsync/internal/domain/errors"
	"github.com/jbctechsolutions/clawsync/internal/domain/state"
	syncdomain "github.com/jbctechsolutions/clawsync/internal/domain/sync"

	"github.com/jbctechsolutions/clawsync/internal/application/ports"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/logging"
)

// Command sentinels. The remote side cannot return structured values, so the
// channel contracts are carried as distinguishable lines on stdout.
const (
	// SentinelNoConfig is printed when the source config file is absent.
	SentinelNoConfig = "CLAWSYNC_ERR_NO_CONFIG"

	// SentinelArchiveDone terminates a complete archive payload.
	SentinelArchiveDone = "CLAWSYNC_ARCHIVE_DONE"
)

// stage is one step of a remote command, chained with its successors into a
// single submitted script to keep the channel at one executor round trip.
type stage struct {
	name   string
	script string
}

func chainStages(stages []stage) string {
	parts := make([]string, len(stages))
	for i, s := range stages {
		parts[i] = s.script
	}
	return strings.Join(parts, " && ")
}

// ArchiveChannel is the primary push path: one executor round trip producing
// a base64 tar.gz payload, then two store writes (payload, then marker).
type ArchiveChannel struct {
	store    ports.RemoteStorePort
	executor ports.RemoteExecutorPort
	tree     state.Tree
	logger   *logging.Logger

	timeout    time.Duration
	minArchive int
}

// NewArchiveChannel creates the archive push channel.
func NewArchiveChannel(
	store ports.RemoteStorePort,
	executor ports.RemoteExecutorPort,
	tree state.Tree,
	logger *logging.Logger,
	timeout time.Duration,
	minArchive int,
) *ArchiveChannel {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if minArchive <= 0 {
		minArchive = 100
	}
	return &ArchiveChannel{
		store:      store,
		executor:   executor,
		tree:       tree,
		logger:     logger,
		timeout:    timeout,
		minArchive: minArchive,
	}
}

// Name identifies the channel in logs and diagnostics.
func (c *ArchiveChannel) Name() string { return "archive" }

// stages builds the remote command as an ordered stage list: config guard,
// archive build, payload emission. A missing config prints SentinelNoConfig
// and exits non-zero before anything is packaged.
func (c *ArchiveChannel) stages() []stage {
	excludes := make([]string, 0, len(state.TransientPatterns))
	for _, p := range state.TransientPatterns {
		excludes = append(excludes, fmt.Sprintf("--exclude=%q", p))
	}

	return []stage{
		{
			name: "config-guard",
			script: fmt.Sprintf("[ -f %q ] || { echo %s; exit 40; }",
				c.tree.ConfigFile(), SentinelNoConfig),
		},
		{
			name: "archive-and-emit",
			script: fmt.Sprintf("cd %q && tar czf - %s config workspace | base64 && echo %s",
				c.tree.Root, strings.Join(excludes, " "), SentinelArchiveDone),
		},
	}
}

// Push runs the archive round trip and writes the payload and marker to the
// store, marker strictly after payload.
func (c *ArchiveChannel) Push(ctx context.Context) syncdomain.Result {
	command := chainStages(c.stages())

	handle, err := c.executor.Submit(ctx, command)
	if err != nil {
		return syncdomain.Failed(syncdomain.KindTransport,
			"archive channel: executor rejected command", err.Error())
	}

	if err := handle.Wait(ctx, c.timeout); err != nil {
		if errors.Is(err, ports.ErrWaitTimeout) {
			return syncdomain.Failed(syncdomain.KindTimeout,
				"archive channel: command timed out", err.Error())
		}
		return syncdomain.Failed(syncdomain.KindTransport,
			"archive channel: wait failed", err.Error())
	}

	output := handle.Output()

	if strings.Contains(output.Stdout, SentinelNoConfig) {
		return syncdomain.Failed(syncdomain.KindConfigMissing,
			"Sync aborted: "+domainerrors.ErrSourceConfigMissing.Error(), "")
	}

	payload, ok := extractPayload(output.Stdout)
	if !ok {
		return syncdomain.Failed(syncdomain.KindTransport,
			"archive channel: completion sentinel missing",
			truncate(output.Stderr, 512))
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return syncdomain.Failed(syncdomain.KindPayloadCorrupt,
			"archive channel: payload is not valid base64", err.Error())
	}
	if len(data) < c.minArchive {
		return syncdomain.Failed(syncdomain.KindPayloadCorrupt,
			domainerrors.ErrPayloadTooSmall.Error(),
			fmt.Sprintf("decoded %d bytes, minimum %d", len(data), c.minArchive))
	}

	if err := c.store.Put(ctx, syncdomain.ArchiveKey, data); err != nil {
		return syncdomain.Failed(syncdomain.KindTransport,
			"archive channel: payload upload failed", err.Error())
	}

	// Marker goes up only after the payload it describes.
	now := time.Now().UTC()
	marker := syncdomain.FormatMarker(now)
	if err := c.store.Put(ctx, syncdomain.MarkerKey, []byte(marker)); err != nil {
		return syncdomain.Failed(syncdomain.KindTransport,
			"archive channel: marker upload failed", err.Error())
	}

	if err := c.tree.WriteMarker(marker); err != nil {
		c.logger.Warn("failed to persist local sync marker", "error", err)
	}

	return syncdomain.Succeeded(now)
}

// extractPayload returns the base64 lines preceding the completion sentinel.
// Diagnostic lines after the sentinel, and the sentinel itself, are dropped.
func extractPayload(stdout string) (string, bool) {
	idx := strings.Index(stdout, SentinelArchiveDone)
	if idx < 0 {
		return "", false
	}
	payload := stdout[:idx]
	var b strings.Builder
	for _, line := range strings.Split(payload, "\n") {
		b.WriteString(strings.TrimSpace(line))
	}
	return b.String(), true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
