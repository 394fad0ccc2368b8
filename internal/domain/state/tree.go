// Package state models the local state tree of the agent container: the
// three disjoint directories the sync subsystem reads and restores.
package state

import (
	"os"
	"path/filepath"
)

// ConfigFileName is the agent's primary configuration file. Its presence
// distinguishes a populated tree from a fresh or broken one.
const ConfigFileName = "clawdbot.json"

// TransientPatterns names directory entries excluded from every push and
// mirror: dependency caches and version-control metadata that are heavy,
// reproducible, or both.
var TransientPatterns = []string{
	"node_modules",
	".git",
	"__pycache__",
	".venv",
	".cache",
}

// MemoryArtifacts are the workspace entries whose presence marks a restored
// workspace as usable. A restored layout lacking all of them fails the
// post-restore sanity check.
var MemoryArtifacts = []string{
	"memory",
	"MEMORY.md",
	"SOUL.md",
}

// Tree locates the local state tree. Config and skills are fully owned by
// this container and safe to mirror destructively; workspace accumulates
// cross-session data and must only ever be synced additively.
type Tree struct {
	Root string
}

// NewTree returns a Tree rooted at the given directory.
func NewTree(root string) Tree {
	return Tree{Root: root}
}

// ConfigDir returns the config directory (secrets and per-channel settings).
func (t Tree) ConfigDir() string {
	return filepath.Join(t.Root, "config")
}

// SkillsDir returns the installed-extensions directory.
func (t Tree) SkillsDir() string {
	return filepath.Join(t.Root, "skills")
}

// WorkspaceDir returns the free-form memory/identity directory.
func (t Tree) WorkspaceDir() string {
	return filepath.Join(t.Root, "workspace")
}

// ConfigFile returns the path of the agent's primary config file.
func (t Tree) ConfigFile() string {
	return filepath.Join(t.ConfigDir(), ConfigFileName)
}

// MarkerPath returns the local sync marker path.
func (t Tree) MarkerPath() string {
	return filepath.Join(t.Root, ".last-sync")
}

// HasConfig reports whether the primary config file exists. The scheduler
// skips ticks while it is absent so an empty tree never overwrites good
// remote data.
func (t Tree) HasConfig() bool {
	info, err := os.Stat(t.ConfigFile())
	return err == nil && !info.IsDir()
}

// HasMemoryArtifact reports whether any workspace memory artifact exists
// under the given workspace directory.
func HasMemoryArtifact(workspaceDir string) bool {
	for _, name := range MemoryArtifacts {
		if _, err := os.Stat(filepath.Join(workspaceDir, name)); err == nil {
			return true
		}
	}
	return false
}

// EnsureDirs creates the three state directories if they do not exist.
func (t Tree) EnsureDirs() error {
	for _, dir := range []string{t.ConfigDir(), t.SkillsDir(), t.WorkspaceDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// ReadMarker reads the local sync marker file. A missing file yields an
// empty string, which the marker policy treats as epoch zero.
func (t Tree) ReadMarker() string {
	data, err := os.ReadFile(t.MarkerPath())
	if err != nil {
		return ""
	}
	return string(data)
}

// WriteMarker persists the local sync marker.
func (t Tree) WriteMarker(raw string) error {
	return os.WriteFile(t.MarkerPath(), []byte(raw), 0o644)
}
