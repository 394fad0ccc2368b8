package fscopy

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, dir, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, rel))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

func exists(dir, rel string) bool {
	_, err := os.Stat(filepath.Join(dir, rel))
	return err == nil
}

func TestCopyTree_Additive(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	writeFile(t, src, "memory/2026-01-27.md", "session notes")
	writeFile(t, src, "MEMORY.md", "updated")
	writeFile(t, dst, "MEMORY.md", "stale")
	writeFile(t, dst, "only-on-dest.md", "keep me")

	if err := CopyTree(src, dst, Options{}); err != nil {
		t.Fatalf("CopyTree: %v", err)
	}

	// Destination key set is D ∪ S: nothing removed, source wins on overlap.
	if !exists(dst, "only-on-dest.md") {
		t.Error("additive copy must not remove destination-only entries")
	}
	if got := readFile(t, dst, "MEMORY.md"); got != "updated" {
		t.Errorf("overlapping key should take source content, got %q", got)
	}
	if got := readFile(t, dst, "memory/2026-01-27.md"); got != "session notes" {
		t.Errorf("nested source file not copied, got %q", got)
	}
}

func TestCopyTree_MissingSource(t *testing.T) {
	dst := t.TempDir()
	writeFile(t, dst, "kept.md", "x")

	if err := CopyTree(filepath.Join(t.TempDir(), "nope"), dst, Options{}); err != nil {
		t.Fatalf("missing source should be a no-op, got %v", err)
	}
	if !exists(dst, "kept.md") {
		t.Error("destination must be untouched")
	}
}

func TestCopyTree_Excludes(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	writeFile(t, src, "node_modules/pkg/index.js", "x")
	writeFile(t, src, ".git/HEAD", "ref")
	writeFile(t, src, "kept.md", "x")

	opts := Options{Exclude: []string{"node_modules", ".git"}}
	if err := CopyTree(src, dst, opts); err != nil {
		t.Fatalf("CopyTree: %v", err)
	}

	if exists(dst, "node_modules") || exists(dst, ".git") {
		t.Error("excluded entries must not be copied")
	}
	if !exists(dst, "kept.md") {
		t.Error("non-excluded entry missing")
	}
}

func TestMirrorTree_MissingSource(t *testing.T) {
	dst := t.TempDir()
	writeFile(t, dst, "kept.md", "x")

	if err := MirrorTree(filepath.Join(t.TempDir(), "nope"), dst, Options{}); err != nil {
		t.Fatalf("missing source should be a no-op, got %v", err)
	}
	if !exists(dst, "kept.md") {
		t.Error("missing source must never prune the destination")
	}
}

func TestMirrorTree_Destructive(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	writeFile(t, src, "clawdbot.json", `{"agent":"main"}`)
	writeFile(t, src, "channels/slack.json", "{}")
	writeFile(t, dst, "removed-skill/skill.yaml", "old")
	writeFile(t, dst, "clawdbot.json", "stale")

	if err := MirrorTree(src, dst, Options{}); err != nil {
		t.Fatalf("MirrorTree: %v", err)
	}

	// Destination key set equals source key set exactly.
	if exists(dst, "removed-skill") {
		t.Error("mirror must prune destination-only entries")
	}
	if got := readFile(t, dst, "clawdbot.json"); got != `{"agent":"main"}` {
		t.Errorf("mirror content = %q", got)
	}
	if !exists(dst, "channels/slack.json") {
		t.Error("nested source entry missing after mirror")
	}
}

func TestMirrorTree_ExcludedNotPruned(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	writeFile(t, src, "a.md", "x")
	writeFile(t, dst, "node_modules/pkg/index.js", "installed")

	opts := Options{Exclude: []string{"node_modules"}}
	if err := MirrorTree(src, dst, opts); err != nil {
		t.Fatalf("MirrorTree: %v", err)
	}

	if !exists(dst, "node_modules/pkg/index.js") {
		t.Error("excluded destination entries must survive a mirror")
	}
}

func TestMirrorTree_PrunesNested(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	writeFile(t, src, "sub/keep.md", "x")
	writeFile(t, dst, "sub/keep.md", "x")
	writeFile(t, dst, "sub/drop.md", "y")

	if err := MirrorTree(src, dst, Options{}); err != nil {
		t.Fatalf("MirrorTree: %v", err)
	}

	if exists(dst, "sub/drop.md") {
		t.Error("nested destination-only file must be pruned")
	}
	if !exists(dst, "sub/keep.md") {
		t.Error("shared nested file must survive")
	}
}
