// Package security provides path validation for untrusted inputs: remote
// object keys name local files during restore and must never escape the
// directory they resolve under.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolveUnder joins a relative slash-separated name under root and verifies
// the result stays inside root. It rejects absolute names and any traversal
// that would land outside root.
func ResolveUnder(root, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty path")
	}
	if strings.HasPrefix(name, "/") || filepath.IsAbs(filepath.FromSlash(name)) {
		return "", fmt.Errorf("absolute path not allowed: %s", name)
	}

	cleanRoot := filepath.Clean(root)
	target := filepath.Join(cleanRoot, filepath.FromSlash(name))

	if target != cleanRoot && !strings.HasPrefix(target, cleanRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes %s: %s", root, name)
	}
	return target, nil
}

// ValidateKey checks that a remote object key is usable as a relative path:
// non-empty, slash-separated, and free of traversal components.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("key must be relative: %s", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return fmt.Errorf("key contains traversal component: %s", key)
		}
	}
	return nil
}
