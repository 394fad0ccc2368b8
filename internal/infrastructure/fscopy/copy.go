// Package fscopy implements the two tree-copy disciplines of the sync
// subsystem: additive copy (never removes destination entries) and
// destructive mirror (destination key set ends equal to the source's).
package fscopy

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Options controls a tree copy.
type Options struct {
	// Exclude lists base names skipped at any depth (e.g. node_modules, .git).
	Exclude []string
}

func (o Options) excluded(name string) bool {
	for _, pat := range o.Exclude {
		if name == pat {
			return true
		}
	}
	return false
}

// CopyTree additively copies src into dst: every source entry is written
// over the destination, entries present only in dst are left untouched.
// A missing src is not an error; there is simply nothing to copy.
func CopyTree(src, dst string, opts Options) error {
	info, err := os.Stat(src)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat source %s: %w", src, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source %s is not a directory", src)
	}

	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return os.MkdirAll(dst, 0o755)
		}
		for _, part := range strings.Split(rel, string(filepath.Separator)) {
			if opts.excluded(part) {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target, info.Mode())
	})
}

// MirrorTree destructively mirrors src into dst: after it returns, dst's
// key set equals src's (excluded names are neither copied nor deleted).
// Only safe for subtrees fully owned by the source container. A missing
// src is a no-op, never a full prune of dst.
func MirrorTree(src, dst string, opts Options) error {
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil
	}
	if err := CopyTree(src, dst, opts); err != nil {
		return err
	}
	return pruneExtra(src, dst, opts)
}

// pruneExtra removes destination entries with no source counterpart.
func pruneExtra(src, dst string, opts Options) error {
	entries, err := os.ReadDir(dst)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read destination %s: %w", dst, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if opts.excluded(name) {
			continue
		}

		srcPath := filepath.Join(src, name)
		dstPath := filepath.Join(dst, name)

		srcInfo, err := os.Stat(srcPath)
		if os.IsNotExist(err) {
			if err := os.RemoveAll(dstPath); err != nil {
				return fmt.Errorf("prune %s: %w", dstPath, err)
			}
			continue
		}
		if err != nil {
			return err
		}

		if entry.IsDir() && srcInfo.IsDir() {
			if err := pruneExtra(srcPath, dstPath, opts); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
