// Package archive packs and extracts the compressed state bundles moved
// through the Archive sync channel.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jbctechsolutions/clawsync/internal/infrastructure/security"
)

// Pack writes a gzip-compressed tarball of the named subtrees to w. Each
// subtree appears in the archive under its base name. Entries matching an
// exclude pattern at any depth are skipped. Missing subtrees are skipped
// rather than failing the whole bundle.
func Pack(w io.Writer, subtrees []string, exclude []string) error {
	gw := gzip.NewWriter(w)
	tw := tar.NewWriter(gw)

	for _, root := range subtrees {
		if _, err := os.Stat(root); os.IsNotExist(err) {
			continue
		}
		base := filepath.Base(root)

		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			name := base
			if rel != "." {
				name = filepath.Join(base, rel)
			}
			for _, part := range strings.Split(name, string(filepath.Separator)) {
				for _, pat := range exclude {
					if part == pat {
						if info.IsDir() {
							return filepath.SkipDir
						}
						return nil
					}
				}
			}

			hdr, err := tar.FileInfoHeader(info, "")
			if err != nil {
				return err
			}
			hdr.Name = filepath.ToSlash(name)
			if err := tw.WriteHeader(hdr); err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = io.Copy(tw, f)
			return err
		})
		if err != nil {
			return fmt.Errorf("pack %s: %w", root, err)
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gw.Close()
}

// Extract unpacks a gzip-compressed tarball into dst. Entry names are
// sanitized against path traversal.
func Extract(r io.Reader, dst string) error {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read archive entry: %w", err)
		}

		target, err := security.ResolveUnder(dst, hdr.Name)
		if err != nil {
			return fmt.Errorf("archive entry escapes destination: %w", err)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode).Perm())
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		default:
			// Symlinks and specials are not part of the state tree contract.
		}
	}
}
