package publish

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mmr-tortoise/git-publish/internal/model"
)

// extractTarball stream-extracts a gzip'd package tarball into destDir,
// stripping the synthetic single top-level directory component that
// packaging tools prepend (npm uses "package/"), and returns the
// manifest of extracted regular files sorted lexicographically by path.
//
// Directory entries create directories but are not recorded; entry
// types other than files and directories (symlinks, devices) are
// skipped: registry tarballs never contain them, and materializing
// them from an external tool's output would be a hazard.
//
// Zero extracted files is a packaging misconfiguration and yields
// KindNoPublishableFiles.
func extractTarball(tarballPath, destDir string) (model.PackedFileManifest, error) {
	f, err := os.Open(tarballPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open tarball: %w", err)
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, model.WrapCLIError(model.KindPackagingFailed,
			"tarball is not gzip-compressed", err)
	}
	defer func() { _ = gz.Close() }()

	var files model.PackedFileManifest

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, model.WrapCLIError(model.KindPackagingFailed,
				"failed to read tarball entry", err)
		}

		rel, ok := stripRootComponent(hdr.Name)
		if !ok {
			// The synthetic root directory entry itself, or an entry
			// outside it. Nothing to materialize.
			continue
		}

		target, err := securePath(destDir, rel)
		if err != nil {
			return nil, err
		}
		rel = path.Clean(rel)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", rel, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return nil, fmt.Errorf("failed to create directory for %s: %w", rel, err)
			}
			if err := writeFileFrom(tr, target, hdr.FileInfo().Mode().Perm()); err != nil {
				return nil, fmt.Errorf("failed to extract %s: %w", rel, err)
			}
			files = append(files, model.PackedFile{Path: rel, Size: hdr.Size})
		}
	}

	if len(files) == 0 {
		return nil, model.NewCLIError(model.KindNoPublishableFiles,
			"pack command produced no publishable files")
	}

	files.Sort()
	return files, nil
}

// stripRootComponent removes the tarball's first path component.
// Returns ok=false for entries that have no component below the root
// (the root directory itself).
//
// The remainder is deliberately NOT cleaned here: lexical cleaning
// would collapse ".." components and turn an escaping entry into an
// innocent-looking local path before securePath can reject it.
func stripRootComponent(name string) (string, bool) {
	name = strings.TrimPrefix(name, "./")
	idx := strings.IndexByte(name, '/')
	if idx < 0 {
		return "", false
	}
	rel := name[idx+1:]
	if rel == "" || rel == "." {
		return "", false
	}
	return rel, true
}

// securePath joins rel onto destDir and rejects entries that would
// escape it. Tar entries come from an external tool's output and are
// treated as untrusted input.
func securePath(destDir, rel string) (string, error) {
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return "", model.NewCLIError(model.KindPackagingFailed,
			fmt.Sprintf("tarball entry %q escapes the extraction directory", rel))
	}
	return filepath.Join(destDir, filepath.FromSlash(rel)), nil
}

// writeFileFrom copies r into a newly created file at target.
func writeFileFrom(r io.Reader, target string, perm os.FileMode) error {
	// Normalize permissions: keep the executable bit, drop everything
	// exotic. Git only tracks the executable bit anyway.
	mode := os.FileMode(0644)
	if perm&0100 != 0 {
		mode = 0755
	}

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(out, r)
	closeErr := out.Close()
	if copyErr != nil {
		return copyErr
	}
	return closeErr
}
