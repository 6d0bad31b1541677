package utils

import (
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

// WalkFiles calls fn for every regular file under root, skipping any
// directory whose base name is listed in skipDirs.
func WalkFiles(fsys afero.Fs, root string, skipDirs []string, fn func(path string, info fs.FileInfo) error) error {
	return afero.Walk(fsys, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if p != root && slices.Contains(skipDirs, info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		return fn(p, info)
	})
}

// WriteFile creates parent directories before writing.
func WriteFile(fsys afero.Fs, path string, data []byte) error {
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := afero.WriteFile(fsys, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// CopyFile copies src to dst, possibly across filesystems.
func CopyFile(srcFs, dstFs afero.Fs, src, dst string) error {
	in, err := srcFs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	if err := dstFs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}
	out, err := dstFs.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}

// CopyDir copies a directory tree. onWrite, when set, is called for every file written.
func CopyDir(srcFs, dstFs afero.Fs, srcDir, dstDir string, onWrite func(string)) error {
	return WalkFiles(srcFs, srcDir, nil, func(p string, _ fs.FileInfo) error {
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dstDir, rel)
		if err := CopyFile(srcFs, dstFs, p, target); err != nil {
			return err
		}
		if onWrite != nil {
			onWrite(target)
		}
		return nil
	})
}

// IsFresh reports whether target exists and is not older than source.
func IsFresh(fsys afero.Fs, target, source string) bool {
	ti, err := fsys.Stat(target)
	if err != nil {
		return false
	}
	si, err := fsys.Stat(source)
	if err != nil {
		return false
	}
	return !ti.ModTime().Before(si.ModTime())
}

// ToSlashRel returns target relative to base using forward slashes.
func ToSlashRel(base, target string) (string, error) {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside %s", target, base)
	}
	return rel, nil
}

// WriteFileAtomic writes to a sibling temp file and renames it over path, so
// readers never observe a partially written file.
func WriteFileAtomic(fsys afero.Fs, path string, data []byte) error {
	tmp := path + ".tmp"
	if err := WriteFile(fsys, tmp, data); err != nil {
		return err
	}
	if err := fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
