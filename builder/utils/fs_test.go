package utils

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func TestCopyDirAndWalk(t *testing.T) {
	src := afero.NewMemMapFs()
	dst := afero.NewMemMapFs()
	for _, f := range []string{"src/fonts/a.woff2", "src/fonts/sub/b.woff2", "src/_includes/x.html"} {
		if err := WriteFile(src, filepath.FromSlash(f), []byte(f)); err != nil {
			t.Fatal(err)
		}
	}

	var written []string
	if err := CopyDir(src, dst, filepath.Join("src", "fonts"), filepath.Join("_site", "fonts"), func(p string) {
		written = append(written, p)
	}); err != nil {
		t.Fatal(err)
	}
	if len(written) != 2 {
		t.Fatalf("written = %v", written)
	}
	data, err := afero.ReadFile(dst, filepath.Join("_site", "fonts", "sub", "b.woff2"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "src/fonts/sub/b.woff2" {
		t.Errorf("copied content = %q", data)
	}

	var seen []string
	err = WalkFiles(src, "src", []string{"_includes"}, func(p string, _ fs.FileInfo) error {
		seen = append(seen, p)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 {
		t.Errorf("WalkFiles should skip _includes, saw %v", seen)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	fsys := afero.NewMemMapFs()
	p := filepath.Join("out", "a.css")
	if err := WriteFileAtomic(fsys, p, []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(fsys, p, []byte("two")); err != nil {
		t.Fatal(err)
	}
	data, _ := afero.ReadFile(fsys, p)
	if string(data) != "two" {
		t.Errorf("content = %q", data)
	}
	if ok, _ := afero.Exists(fsys, p+".tmp"); ok {
		t.Error("temp file left behind")
	}
}

func TestToSlashRel(t *testing.T) {
	rel, err := ToSlashRel("_site", filepath.Join("_site", "blog", "index.html"))
	if err != nil || rel != "blog/index.html" {
		t.Errorf("ToSlashRel = %q, %v", rel, err)
	}
	if _, err := ToSlashRel(filepath.Join("_site", "blog"), "_site"); err == nil {
		t.Error("expected error for path outside base")
	}
}
