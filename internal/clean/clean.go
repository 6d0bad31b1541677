// Package clean removes build output and, on request, the artifact cache.
package clean

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/pustelto/sitepipe/builder/config"
)

// Run removes the output dir, and the cache dir too when cleanCache is set.
// Missing dirs are not an error.
func Run(fs afero.Fs, cfg *config.Config, cleanCache bool) error {
	start := time.Now()
	dirs := []string{cfg.Paths.Output}
	if cleanCache {
		dirs = append(dirs, cfg.Paths.Cache)
	}

	var g errgroup.Group
	for _, dir := range dirs {
		g.Go(func() error { return removeDir(fs, dir) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Printf("🧹 Clean finished in %v.\n", time.Since(start).Round(time.Millisecond))
	return nil
}

// removeDir moves dir aside before deleting it, so a half-deleted tree is
// never left under the original name.
func removeDir(fs afero.Fs, dir string) error {
	if _, err := fs.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	trash := filepath.Join(filepath.Dir(dir), fmt.Sprintf("%s_deleting_%d", filepath.Base(dir), time.Now().UnixNano()))
	fmt.Printf("🧹 Removing '%s'...\n", dir)
	if err := fs.Rename(dir, trash); err != nil {
		fmt.Printf("⚠️ Rename failed (%v), deleting in place...\n", err)
		trash = dir
	}
	if err := fs.RemoveAll(trash); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}
	return nil
}
