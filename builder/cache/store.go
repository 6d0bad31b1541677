package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Store is content-addressed file storage sharded as category/hash[0:2]/hash[2:4]/hash.
type Store struct {
	basePath string
	fast     *zstd.Encoder
	best     *zstd.Encoder
	decoder  *zstd.Decoder
}

func NewStore(basePath string) (*Store, error) {
	fast, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	best, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = fast.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		_ = fast.Close()
		_ = best.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Store{basePath: basePath, fast: fast, best: best, decoder: decoder}, nil
}

func (s *Store) Close() error {
	_ = s.fast.Close()
	_ = s.best.Close()
	s.decoder.Close()
	return nil
}

func (s *Store) shardPath(category, hash string) string {
	if len(hash) < 4 {
		return filepath.Join(s.basePath, category, hash)
	}
	return filepath.Join(s.basePath, category, hash[0:2], hash[2:4], hash)
}

func extension(ct CompressionType) string {
	if ct == CompressionNone {
		return ".raw"
	}
	return ".zst"
}

func determineCompression(size int) CompressionType {
	switch {
	case size < RawThreshold:
		return CompressionNone
	case size < FastZstdMax:
		return CompressionZstdFast
	default:
		return CompressionZstdDefault
	}
}

// Put stores content under its BLAKE3 hash. Writing existing content is a no-op.
func (s *Store) Put(category string, content []byte) (string, CompressionType, error) {
	hash := HashContent(content)
	ct := determineCompression(len(content))
	path := s.shardPath(category, hash) + extension(ct)

	if _, err := os.Stat(path); err == nil {
		return hash, ct, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create directory: %w", err)
	}

	data := content
	switch ct {
	case CompressionZstdFast:
		data = s.fast.EncodeAll(content, nil)
	case CompressionZstdDefault:
		data = s.best.EncodeAll(content, nil)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, fmt.Errorf("failed to write content: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, fmt.Errorf("failed to rename file: %w", err)
	}
	return hash, ct, nil
}

// Get returns the decompressed content for hash.
func (s *Store) Get(category, hash string, ct CompressionType) ([]byte, error) {
	data, err := os.ReadFile(s.shardPath(category, hash) + extension(ct))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("artifact not found: %s", hash)
		}
		return nil, err
	}
	if ct == CompressionNone {
		return data, nil
	}
	return s.decoder.DecodeAll(data, nil)
}

// Delete removes every stored form of hash.
func (s *Store) Delete(category, hash string) {
	_ = os.Remove(s.shardPath(category, hash) + ".raw")
	_ = os.Remove(s.shardPath(category, hash) + ".zst")
}

// walk calls fn for every stored blob in category.
func (s *Store) walk(category string, fn func(hash string, size int64)) error {
	root := filepath.Join(s.basePath, category)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	return filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		name := info.Name()
		if ext := filepath.Ext(name); ext == ".raw" || ext == ".zst" {
			fn(strings.TrimSuffix(name, ext), info.Size())
		}
		return nil
	})
}

// Size returns total bytes used by a category
func (s *Store) Size(category string) (int64, error) {
	var total int64
	err := s.walk(category, func(_ string, size int64) { total += size })
	return total, err
}
