// Package cache provides a BoltDB + content-addressed filesystem cache for
// generated artifacts: critical CSS pages and social images. A hit lets the
// pipeline skip launching a browser.
package cache

import (
	"encoding/hex"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/blake3"
)

// Artifact records where the output for one input hash lives in the store.
type Artifact struct {
	Namespace   string          `msgpack:"namespace"`
	Key         string          `msgpack:"key"`  // BLAKE3 of everything that affects the output
	Item        string          `msgpack:"item"` // page path or manifest title, for stats and logs
	OutputHash  string          `msgpack:"output_hash"`
	Size        int64           `msgpack:"size"`
	Compression CompressionType `msgpack:"compression"`
	CreatedAt   int64           `msgpack:"created_at"`
}

// Stats holds cache statistics
type Stats struct {
	Artifacts     map[string]int
	StoreBytes    int64
	BuildCount    int
	LastPrune     int64
	SchemaVersion int
}

// CompressionType indicates how an artifact is stored
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionZstdFast
	CompressionZstdDefault
)

func (c CompressionType) String() string {
	switch c {
	case CompressionZstdFast:
		return "zstd-fast"
	case CompressionZstdDefault:
		return "zstd"
	default:
		return "raw"
	}
}

const (
	RawThreshold  = 4 * 1024   // < 4KB stored raw
	FastZstdMax   = 256 * 1024 // 4KB-256KB use zstd fast
	SchemaVersion = 1
)

// HashContent computes BLAKE3 hash of content and returns hex string
func HashContent(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Encode serializes a value to msgpack bytes
func Encode(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Decode deserializes msgpack bytes to a value
func Decode(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}

func artifactKey(namespace, key string) []byte {
	return []byte(namespace + ":" + key)
}
