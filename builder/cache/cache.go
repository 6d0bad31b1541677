package cache

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Manager provides the main cache interface
type Manager struct {
	db       *bolt.DB
	store    *Store
	basePath string
	mu       sync.RWMutex
}

// Open opens or creates a cache at the given path
func Open(basePath string, isDev bool) (*Manager, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	opts := &bolt.Options{
		Timeout:      10 * time.Second,
		FreelistType: bolt.FreelistArrayType,
		NoGrowSync:   isDev,
	}

	db, err := bolt.Open(filepath.Join(basePath, "meta.db"), 0644, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB: %w", err)
	}

	store, err := NewStore(filepath.Join(basePath, "store"))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	m := &Manager{db: db, store: store, basePath: basePath}
	if err := m.initSchema(); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return m, nil
}

// Close closes the cache
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store != nil {
		_ = m.store.Close()
		m.store = nil
	}
	if m.db != nil {
		err := m.db.Close()
		m.db = nil
		return err
	}
	return nil
}

// initSchema creates all buckets if they don't exist
func (m *Manager) initSchema() error {
	return m.db.Update(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets() {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}

		meta := tx.Bucket([]byte(BucketMeta))
		if meta.Get([]byte(KeySchemaVersion)) == nil {
			v := make([]byte, 4)
			binary.BigEndian.PutUint32(v, SchemaVersion)
			if err := meta.Put([]byte(KeySchemaVersion), v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Lookup returns the cached output for key, if any. A record whose blob has
// gone missing counts as a miss.
func (m *Manager) Lookup(namespace, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	artifact, err := getItem[Artifact](m.db, BucketArtifacts, artifactKey(namespace, key))
	if err != nil {
		return nil, false, err
	}
	if artifact == nil {
		return nil, false, nil
	}
	content, err := m.store.Get(namespace, artifact.OutputHash, artifact.Compression)
	if err != nil {
		return nil, false, nil
	}
	return content, true, nil
}

// Save stores content as the output for key.
func (m *Manager) Save(namespace, key, item string, content []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hash, ct, err := m.store.Put(namespace, content)
	if err != nil {
		return fmt.Errorf("failed to store %s artifact: %w", namespace, err)
	}
	artifact := &Artifact{
		Namespace:   namespace,
		Key:         key,
		Item:        item,
		OutputHash:  hash,
		Size:        int64(len(content)),
		Compression: ct,
		CreatedAt:   time.Now().Unix(),
	}
	return putItem(m.db, BucketArtifacts, artifactKey(namespace, key), artifact)
}

// Stats returns current cache statistics
func (m *Manager) Stats() (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{Artifacts: make(map[string]int), SchemaVersion: SchemaVersion}
	err := m.db.View(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(BucketArtifacts)).ForEach(func(_, v []byte) error {
			var a Artifact
			if err := Decode(v, &a); err == nil {
				stats.Artifacts[a.Namespace]++
			}
			return nil
		}); err != nil {
			return err
		}

		statsBucket := tx.Bucket([]byte(BucketStats))
		if data := statsBucket.Get([]byte(KeyBuildCount)); data != nil {
			stats.BuildCount = int(binary.BigEndian.Uint32(data))
		}
		if data := statsBucket.Get([]byte(KeyLastPrune)); data != nil {
			stats.LastPrune = int64(binary.BigEndian.Uint64(data))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, ns := range AllNamespaces() {
		size, err := m.store.Size(ns)
		if err != nil {
			return nil, err
		}
		stats.StoreBytes += size
	}
	return stats, nil
}

// Clear removes all cache data and reopens an empty cache in place.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_ = m.store.Close()
	_ = m.db.Close()
	if err := os.RemoveAll(m.basePath); err != nil {
		return fmt.Errorf("failed to remove cache: %w", err)
	}

	fresh, err := Open(m.basePath, false)
	if err != nil {
		return err
	}
	m.db = fresh.db
	m.store = fresh.store
	return nil
}

// IncrementBuildCount increments the build counter
func (m *Manager) IncrementBuildCount() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.db.Update(func(tx *bolt.Tx) error {
		statsBucket := tx.Bucket([]byte(BucketStats))
		count := uint32(1)
		if data := statsBucket.Get([]byte(KeyBuildCount)); data != nil {
			count = binary.BigEndian.Uint32(data) + 1
		}
		v := make([]byte, 4)
		binary.BigEndian.PutUint32(v, count)
		return statsBucket.Put([]byte(KeyBuildCount), v)
	})
}

// Prune deletes store blobs that no artifact record references any more.
func (m *Manager) Prune() (removed int, freed int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := make(map[string]bool)
	err = m.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketArtifacts)).ForEach(func(_, v []byte) error {
			var a Artifact
			if err := Decode(v, &a); err == nil {
				live[a.Namespace+"/"+a.OutputHash] = true
			}
			return nil
		})
	})
	if err != nil {
		return 0, 0, err
	}

	for _, ns := range AllNamespaces() {
		var dead []string
		err := m.store.walk(ns, func(hash string, size int64) {
			if !live[ns+"/"+hash] {
				dead = append(dead, hash)
				freed += size
			}
		})
		if err != nil {
			return removed, freed, err
		}
		for _, hash := range dead {
			m.store.Delete(ns, hash)
			removed++
		}
	}

	err = m.db.Update(func(tx *bolt.Tx) error {
		v := make([]byte, 8)
		binary.BigEndian.PutUint64(v, uint64(time.Now().Unix()))
		return tx.Bucket([]byte(BucketStats)).Put([]byte(KeyLastPrune), v)
	})
	return removed, freed, err
}
