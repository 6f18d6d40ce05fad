package summarize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
)

const memoryCacheSize = 4096

// Cache stores summaries keyed by a hash of the source text and the
// model name. An LRU fronts an optional badger store on disk; when the
// disk store cannot be opened the cache degrades to memory only.
type Cache struct {
	memory *lru.Cache[string, string]
	disk   *badger.DB
}

// OpenCache opens the summary cache. dir is the badger directory; an
// empty dir means memory-only. A disk open failure is returned alongside
// a usable memory-only cache so callers can warn and keep going.
func OpenCache(dir string) (*Cache, error) {
	memory, err := lru.New[string, string](memoryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating memory cache: %w", err)
	}
	c := &Cache{memory: memory}

	if dir == "" {
		return c, nil
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return c, fmt.Errorf("opening summary cache at %s: %w", dir, err)
	}
	c.disk = db
	return c, nil
}

// Key derives the cache key for one definition's source under a model.
// Identical source always yields the same summary slot, so renames and
// moves stay cache hits.
func Key(source, model string) string {
	h := sha256.Sum256([]byte(model + "\x00" + source))
	return hex.EncodeToString(h[:])
}

// Get looks the key up in memory, then on disk. Disk hits are promoted
// into memory.
func (c *Cache) Get(key string) (string, bool) {
	if v, ok := c.memory.Get(key); ok {
		return v, true
	}
	if c.disk == nil {
		return "", false
	}

	var value string
	err := c.disk.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err != nil {
		return "", false
	}
	c.memory.Add(key, value)
	return value, true
}

// Put stores the summary in both tiers. Disk write failures are
// swallowed; the cache is an optimization, never a correctness concern.
func (c *Cache) Put(key, summary string) {
	c.memory.Add(key, summary)
	if c.disk == nil {
		return
	}
	_ = c.disk.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(summary))
	})
}

// Close releases the disk store, if any.
func (c *Cache) Close() error {
	if c.disk == nil {
		return nil
	}
	return c.disk.Close()
}
