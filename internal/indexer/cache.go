package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fpm-git/gabagool/internal/entity"
	"github.com/fpm-git/gabagool/internal/errors"
)

const cacheIndexVersion = 1

type cacheEntry struct {
	ContentHash    string `json:"content_hash"`
	DescriptorPath string `json:"descriptor_path"`
	FlattenVersion string `json:"flatten_version"`
}

type cacheIndex struct {
	Version int                   `json:"version"`
	Entries map[string]cacheEntry `json:"entries"`
}

// descriptorCache stores flattened descriptors keyed by source path. An entry
// is only used when both the content hash and the flattener version match.
type descriptorCache struct {
	dir            string
	flattenVersion string
	mu             sync.Mutex
	index          cacheIndex
}

func newDescriptorCache(dir, flattenVersion string) *descriptorCache {
	return &descriptorCache{
		dir:            dir,
		flattenVersion: flattenVersion,
		index: cacheIndex{
			Version: cacheIndexVersion,
			Entries: make(map[string]cacheEntry),
		},
	}
}

func (c *descriptorCache) indexPath() string {
	return filepath.Join(c.dir, "index.json")
}

func (c *descriptorCache) descriptorPathForFile(filePath string) string {
	h := sha256.Sum256([]byte(filePath))
	return filepath.Join(c.dir, "descriptors", hex.EncodeToString(h[:])+".json")
}

func (c *descriptorCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return errors.Wrap(err, "cache mkdir")
	}
	data, err := os.ReadFile(c.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "read cache index")
	}
	var idx cacheIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return errors.Wrap(err, "parse cache index")
	}
	if idx.Version != cacheIndexVersion {
		c.index = cacheIndex{Version: cacheIndexVersion, Entries: make(map[string]cacheEntry)}
		return nil
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]cacheEntry)
	}
	c.index = idx
	return nil
}

func (c *descriptorCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeJSONAtomic(c.indexPath(), c.index)
}

// Get returns the cached descriptor for filePath. Identity fields (name, file,
// kind, owner) are left for the caller to set from the current source.
func (c *descriptorCache) Get(filePath, contentHash string) (*entity.Descriptor, bool, error) {
	c.mu.Lock()
	entry, ok := c.index.Entries[filePath]
	c.mu.Unlock()
	if !ok || entry.ContentHash != contentHash || entry.FlattenVersion != c.flattenVersion {
		return nil, false, nil
	}

	data, err := os.ReadFile(entry.DescriptorPath)
	if err != nil {
		return nil, false, errors.Wrap(err, "read cached descriptor")
	}
	var d entity.Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, false, errors.Wrap(err, "parse cached descriptor")
	}
	if d.Attributes == nil {
		d.Attributes = []*entity.Attribute{}
	}
	if d.Functions == nil {
		d.Functions = []*entity.Function{}
	}
	d.Imports = entity.NewNameSet()
	return &d, true, nil
}

func (c *descriptorCache) Put(filePath, contentHash string, d *entity.Descriptor) error {
	path := c.descriptorPathForFile(filePath)
	if err := writeJSONAtomic(path, d); err != nil {
		return err
	}

	c.mu.Lock()
	c.index.Entries[filePath] = cacheEntry{
		ContentHash:    contentHash,
		DescriptorPath: path,
		FlattenVersion: c.flattenVersion,
	}
	c.mu.Unlock()
	return nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal cache json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "cache dir")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return errors.Wrap(err, "temp cache file")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "write cache file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "close cache file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "rename cache file")
	}
	return nil
}

func hashContent(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}
