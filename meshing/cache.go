package meshing

import (
	"encoding/binary"
	"fmt"

	"github.com/coocood/freecache"
	humanize "github.com/dustin/go-humanize"

	"github.com/janelia-flyem/voxterrain/dvid"
)

// ResultCache keeps recently built meshes, keyed by mesher configuration and buffer
// content, so unchanged blocks are not meshed again.  Entries are msgpack encoded, then
// serialized with the cache's compression and checksum.
type ResultCache struct {
	cache    *freecache.Cache
	compress dvid.Compression
	checksum dvid.Checksum
}

// NewResultCache returns a cache of about numBytes, or nil if numBytes is not positive.
func NewResultCache(numBytes int, compress dvid.Compression, checksum dvid.Checksum) *ResultCache {
	if numBytes <= 0 {
		return nil
	}
	dvid.Infof("Created mesh cache of ~ %s, %s, %s.\n", humanize.Bytes(uint64(numBytes)), compress, checksum)
	return &ResultCache{
		cache:    freecache.NewCache(numBytes),
		compress: compress,
		checksum: checksum,
	}
}

func resultKey(configKey string, contentHash uint64) []byte {
	k := make([]byte, len(configKey)+8)
	copy(k, configKey)
	binary.LittleEndian.PutUint64(k[len(configKey):], contentHash)
	return k
}

// Format returns the compression and checksum of stored meshes.
func (rc *ResultCache) Format() (dvid.Compression, dvid.Checksum) {
	return rc.compress, rc.checksum
}

// Get decodes a cached mesh into out.  It returns false on a miss.
func (rc *ResultCache) Get(configKey string, contentHash uint64, out *Output) (bool, error) {
	if rc == nil {
		return false, nil
	}
	s, err := rc.cache.Get(resultKey(configKey, contentHash))
	if err == freecache.ErrNotFound {
		instrumentCache(false)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	data, _, err := dvid.DeserializeData(s, true)
	if err != nil {
		return false, fmt.Errorf("cached mesh: %w", err)
	}
	out.Reset()
	if _, err := out.UnmarshalMsg(data); err != nil {
		return false, fmt.Errorf("cached mesh: %w", err)
	}
	instrumentCache(true)
	return true, nil
}

// Set stores a mesh.
func (rc *ResultCache) Set(configKey string, contentHash uint64, out *Output) error {
	if rc == nil {
		return nil
	}
	data, err := out.MarshalMsg(nil)
	if err != nil {
		return err
	}
	s, err := dvid.SerializeData(data, rc.compress, rc.checksum)
	if err != nil {
		return err
	}
	return rc.cache.Set(resultKey(configKey, contentHash), s, 0)
}

// Len returns the number of cached meshes.
func (rc *ResultCache) Len() int64 {
	if rc == nil {
		return 0
	}
	return rc.cache.EntryCount()
}

// HitRate returns the fraction of lookups that found a mesh.
func (rc *ResultCache) HitRate() float64 {
	if rc == nil {
		return 0
	}
	return rc.cache.HitRate()
}

func (rc *ResultCache) Clear() {
	if rc != nil {
		rc.cache.Clear()
	}
}
