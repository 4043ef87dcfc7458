package render

import (
	"mime"
	"path"
	"time"

	"github.com/go-lynx/renderpool/app/cache"
)

// CacheData is one rendered binary held in memory.
type CacheData struct {
	Key       string
	Data      []byte
	MimeType  string
	CreatedAt time.Time
}

// Len returns the payload size; the binary cache uses it as the entry cost.
func (d CacheData) Len() int {
	return len(d.Data)
}

// BinaryStore keeps rendered images that are served from memory rather than written to disk.
type BinaryStore struct {
	c *cache.Cache
}

// NewBinaryStore returns a BinaryStore backed by c. Build c with cache.BinaryCacheBuilder so
// that entries are costed by size.
func NewBinaryStore(c *cache.Cache) *BinaryStore {
	return &BinaryStore{c: c}
}

// Put stores data under key and returns key.
func (s *BinaryStore) Put(key string, data []byte) (string, error) {
	mt := mime.TypeByExtension(path.Ext(key))
	if mt == "" {
		mt = "application/octet-stream"
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	if err := s.c.Set(key, CacheData{Key: key, Data: buf, MimeType: mt, CreatedAt: time.Now()}, 0); err != nil {
		return "", err
	}
	return key, nil
}

// Get returns the entry stored under key.
func (s *BinaryStore) Get(key string) (CacheData, bool) {
	v, err := s.c.Get(key)
	if err != nil {
		return CacheData{}, false
	}
	d, ok := v.(CacheData)
	return d, ok
}

// Has reports whether key is stored.
func (s *BinaryStore) Has(key string) bool {
	return s.c.Has(key)
}
