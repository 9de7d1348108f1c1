package index

import (
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/Paranoid-AF/vctrace"
)

// RecordCache is a TTL cache of recently produced trace records keyed by request ID.
type RecordCache struct {
	cache *ttlcache.Cache[string, *vctrace.TraceRecord]
}

// NewRecordCache creates a cache whose entries expire after ttl. A capacity of
// zero means unbounded.
func NewRecordCache(ttl time.Duration, capacity uint64) *RecordCache {
	opts := []ttlcache.Option[string, *vctrace.TraceRecord]{
		ttlcache.WithTTL[string, *vctrace.TraceRecord](ttl),
		ttlcache.WithDisableTouchOnHit[string, *vctrace.TraceRecord](),
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, *vctrace.TraceRecord](capacity))
	}
	c := ttlcache.New[string, *vctrace.TraceRecord](opts...)
	go c.Start()
	return &RecordCache{cache: c}
}

// Close stops the cache expiration loop.
func (rc *RecordCache) Close() {
	rc.cache.Stop()
}

// Put stores a copy of r.
func (rc *RecordCache) Put(r *vctrace.TraceRecord) {
	rc.cache.Set(r.RequestID, r.Clone(), ttlcache.DefaultTTL)
}

// Get returns a copy of the cached record, or nil if not cached/expired.
func (rc *RecordCache) Get(requestID string) *vctrace.TraceRecord {
	item := rc.cache.Get(requestID)
	if item == nil {
		return nil
	}
	return item.Value().Clone()
}

// Delete evicts requestID.
func (rc *RecordCache) Delete(requestID string) {
	rc.cache.Delete(requestID)
}

// Len returns the number of cached records.
func (rc *RecordCache) Len() int {
	return rc.cache.Len()
}
