package glyph

import (
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// CategoryInfo is the cached metadata the client keeps per server object.
// It is advisory only: the registry never knows whether an object is
// still alive server-side.
type CategoryInfo struct {
	// Category is the server class, e.g. "pw::Connector".
	Category string
	// FirstSeen is when the client first decoded this object name.
	FirstSeen time.Time
}

// Registry maps class prefixes of server object names to cached category
// metadata. Read-mostly and safe to share across sessions; it says
// nothing about whether any particular object is still alive.
// Entries age out so a long-lived client does not accumulate metadata
// for classes it stopped seeing.
type Registry struct {
	cache *ttlcache.Cache[string, CategoryInfo]
}

// defaultEntryTTL is how long a category entry survives without being
// looked up or re-learned.
const defaultEntryTTL = time.Hour

// NewRegistry creates a registry with the given entry TTL. Zero uses the
// default of one hour.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl == 0 {
		ttl = defaultEntryTTL
	}
	cache := ttlcache.New[string, CategoryInfo](
		ttlcache.WithTTL[string, CategoryInfo](ttl),
	)
	go cache.Start()
	return &Registry{cache: cache}
}

// Learn records category metadata for a class prefix, refreshing its
// TTL. An existing entry's FirstSeen is preserved.
func (r *Registry) Learn(prefix string, info CategoryInfo) {
	if existing := r.cache.Get(prefix); existing != nil {
		info.FirstSeen = existing.Value().FirstSeen
	} else if info.FirstSeen.IsZero() {
		info.FirstSeen = time.Now()
	}
	r.cache.Set(prefix, info, ttlcache.DefaultTTL)
}

// Lookup returns the cached metadata for a class prefix.
func (r *Registry) Lookup(prefix string) (CategoryInfo, bool) {
	item := r.cache.Get(prefix)
	if item == nil {
		return CategoryInfo{}, false
	}
	return item.Value(), true
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	return r.cache.Len()
}

// Close stops the registry's expiry loop.
func (r *Registry) Close() {
	r.cache.Stop()
}

// Process-wide registry shared by clients that do not supply their own.
var (
	globalRegistry     *Registry
	globalRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry singleton.
func DefaultRegistry() *Registry {
	globalRegistryOnce.Do(func() {
		globalRegistry = NewRegistry(0)
	})
	return globalRegistry
}
