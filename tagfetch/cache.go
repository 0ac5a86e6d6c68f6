package tagfetch

import (
	"context"
	"time"

	"github.com/c360/audiostreams/pkg/cache"
)

// CachedScanner wraps a TrackScanner with an LRU cache of successful
// scan results. Hits deliver the cached record without touching the
// remote endpoint; errors are never cached.
type CachedScanner struct {
	inner TrackScanner
	cache *cache.Cache[TagRecord]
}

// NewCachedScanner caches up to size records for ttl. A zero ttl keeps
// records until evicted.
func NewCachedScanner(inner TrackScanner, size int, ttl time.Duration) *CachedScanner {
	return &CachedScanner{
		inner: inner,
		cache: cache.New[TagRecord](size, ttl),
	}
}

// Scan serves the record from cache when present, otherwise delegates
// to the wrapped scanner and stores a successful result.
func (s *CachedScanner) Scan(ctx context.Context, trackID string, h Handler) {
	if record, ok := s.cache.Get(trackID); ok {
		h.OnRemoteTag(record)
		return
	}
	s.inner.Scan(ctx, trackID, &cachingHandler{Handler: h, scanner: s, trackID: trackID})
}

type cachingHandler struct {
	Handler
	scanner *CachedScanner
	trackID string
}

func (h *cachingHandler) OnRemoteTag(record TagRecord) {
	h.scanner.cache.Set(h.trackID, record)
	h.Handler.OnRemoteTag(record)
}
