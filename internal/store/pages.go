// Package store hands scan results from the page scanner to the reporting
// side, keyed by page identity.
package store

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/kinscan/internal/model"
)

// DefaultTTL is how long an unclaimed page stays in the store.
const DefaultTTL = 30 * time.Minute

// PageData is what the scanner found on one page.
type PageData struct {
	PageID            string        `json:"page_id"`
	URL               string        `json:"url"`
	HasHistoricalData bool          `json:"has_historical_data"`
	Items             []*model.Item `json:"items"`
	Debug             string        `json:"debug,omitempty"`
	ScannedAt         time.Time     `json:"scanned_at"`
}

// PageStore keeps the latest scan per page until it is taken, evicted or
// expires. A later Put for the same page replaces the earlier one.
type PageStore struct {
	mu    sync.Mutex
	pages *gocache.Cache
}

// NewPageStore creates a store whose entries expire after ttl. A ttl of
// zero uses DefaultTTL.
func NewPageStore(ttl time.Duration) *PageStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cleanup := ttl / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}
	return &PageStore{pages: gocache.New(ttl, cleanup)}
}

// Put records data under its PageID. Pages without historical data or
// without an ID are not stored; Put reports whether data was kept.
func (s *PageStore) Put(data PageData) bool {
	if data.PageID == "" || !data.HasHistoricalData {
		return false
	}
	if data.ScannedAt.IsZero() {
		data.ScannedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages.SetDefault(data.PageID, data)
	return true
}

// Take returns the page and removes it, so each scan is consumed once.
func (s *PageStore) Take(pageID string) (PageData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.get(pageID)
	if ok {
		s.pages.Delete(pageID)
	}
	return data, ok
}

// Evict drops the page without reporting it.
func (s *PageStore) Evict(pageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages.Delete(pageID)
}

// Len returns the number of unexpired pages.
func (s *PageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages.DeleteExpired()
	return s.pages.ItemCount()
}

func (s *PageStore) get(pageID string) (PageData, bool) {
	v, ok := s.pages.Get(pageID)
	if !ok {
		return PageData{}, false
	}
	return v.(PageData), true
}
