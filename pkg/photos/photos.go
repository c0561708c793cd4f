// Package photos defines the photo comparison capability consumed by the
// field differ. The real comparison (perceptual hashing of downloaded images)
// is an external collaborator; this package ships the interface, a plain
// URL-set fallback, and a result cache with an explicit load/save lifecycle.
package photos

import (
	"encoding/json"
	"os"
	"sort"
	"sync"

	"github.com/kinsync/kinsync/pkg/errors"
)

// SimilarityThreshold is the visual similarity at or above which a source
// photo is treated as already present on the destination, so that
// compression or metadata-only differences do not trigger re-uploads.
const SimilarityThreshold = 0.98

// SimilarPhoto pairs a source photo with its closest destination photo.
type SimilarPhoto struct {
	SourceURL  string  `json:"source_url"`
	DestURL    string  `json:"dest_url"`
	Similarity float64 `json:"similarity"`
}

// Comparison is the outcome of comparing two photo sets.
type Comparison struct {
	// NewPhotos are source photos with no destination counterpart.
	NewPhotos []string `json:"new_photos,omitempty"`
	// SimilarPhotos are near-duplicates below exact identity.
	SimilarPhotos []SimilarPhoto `json:"similar_photos,omitempty"`
	// MatchedPhotos are source photos already present on the destination.
	MatchedPhotos []string `json:"matched_photos,omitempty"`
}

// Missing returns the source photos the destination genuinely lacks: new
// photos plus similar ones below the similarity threshold.
func (c Comparison) Missing() []string {
	missing := append([]string(nil), c.NewPhotos...)
	for _, s := range c.SimilarPhotos {
		if s.Similarity < SimilarityThreshold {
			missing = append(missing, s.SourceURL)
		}
	}
	sort.Strings(missing)
	return missing
}

// Comparer compares a source photo set against a destination photo set.
type Comparer interface {
	ComparePhotos(sourceURLs, destURLs []string) (Comparison, error)
}

// URLComparer is the fallback Comparer used when no perceptual comparison
// service is available: photos match only on exact URL equality.
type URLComparer struct{}

// ComparePhotos partitions source URLs into matched (present on the
// destination) and new.
func (URLComparer) ComparePhotos(sourceURLs, destURLs []string) (Comparison, error) {
	dest := make(map[string]struct{}, len(destURLs))
	for _, u := range destURLs {
		dest[u] = struct{}{}
	}
	var cmp Comparison
	for _, u := range sourceURLs {
		if _, ok := dest[u]; ok {
			cmp.MatchedPhotos = append(cmp.MatchedPhotos, u)
		} else {
			cmp.NewPhotos = append(cmp.NewPhotos, u)
		}
	}
	return cmp, nil
}

// Cache stores photo comparison results keyed by source person id. It is
// owned by the orchestrator and passed by reference to the differ; callers
// control the load/save lifecycle explicitly. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Comparison
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Comparison)}
}

// Get returns the cached comparison for a source person id.
func (c *Cache) Get(sourceID string) (Comparison, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cmp, ok := c.entries[sourceID]
	return cmp, ok
}

// Put stores a comparison for a source person id.
func (c *Cache) Put(sourceID string, cmp Comparison) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[sourceID] = cmp
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Load reads cache entries from a JSON file. A missing file yields an empty
// cache, not an error.
func (c *Cache) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WrapIO("read", path, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := json.Unmarshal(data, &c.entries); err != nil {
		return errors.WrapParse("json", path, err)
	}
	return nil
}

// Save writes cache entries to a JSON file.
func (c *Cache) Save(path string) error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return errors.WrapParse("json", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
