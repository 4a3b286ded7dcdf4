package assetlinks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aspect-build/linktrust/internal/authdomain"
	"github.com/aspect-build/linktrust/internal/logx"
)

// RecommendedCacheDuration is the default, recommended lifetime for a
// resolved relation set, in the absence of any other information.
const RecommendedCacheDuration = 24 * time.Hour

// Loader fetches the declared outgoing relations of a source domain.
// Implementations live in the loader subpackage.
type Loader interface {
	Relations(ctx context.Context, relationType string, source authdomain.AuthDomain) (authdomain.Set, error)
}

// relationKey identifies one cached relation set. Comparable by
// structure; the domain part compares by canonical string.
type relationKey struct {
	source       authdomain.AuthDomain
	relationType string
}

type relationEntry struct {
	targets   authdomain.Set
	expiresAt time.Time
}

// Cache is a read-through TTL cache of resolved relation sets. It is
// safe for concurrent use: reads of live entries never perform I/O,
// and entries are inserted whole. Concurrent misses for the same key
// may fetch redundantly; the last completed fetch wins.
type Cache struct {
	loader   Loader
	duration time.Duration
	now      func() time.Time

	mu        sync.RWMutex
	relations map[relationKey]relationEntry
}

// NewCache creates a read-through cache around the given loader with
// the specified entry lifetime.
func NewCache(loader Loader, duration time.Duration) *Cache {
	return newCacheWithClock(loader, duration, time.Now)
}

// newCacheWithClock allows tests to control entry expiry.
func newCacheWithClock(loader Loader, duration time.Duration, now func() time.Time) *Cache {
	return &Cache{
		loader:    loader,
		duration:  duration,
		now:       now,
		relations: make(map[relationKey]relationEntry),
	}
}

// Relations returns the set of domains the source declares a relation
// of the given type toward. A live cached entry is returned without
// I/O; otherwise the loader is consulted and the result cached for the
// configured duration. Loader errors propagate unchanged and are never
// cached: an empty result always means zero declared relations.
func (c *Cache) Relations(ctx context.Context, source authdomain.AuthDomain, relationType string) (authdomain.Set, error) {
	key := relationKey{source: source, relationType: relationType}

	c.mu.RLock()
	entry, ok := c.relations[key]
	now := c.now()
	c.mu.RUnlock()

	if ok && now.Before(entry.expiresAt) {
		return entry.targets.Clone(), nil
	}

	// Fetch outside the lock so live reads of other keys never wait on
	// network I/O.
	targets, err := c.loader.Relations(ctx, relationType, source)
	if err != nil {
		return nil, err
	}

	entry = relationEntry{
		targets:   targets.Clone(),
		expiresAt: c.now().Add(c.duration),
	}

	c.mu.Lock()
	c.relations[key] = entry
	c.mu.Unlock()

	logx.Debugf("cached %d relation(s) of type %q for %s", targets.Len(), relationType, source)
	return targets, nil
}

// BidirectionalRelations returns the subset of the source's declared
// targets that declare the same relation back toward the source. Only
// these mutual relations are safe grounds for sharing credentials;
// each side of the check follows normal cache and expiry rules.
func (c *Cache) BidirectionalRelations(ctx context.Context, source authdomain.AuthDomain, relationType string) (authdomain.Set, error) {
	sourceRelations, err := c.Relations(ctx, source, relationType)
	if err != nil {
		return nil, err
	}

	mutual := authdomain.NewSet()
	for target := range sourceRelations {
		targetRelations, err := c.Relations(ctx, target, relationType)
		if err != nil {
			return nil, err
		}
		if targetRelations.Contains(source) {
			mutual.Add(target)
		}
	}

	return mutual, nil
}

// snapshotEntry is the persisted form of one cached relation set.
// Field names and nesting are a compatibility contract with previously
// written snapshots.
type snapshotEntry struct {
	Expires int64    `json:"expires"`
	Targets []string `json:"targets"`
}

// Export serializes all currently live entries as a JSON object keyed
// by relation type, then by source domain. Expired entries are
// silently dropped. Output is deterministic: object keys and target
// arrays are sorted.
func (c *Cache) Export() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	out := make(map[string]map[string]snapshotEntry)
	for key, entry := range c.relations {
		if !entry.expiresAt.After(now) {
			continue
		}
		bySource := out[key.relationType]
		if bySource == nil {
			bySource = make(map[string]snapshotEntry)
			out[key.relationType] = bySource
		}
		bySource[key.source.String()] = snapshotEntry{
			Expires: entry.expiresAt.UnixMilli(),
			Targets: entry.targets.Sorted(),
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal relation snapshot: %w", err)
	}
	return data, nil
}

// Import merges a snapshot produced by Export into the cache,
// overwriting any colliding entries. Entries whose expiry has already
// passed are skipped. The snapshot is validated in full before any
// entry is applied, so a malformed snapshot never partially imports.
func (c *Cache) Import(data []byte) error {
	var snapshot map[string]map[string]snapshotEntry
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("%w: relation snapshot: %v", ErrMalformedData, err)
	}

	now := c.now()
	parsed := make(map[relationKey]relationEntry)
	for relationType, bySource := range snapshot {
		for sourceStr, entry := range bySource {
			source, err := authdomain.Parse(sourceStr)
			if err != nil {
				return fmt.Errorf("%w: snapshot source %q: %v", ErrMalformedData, sourceStr, err)
			}

			targets := authdomain.NewSet()
			for _, targetStr := range entry.Targets {
				target, err := authdomain.Parse(targetStr)
				if err != nil {
					return fmt.Errorf("%w: snapshot target %q: %v", ErrMalformedData, targetStr, err)
				}
				targets.Add(target)
			}

			expiresAt := time.UnixMilli(entry.Expires)
			if !expiresAt.After(now) {
				continue
			}

			key := relationKey{source: source, relationType: relationType}
			parsed[key] = relationEntry{targets: targets, expiresAt: expiresAt}
		}
	}

	c.mu.Lock()
	for key, entry := range parsed {
		c.relations[key] = entry
	}
	c.mu.Unlock()

	logx.Debugf("imported %d live relation snapshot entries", len(parsed))
	return nil
}
