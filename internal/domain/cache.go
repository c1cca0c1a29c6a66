package domain

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// AuthorCache holds resolved authors in two bounded LRU tiers, one for
// tracked authors and one for everyone else. A DID lives in at most one
// tier at a time. Eviction is per-tier, so heavy non-tracked volume cannot
// push tracked authors out of residency.
type AuthorCache struct {
	tracked *lru.Cache[string, *Author]
	normies *lru.Cache[string, *Author]
}

// NewAuthorCache creates a cache with the given per-tier capacity.
func NewAuthorCache(capacity int) (*AuthorCache, error) {
	tracked, err := lru.New[string, *Author](capacity)
	if err != nil {
		return nil, err
	}
	normies, err := lru.New[string, *Author](capacity)
	if err != nil {
		return nil, err
	}
	return &AuthorCache{tracked: tracked, normies: normies}, nil
}

// Get returns the cached author for did, checking both tiers.
func (c *AuthorCache) Get(did string) (*Author, bool) {
	if author, ok := c.tracked.Get(did); ok {
		return author, true
	}
	return c.normies.Get(did)
}

// Put stores the author in the tier matching its Tracked flag. If a
// re-fetch flipped the flag, the stale entry is removed from the other
// tier so a DID never appears in both.
func (c *AuthorCache) Put(author *Author) {
	if author.Tracked {
		c.normies.Remove(author.DID)
		c.tracked.Add(author.DID, author)
		return
	}
	c.tracked.Remove(author.DID)
	c.normies.Add(author.DID, author)
}

// ContainsUntracked reports whether did is currently cached as a
// non-tracked author. It does not promote the entry.
func (c *AuthorCache) ContainsUntracked(did string) bool {
	return c.normies.Contains(did)
}

// Sizes returns the entry counts of the tracked and non-tracked tiers.
func (c *AuthorCache) Sizes() (tracked, untracked int) {
	return c.tracked.Len(), c.normies.Len()
}
