package domain

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// MaxProfileBatch is the actor limit of app.bsky.actor.getProfiles.
const MaxProfileBatch = 25

// lookupConcurrency bounds how many profile batches are in flight at once.
const lookupConcurrency = 4

// Resolver resolves author DIDs through three tiers of increasing cost: the
// in-memory cache, the durable store, then the Bluesky profile API. Results
// are written back to the cheaper tiers as they resolve, so repeat callers
// stay off the network. The store remains the source of truth; the cache
// only ever holds what the store has already committed.
type Resolver struct {
	cache    *AuthorCache
	authors  AuthorRepository
	profiles ProfileFetcher
	logger   *slog.Logger
}

// NewResolver creates a resolver over the given tiers.
func NewResolver(cache *AuthorCache, authors AuthorRepository, profiles ProfileFetcher, logger *slog.Logger) *Resolver {
	return &Resolver{
		cache:    cache,
		authors:  authors,
		profiles: profiles,
		logger:   logger,
	}
}

// ResolveMany returns a best-effort mapping of DID to author. Duplicate
// DIDs are collapsed. DIDs that resolve at no tier are absent from the
// result and reported once, in aggregate; they are retried the next time a
// batch contains them.
func (r *Resolver) ResolveMany(ctx context.Context, dids []string) map[string]*Author {
	found := make(map[string]*Author, len(dids))

	seen := make(map[string]struct{}, len(dids))
	var remaining []string
	for _, did := range dids {
		if _, ok := seen[did]; ok {
			continue
		}
		seen[did] = struct{}{}

		if author, ok := r.cache.Get(did); ok {
			found[did] = author
			continue
		}
		remaining = append(remaining, did)
	}

	remaining = r.resolveFromStore(ctx, remaining, found)
	remaining = r.resolveFromRemote(ctx, remaining, found)

	if len(remaining) > 0 {
		r.logger.Warn("failed to resolve authors",
			"count", len(remaining),
			"dids", strings.Join(remaining, ", "),
		)
	}

	return found
}

// resolveFromStore satisfies dids from the durable store, populating the
// cache for each hit. Returns the DIDs still unresolved.
func (r *Resolver) resolveFromStore(ctx context.Context, dids []string, found map[string]*Author) []string {
	if len(dids) == 0 {
		return nil
	}

	authors, err := r.authors.FindByDIDs(ctx, dids)
	if err != nil {
		// Degrade to the remote tier; the next call retries the store.
		r.logger.Error("author store lookup failed", "count", len(dids), "error", err)
		return dids
	}

	for i := range authors {
		author := &authors[i]
		found[author.DID] = author
		r.cache.Put(author)
	}

	var unresolved []string
	for _, did := range dids {
		if _, ok := found[did]; !ok {
			unresolved = append(unresolved, did)
		}
	}
	return unresolved
}

// resolveFromRemote fetches the remaining dids from the profile service in
// batches of MaxProfileBatch, classifying, storing and caching each
// returned profile. Batches run concurrently and fail independently.
func (r *Resolver) resolveFromRemote(ctx context.Context, dids []string, found map[string]*Author) []string {
	if len(dids) == 0 {
		return nil
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)

	for start := 0; start < len(dids); start += MaxProfileBatch {
		batch := dids[start:min(start+MaxProfileBatch, len(dids))]
		g.Go(func() error {
			profiles, err := r.profiles.GetProfiles(ctx, batch)
			if err != nil {
				// A failed batch must not sink the others; its DIDs stay
				// unresolved until a later call retries them.
				r.logger.Error("profile lookup batch failed", "size", len(batch), "error", err)
				return nil
			}

			for _, profile := range profiles {
				author := &Author{
					DID:         profile.DID,
					Handle:      profile.Handle,
					DisplayName: profile.DisplayName,
					Description: profile.Description,
					Tracked:     IsVtuberProfile(profile.Handle, profile.DisplayName, profile.Description),
				}
				if author.Tracked {
					r.logger.Debug("found vtuber", "handle", author.Handle)
				}

				if err := r.authors.Upsert(ctx, author); err != nil {
					// The store is the source of truth: an author it failed
					// to record is neither cached nor returned.
					r.logger.Error("author upsert failed", "did", author.DID, "error", err)
					continue
				}

				r.cache.Put(author)
				mu.Lock()
				found[author.DID] = author
				mu.Unlock()
			}
			return nil
		})
	}

	// Goroutines report failures via the log, never an error.
	_ = g.Wait()

	var unresolved []string
	for _, did := range dids {
		if _, ok := found[did]; !ok {
			unresolved = append(unresolved, did)
		}
	}
	return unresolved
}
