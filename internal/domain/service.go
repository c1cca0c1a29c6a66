package domain

import (
	"context"
	"log/slog"
	"time"
)

// Tracker owns the ingestion pipeline state: the author cache, the pending
// queue and the resolver. It is constructed once at startup and shared by
// reference between the firehose intake path and the periodic workers; the
// queue is the only structure both sides touch.
type Tracker struct {
	cache    *AuthorCache
	queue    *PostQueue
	resolver *Resolver
	posts    PostRepository
	logger   *slog.Logger
}

// NewTracker creates the pipeline service.
func NewTracker(cache *AuthorCache, queue *PostQueue, resolver *Resolver, posts PostRepository, logger *slog.Logger) *Tracker {
	return &Tracker{
		cache:    cache,
		queue:    queue,
		resolver: resolver,
		posts:    posts,
		logger:   logger,
	}
}

// HandlePostCreate is the firehose intake path. Posts whose author is
// already cached as non-tracked are dropped before they reach the queue.
// Only the non-tracked tier is consulted: posts from known tracked authors
// must still be enqueued so they get persisted, and the store is never
// queried here to keep the stream callback free of I/O. Returns whether
// the event was enqueued.
func (t *Tracker) HandlePostCreate(post IncomingPost) bool {
	if t.cache.ContainsUntracked(post.AuthorDID) {
		return false
	}
	t.queue.Push(post)
	return true
}

// RunDrainWorker drains the queue in bounded batches on a fixed cadence,
// persisting posts from tracked authors. Blocks until ctx is cancelled.
func (t *Tracker) RunDrainWorker(ctx context.Context, interval time.Duration, batchSize int) {
	runEvery(ctx, interval, t.logger, "drain queue", func(ctx context.Context) error {
		t.drainQueue(ctx, batchSize)
		return nil
	})
}

func (t *Tracker) drainQueue(ctx context.Context, batchSize int) {
	batch := t.queue.PopBatch(batchSize)
	if len(batch) == 0 {
		return
	}

	dids := make([]string, 0, len(batch))
	for _, post := range batch {
		dids = append(dids, post.AuthorDID)
	}

	authors := t.resolver.ResolveMany(ctx, dids)

	for _, post := range batch {
		author, ok := authors[post.AuthorDID]
		if !ok {
			t.logger.Warn("failed to find author", "did", post.AuthorDID)
			continue
		}
		if !author.Tracked {
			// Normie otherwise.
			continue
		}

		t.logger.Debug("storing post", "handle", author.Handle, "cid", post.CID)
		stored := &Post{
			CID:       post.CID,
			AuthorDID: author.DID,
			Content:   post.Text,
			PostedAt:  parsePostedAt(post.CreatedAt),
		}
		if err := t.posts.Upsert(ctx, stored); err != nil {
			// Isolate per item; the rest of the batch still lands.
			t.logger.Error("post upsert failed", "cid", post.CID, "error", err)
		}
	}
}

// RunPruner caps the post table at the keep most recent rows on a fixed
// cadence. Blocks until ctx is cancelled. Concurrent inserts can make the
// count overshoot between runs; the policy is approximate by design of the
// retention window, not a snapshot.
func (t *Tracker) RunPruner(ctx context.Context, interval time.Duration, keep int) {
	runEvery(ctx, interval, t.logger, "prune posts", func(ctx context.Context) error {
		deleted, err := t.posts.PruneOldest(ctx, keep)
		if err != nil {
			return err
		}
		if deleted > 0 {
			t.logger.Info("pruned posts", "deleted", deleted)
		}
		return nil
	})
}

// QueueDepth returns the number of events waiting in the pending queue.
func (t *Tracker) QueueDepth() int {
	return t.queue.Len()
}

// CacheSizes returns the entry counts of the two cache tiers.
func (t *Tracker) CacheSizes() (tracked, untracked int) {
	return t.cache.Sizes()
}

// parsePostedAt parses the author-asserted createdAt timestamp. Clients
// emit garbage often enough that an unparseable value falls back to
// receipt time instead of dropping the post.
func parsePostedAt(s string) time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Now().UTC()
	}
	return ts.UTC()
}

// runEvery runs fn immediately, then again interval after each completed
// run, so a slow body never overlaps itself. Body errors are logged and
// the loop keeps ticking. Returns when ctx is cancelled.
func runEvery(ctx context.Context, interval time.Duration, logger *slog.Logger, name string, fn func(context.Context) error) {
	for {
		if err := fn(ctx); err != nil {
			logger.Error("periodic task failed", "task", name, "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
