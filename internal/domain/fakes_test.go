package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingHandler is a slog.Handler that captures every record so tests
// can assert on what was logged.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

func (h *recordingHandler) recordsAtLevel(level slog.Level) []slog.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	var matched []slog.Record
	for _, r := range h.records {
		if r.Level == level {
			matched = append(matched, r)
		}
	}
	return matched
}

// fakeAuthorRepo is an in-memory domain.AuthorRepository.
type fakeAuthorRepo struct {
	mu        sync.Mutex
	authors   map[string]Author
	findErr   error
	upsertErr map[string]error
	findCalls int
}

func newFakeAuthorRepo() *fakeAuthorRepo {
	return &fakeAuthorRepo{authors: make(map[string]Author)}
}

func (f *fakeAuthorRepo) FindByDIDs(_ context.Context, dids []string) ([]Author, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	var found []Author
	for _, did := range dids {
		if a, ok := f.authors[did]; ok {
			found = append(found, a)
		}
	}
	return found, nil
}

func (f *fakeAuthorRepo) Upsert(_ context.Context, author *Author) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.upsertErr[author.DID]; ok {
		return err
	}
	f.authors[author.DID] = *author
	return nil
}

// fakeProfileFetcher is an in-memory domain.ProfileFetcher. A batch
// containing a DID from failDIDs errors as a whole.
type fakeProfileFetcher struct {
	mu       sync.Mutex
	profiles map[string]Profile
	failDIDs map[string]bool
	batches  [][]string
}

func newFakeProfileFetcher() *fakeProfileFetcher {
	return &fakeProfileFetcher{
		profiles: make(map[string]Profile),
		failDIDs: make(map[string]bool),
	}
}

func (f *fakeProfileFetcher) GetProfiles(_ context.Context, dids []string) ([]Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, dids)
	var found []Profile
	for _, did := range dids {
		if f.failDIDs[did] {
			return nil, errors.New("upstream request failed")
		}
		if p, ok := f.profiles[did]; ok {
			found = append(found, p)
		}
	}
	return found, nil
}

func (f *fakeProfileFetcher) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

// fakePostRepo is an in-memory domain.PostRepository keyed by CID.
type fakePostRepo struct {
	mu        sync.Mutex
	posts     map[string]Post
	upsertErr map[string]error
	pruneErr  error
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]Post)}
}

func (f *fakePostRepo) Upsert(_ context.Context, post *Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.upsertErr[post.CID]; ok {
		return err
	}
	f.posts[post.CID] = *post
	return nil
}

func (f *fakePostRepo) PruneOldest(_ context.Context, keep int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pruneErr != nil {
		return 0, f.pruneErr
	}
	if len(f.posts) <= keep {
		return 0, nil
	}
	// Tests seed few enough posts that dropping arbitrary ones is fine.
	deleted := int64(0)
	for cid := range f.posts {
		if len(f.posts) <= keep {
			break
		}
		delete(f.posts, cid)
		deleted++
	}
	return deleted, nil
}

func (f *fakePostRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

func (f *fakePostRepo) get(cid string) (Post, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[cid]
	return p, ok
}
