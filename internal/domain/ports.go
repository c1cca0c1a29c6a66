package domain

import "context"

// AuthorRepository defines persistence operations for resolved authors.
type AuthorRepository interface {
	// FindByDIDs returns the authors whose DID appears in dids. DIDs with
	// no stored record are simply absent from the result.
	FindByDIDs(ctx context.Context, dids []string) ([]Author, error)

	// Upsert creates the author or, keyed by DID, updates its handle,
	// display name, description and tracked flag.
	Upsert(ctx context.Context, author *Author) error
}

// PostRepository defines persistence operations for tracked authors' posts.
type PostRepository interface {
	// Upsert creates or overwrites a post keyed by CID. Re-processing the
	// same CID must not produce a second row.
	Upsert(ctx context.Context, post *Post) error

	// PruneOldest deletes every post outside the keep most recent ordered
	// by posted time, returning the number of rows deleted.
	PruneOldest(ctx context.Context, keep int) (int64, error)
}

// ProfileFetcher looks up profiles from the Bluesky API.
type ProfileFetcher interface {
	// GetProfiles fetches up to MaxProfileBatch profiles by DID. DIDs the
	// service does not know are absent from the result.
	GetProfiles(ctx context.Context, dids []string) ([]Profile, error)
}
