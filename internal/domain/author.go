package domain

import "time"

// Author is a Bluesky account that has been resolved at least once. The
// Tracked flag records the classifier's verdict as of the last fetch and is
// recomputed whenever the profile is re-fetched.
type Author struct {
	// DID is the account's stable decentralized identifier.
	DID string

	// Handle is the account's current handle (e.g. kson_vt.bsky.social).
	Handle string

	// DisplayName is the profile display name, if set.
	DisplayName *string

	// Description is the profile bio, if set.
	Description *string

	// Tracked is true when the classifier considers this author part of
	// the tracked VTuber population.
	Tracked bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Post is a stored post authored by a tracked author.
type Post struct {
	// CID is the content identifier assigned upstream.
	CID string

	// AuthorDID references the owning Author.
	AuthorDID string

	// Content is the post body text.
	Content string

	// PostedAt is the author-asserted creation time from the firehose
	// event, not the time we received it.
	PostedAt time.Time
}

// IncomingPost is a post-creation event from the firehose that has not been
// processed yet. CreatedAt stays a string until the drain worker persists
// the post; the intake path does no parsing.
type IncomingPost struct {
	AuthorDID string
	CID       string
	CreatedAt string
	Text      string
}

// Profile is the subset of an app.bsky.actor profile view the tracker
// needs to classify and record an author.
type Profile struct {
	DID         string
	Handle      string
	DisplayName *string
	Description *string
}
