package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oshiwatch/oshiwatch/internal/domain"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func strptr(s string) *string {
	return &s
}

func TestSchemaUsesRawSQLColumnNames(t *testing.T) {
	// The repository's raw fragments (did IN, cid NOT IN, ON CONFLICT
	// targets) depend on these exact column names; gorm's default
	// snake-casing would migrate them as d_id, c_id and author_d_id.
	db := openTestDB(t)
	m := db.Migrator()

	require.True(t, m.HasColumn(&author{}, "did"))
	require.True(t, m.HasColumn(&post{}, "cid"))
	require.True(t, m.HasColumn(&post{}, "author_did"))
}

func TestAuthorUpsertCreatesAndUpdates(t *testing.T) {
	db := openTestDB(t)
	repo := NewAuthorRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &domain.Author{
		DID:     "did:plc:a",
		Handle:  "old_handle",
		Tracked: false,
	}))

	// Re-fetch updated the handle, bio and classification; same DID must
	// stay a single row.
	require.NoError(t, repo.Upsert(ctx, &domain.Author{
		DID:         "did:plc:a",
		Handle:      "new_vt",
		Description: strptr("vtuber now"),
		Tracked:     true,
	}))

	var count int64
	require.NoError(t, db.Model(&author{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	authors, err := repo.FindByDIDs(ctx, []string{"did:plc:a"})
	require.NoError(t, err)
	require.Len(t, authors, 1)
	require.Equal(t, "new_vt", authors[0].Handle)
	require.True(t, authors[0].Tracked)
	require.NotNil(t, authors[0].Description)
	require.Equal(t, "vtuber now", *authors[0].Description)
}

func TestAuthorFindByDIDsReturnsOnlyKnown(t *testing.T) {
	db := openTestDB(t)
	repo := NewAuthorRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &domain.Author{DID: "did:plc:a", Handle: "a"}))
	require.NoError(t, repo.Upsert(ctx, &domain.Author{DID: "did:plc:b", Handle: "b"}))

	authors, err := repo.FindByDIDs(ctx, []string{"did:plc:a", "did:plc:missing"})
	require.NoError(t, err)
	require.Len(t, authors, 1)
	require.Equal(t, "did:plc:a", authors[0].DID)

	authors, err = repo.FindByDIDs(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, authors)
}

func TestPostUpsertIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	postedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	stored := &domain.Post{
		CID:       "bafyreib3",
		AuthorDID: "did:plc:a",
		Content:   "konbanwa",
		PostedAt:  postedAt,
	}

	require.NoError(t, repo.Upsert(ctx, stored))
	require.NoError(t, repo.Upsert(ctx, stored))

	var count int64
	require.NoError(t, db.Model(&post{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	// Redelivery with different content overwrites rather than duplicates.
	stored.Content = "konbanwa~"
	require.NoError(t, repo.Upsert(ctx, stored))

	var row post
	require.NoError(t, db.First(&row, "cid = ?", "bafyreib3").Error)
	require.Equal(t, "konbanwa~", row.Content)
	require.NoError(t, db.Model(&post{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestPruneOldestKeepsMostRecent(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		require.NoError(t, repo.Upsert(ctx, &domain.Post{
			CID:       fmt.Sprintf("cid%02d", i),
			AuthorDID: "did:plc:a",
			Content:   "post",
			PostedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	deleted, err := repo.PruneOldest(ctx, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	var rows []post
	require.NoError(t, db.Order("posted_at ASC").Find(&rows).Error)
	require.Len(t, rows, 10)
	// The survivors are exactly the 10 newest.
	require.Equal(t, "cid02", rows[0].CID)
	require.Equal(t, "cid11", rows[len(rows)-1].CID)
}

func TestPruneOldestNoopUnderRetention(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &domain.Post{
		CID:       "cid1",
		AuthorDID: "did:plc:a",
		PostedAt:  time.Now().UTC(),
	}))

	deleted, err := repo.PruneOldest(ctx, 10)
	require.NoError(t, err)
	require.EqualValues(t, 0, deleted)
}
