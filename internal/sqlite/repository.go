package sqlite

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/oshiwatch/oshiwatch/internal/domain"
)

// Open opens (or creates) the SQLite database at path and migrates the
// schema. Pass ":memory:" for an ephemeral database.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %q: %w", path, err)
	}

	// SQLite supports a single writer; one connection avoids SQLITE_BUSY
	// under concurrent workers and keeps ":memory:" databases coherent.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&author{}, &post{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return db, nil
}

// Close closes the underlying database connection.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AuthorRepository implements domain.AuthorRepository on gorm/SQLite.
type AuthorRepository struct {
	db *gorm.DB
}

// NewAuthorRepository creates a new author repository.
func NewAuthorRepository(db *gorm.DB) *AuthorRepository {
	return &AuthorRepository{db: db}
}

// FindByDIDs returns the stored authors whose DID appears in dids.
func (r *AuthorRepository) FindByDIDs(ctx context.Context, dids []string) ([]domain.Author, error) {
	if len(dids) == 0 {
		return nil, nil
	}

	var rows []author
	if err := r.db.WithContext(ctx).Where("did IN ?", dids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find authors: %w", err)
	}

	authors := make([]domain.Author, len(rows))
	for i, row := range rows {
		authors[i] = domain.Author{
			DID:         row.DID,
			Handle:      row.Handle,
			DisplayName: row.DisplayName,
			Description: row.Description,
			Tracked:     row.Tracked,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		}
	}
	return authors, nil
}

// Upsert creates the author or updates its mutable fields keyed by DID.
func (r *AuthorRepository) Upsert(ctx context.Context, a *domain.Author) error {
	row := author{
		DID:         a.DID,
		Handle:      a.Handle,
		DisplayName: a.DisplayName,
		Description: a.Description,
		Tracked:     a.Tracked,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "did"}},
		DoUpdates: clause.AssignmentColumns([]string{"handle", "display_name", "description", "tracked", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert author %s: %w", a.DID, err)
	}
	return nil
}

// PostRepository implements domain.PostRepository on gorm/SQLite.
type PostRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Upsert creates or overwrites a post keyed by CID.
func (r *PostRepository) Upsert(ctx context.Context, p *domain.Post) error {
	row := post{
		CID:       p.CID,
		AuthorDID: p.AuthorDID,
		Content:   p.Content,
		PostedAt:  p.PostedAt,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cid"}},
		DoUpdates: clause.AssignmentColumns([]string{"author_did", "content", "posted_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert post %s: %w", p.CID, err)
	}
	return nil
}

// PruneOldest deletes every post outside the keep most recent by posted
// time, returning the number of rows deleted.
func (r *PostRepository) PruneOldest(ctx context.Context, keep int) (int64, error) {
	recent := r.db.Model(&post{}).
		Select("cid").
		Order("posted_at DESC").
		Limit(keep)

	result := r.db.WithContext(ctx).
		Where("cid NOT IN (?)", recent).
		Delete(&post{})
	if result.Error != nil {
		return 0, fmt.Errorf("prune posts: %w", result.Error)
	}
	return result.RowsAffected, nil
}
