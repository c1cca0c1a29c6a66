package sqlite

import "time"

// author is the gorm row for a resolved account. DID needs an explicit
// column name: gorm's snake-casing would otherwise migrate it as d_id.
type author struct {
	DID         string `gorm:"column:did;primaryKey"`
	Handle      string `gorm:"index;not null"`
	DisplayName *string
	Description *string
	Tracked     bool `gorm:"index;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName overrides the table name
func (author) TableName() string {
	return "authors"
}

// post is the gorm row for a stored post. CID and AuthorDID carry explicit
// column names for the same reason as author.DID.
type post struct {
	CID       string    `gorm:"column:cid;primaryKey"`
	AuthorDID string    `gorm:"column:author_did;index;not null"`
	Content   string    `gorm:"not null"`
	PostedAt  time.Time `gorm:"index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the table name
func (post) TableName() string {
	return "posts"
}
