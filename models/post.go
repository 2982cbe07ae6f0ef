package models

import "time"

// Post represents a forum post created by a member.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MemberID  uint      `gorm:"index;not null" json:"writer_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ViewCount int64     `gorm:"not null" json:"view_count"`
	Notice    bool      `gorm:"not null;index" json:"notice"`
	Deleted   bool      `gorm:"not null;index" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Writer    Member    `gorm:"foreignKey:MemberID" json:"-"`

	// Filled by the repository from sub-selects over non-deleted children.
	CommentCount    int64 `gorm:"->;-:migration" json:"comment_count"`
	AttachmentCount int64 `gorm:"->;-:migration" json:"attachment_count"`
}
