package models

import "time"

// Comment represents a reply to a post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	MemberID  uint      `gorm:"index;not null" json:"writer_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Deleted   bool      `gorm:"not null;index" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Writer    Member    `gorm:"foreignKey:MemberID" json:"-"`
}
