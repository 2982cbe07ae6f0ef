package models

import "time"

// Attachment records a file uploaded to a post. StoredPath is relative to the upload root.
type Attachment struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	PostID           uint      `gorm:"index;not null" json:"post_id"`
	OriginalFilename string    `gorm:"size:255;not null" json:"original_filename"`
	StoredFilename   string    `gorm:"size:255;not null" json:"stored_filename"`
	StoredPath       string    `gorm:"size:1024;not null" json:"-"`
	FileSize         int64     `gorm:"not null" json:"file_size"`
	Deleted          bool      `gorm:"not null;index" json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
