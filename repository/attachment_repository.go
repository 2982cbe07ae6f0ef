package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/bbsforum/models"
)

// AttachmentRepository stores and retrieves attachment records.
type AttachmentRepository interface {
	Create(ctx context.Context, a *models.Attachment) error
	FindByID(ctx context.Context, id uint, deleted *bool) (*models.Attachment, error)
	FindByPost(ctx context.Context, postID uint, deleted *bool) ([]models.Attachment, error)
	SoftDelete(ctx context.Context, ids ...uint) error
	SoftDeleteByPost(ctx context.Context, postIDs ...uint) error
}

// GormAttachmentRepository is the gorm implementation of AttachmentRepository.
type GormAttachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository creates a GormAttachmentRepository.
func NewAttachmentRepository(db *gorm.DB) *GormAttachmentRepository {
	return &GormAttachmentRepository{db: db}
}

func (r *GormAttachmentRepository) Create(ctx context.Context, a *models.Attachment) error {
	if err := conn(ctx, r.db).Create(a).Error; err != nil {
		return fmt.Errorf("gorm: create attachment: %w", err)
	}
	return nil
}

func (r *GormAttachmentRepository) FindByID(ctx context.Context, id uint, deleted *bool) (*models.Attachment, error) {
	var a models.Attachment
	q := conn(ctx, r.db).Where("attachments.id = ?", id)
	if err := withDeleted(q, "attachments", deleted).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find attachment %d: %w", id, err)
	}
	return &a, nil
}

func (r *GormAttachmentRepository) FindByPost(ctx context.Context, postID uint, deleted *bool) ([]models.Attachment, error) {
	var items []models.Attachment
	q := conn(ctx, r.db).Where("attachments.post_id = ?", postID)
	if err := withDeleted(q, "attachments", deleted).Order("attachments.id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("gorm: attachments of post %d: %w", postID, err)
	}
	return items, nil
}

func (r *GormAttachmentRepository) SoftDelete(ctx context.Context, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := conn(ctx, r.db).Model(&models.Attachment{}).Where("id IN ?", ids).Update("deleted", true).Error; err != nil {
		return fmt.Errorf("gorm: soft delete attachments: %w", err)
	}
	return nil
}

func (r *GormAttachmentRepository) SoftDeleteByPost(ctx context.Context, postIDs ...uint) error {
	if len(postIDs) == 0 {
		return nil
	}
	err := conn(ctx, r.db).Model(&models.Attachment{}).
		Where("post_id IN ? AND deleted = ?", postIDs, false).
		Update("deleted", true).Error
	if err != nil {
		return fmt.Errorf("gorm: soft delete attachments of posts: %w", err)
	}
	return nil
}
