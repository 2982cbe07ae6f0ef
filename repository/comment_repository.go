package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/bbsforum/models"
)

// CommentQuery filters a comment listing. Nil pointers apply no predicate.
type CommentQuery struct {
	PostID   *uint
	WriterID *uint
	Search   Search
	Page     PageRequest
	Deleted  *bool
}

// CommentRepository stores and retrieves comments.
type CommentRepository interface {
	Create(ctx context.Context, c *models.Comment) error
	Save(ctx context.Context, c *models.Comment) error
	FindByID(ctx context.Context, id uint, deleted *bool) (*models.Comment, error)
	FindAll(ctx context.Context, q CommentQuery) (Page[models.Comment], error)
	FindIDsByWriter(ctx context.Context, memberID uint, deleted *bool) ([]uint, error)
	SoftDelete(ctx context.Context, ids ...uint) error
	SoftDeleteByPost(ctx context.Context, postIDs ...uint) error
}

const commentWriterJoin = "LEFT JOIN members " + writerAlias + " ON " + writerAlias + ".id = comments.member_id"

// GormCommentRepository is the gorm implementation of CommentRepository.
type GormCommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a GormCommentRepository.
func NewCommentRepository(db *gorm.DB) *GormCommentRepository {
	return &GormCommentRepository{db: db}
}

func (r *GormCommentRepository) Create(ctx context.Context, c *models.Comment) error {
	if err := conn(ctx, r.db).Omit(clause.Associations).Create(c).Error; err != nil {
		return fmt.Errorf("gorm: create comment: %w", err)
	}
	return nil
}

func (r *GormCommentRepository) Save(ctx context.Context, c *models.Comment) error {
	if err := conn(ctx, r.db).Omit(clause.Associations).Save(c).Error; err != nil {
		return fmt.Errorf("gorm: save comment %d: %w", c.ID, err)
	}
	return nil
}

func (r *GormCommentRepository) FindByID(ctx context.Context, id uint, deleted *bool) (*models.Comment, error) {
	q := conn(ctx, r.db).Preload("Writer").Where("comments.id = ?", id)
	var c models.Comment
	if err := withDeleted(q, "comments", deleted).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find comment %d: %w", id, err)
	}
	return &c, nil
}

func (r *GormCommentRepository) FindAll(ctx context.Context, q CommentQuery) (Page[models.Comment], error) {
	req := q.Page.normalized()
	filtered := func() *gorm.DB {
		tx := conn(ctx, r.db).Model(&models.Comment{})
		if q.PostID != nil {
			tx = tx.Where("comments.post_id = ?", *q.PostID)
		}
		if q.WriterID != nil {
			tx = tx.Where("comments.member_id = ?", *q.WriterID)
		}
		tx = withDeleted(tx, "comments", q.Deleted)
		fields := commentSearchFields.resolve(q.Search.Condition)
		if expr, args, ok := keywordClause(fields, q.Search.Keyword); ok {
			if usesWriter(fields) {
				tx = tx.Joins(commentWriterJoin)
			}
			tx = tx.Where(expr, args...)
		}
		return tx
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return Page[models.Comment]{}, fmt.Errorf("gorm: count comments: %w", err)
	}
	var comments []models.Comment
	if total > 0 {
		err := filtered().
			Select("comments.*").
			Preload("Writer").
			Order(orderBy(req.Sort, commentSortColumns, "comments.id")).
			Offset(req.offset()).
			Limit(req.Size).
			Find(&comments).Error
		if err != nil {
			return Page[models.Comment]{}, fmt.Errorf("gorm: list comments: %w", err)
		}
	}
	return NewPage(comments, req, total), nil
}

func (r *GormCommentRepository) FindIDsByWriter(ctx context.Context, memberID uint, deleted *bool) ([]uint, error) {
	var ids []uint
	q := conn(ctx, r.db).Model(&models.Comment{}).Where("comments.member_id = ?", memberID)
	if err := withDeleted(q, "comments", deleted).Pluck("comments.id", &ids).Error; err != nil {
		return nil, fmt.Errorf("gorm: comment ids of member %d: %w", memberID, err)
	}
	return ids, nil
}

func (r *GormCommentRepository) SoftDelete(ctx context.Context, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := conn(ctx, r.db).Model(&models.Comment{}).Where("id IN ?", ids).Update("deleted", true).Error; err != nil {
		return fmt.Errorf("gorm: soft delete comments: %w", err)
	}
	return nil
}

func (r *GormCommentRepository) SoftDeleteByPost(ctx context.Context, postIDs ...uint) error {
	if len(postIDs) == 0 {
		return nil
	}
	err := conn(ctx, r.db).Model(&models.Comment{}).
		Where("post_id IN ? AND deleted = ?", postIDs, false).
		Update("deleted", true).Error
	if err != nil {
		return fmt.Errorf("gorm: soft delete comments of posts: %w", err)
	}
	return nil
}
