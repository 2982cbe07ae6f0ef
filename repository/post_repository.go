package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/bbsforum/models"
)

// PostQuery filters a post listing. Nil pointers apply no predicate.
type PostQuery struct {
	Search   Search
	Page     PageRequest
	WriterID *uint
	Notice   *bool
	Deleted  *bool
}

// PostRepository stores and retrieves posts.
type PostRepository interface {
	Create(ctx context.Context, p *models.Post) error
	Save(ctx context.Context, p *models.Post) error
	FindByID(ctx context.Context, id uint, deleted *bool) (*models.Post, error)
	FindAll(ctx context.Context, q PostQuery) (Page[models.Post], error)
	FindIDsByWriter(ctx context.Context, memberID uint, deleted *bool) ([]uint, error)
	IncrementViewCount(ctx context.Context, id uint) error
	SoftDelete(ctx context.Context, ids ...uint) error
}

// postColumns selects the post row plus counts of its live children.
const postColumns = "posts.*, " +
	"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id AND comments.deleted = ?) AS comment_count, " +
	"(SELECT COUNT(*) FROM attachments WHERE attachments.post_id = posts.id AND attachments.deleted = ?) AS attachment_count"

const postWriterJoin = "LEFT JOIN members " + writerAlias + " ON " + writerAlias + ".id = posts.member_id"

// GormPostRepository is the gorm implementation of PostRepository.
type GormPostRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a GormPostRepository.
func NewPostRepository(db *gorm.DB) *GormPostRepository {
	return &GormPostRepository{db: db}
}

func (r *GormPostRepository) Create(ctx context.Context, p *models.Post) error {
	if err := conn(ctx, r.db).Omit(clause.Associations).Create(p).Error; err != nil {
		return fmt.Errorf("gorm: create post: %w", err)
	}
	return nil
}

func (r *GormPostRepository) Save(ctx context.Context, p *models.Post) error {
	if err := conn(ctx, r.db).Omit(clause.Associations).Save(p).Error; err != nil {
		return fmt.Errorf("gorm: save post %d: %w", p.ID, err)
	}
	return nil
}

// FindByID loads the post with its writer and live comment/attachment counts.
func (r *GormPostRepository) FindByID(ctx context.Context, id uint, deleted *bool) (*models.Post, error) {
	q := conn(ctx, r.db).Model(&models.Post{}).
		Select(postColumns, false, false).
		Preload("Writer").
		Where("posts.id = ?", id)
	var p models.Post
	if err := withDeleted(q, "posts", deleted).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find post %d: %w", id, err)
	}
	return &p, nil
}

// FindAll runs the filtered count query and the ordered page query.
func (r *GormPostRepository) FindAll(ctx context.Context, q PostQuery) (Page[models.Post], error) {
	req := q.Page.normalized()
	filtered := func() *gorm.DB {
		tx := conn(ctx, r.db).Model(&models.Post{})
		if q.WriterID != nil {
			tx = tx.Where("posts.member_id = ?", *q.WriterID)
		}
		if q.Notice != nil {
			tx = tx.Where("posts.notice = ?", *q.Notice)
		}
		tx = withDeleted(tx, "posts", q.Deleted)
		fields := postSearchFields.resolve(q.Search.Condition)
		if expr, args, ok := keywordClause(fields, q.Search.Keyword); ok {
			if usesWriter(fields) {
				tx = tx.Joins(postWriterJoin)
			}
			tx = tx.Where(expr, args...)
		}
		return tx
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return Page[models.Post]{}, fmt.Errorf("gorm: count posts: %w", err)
	}
	var posts []models.Post
	if total > 0 {
		err := filtered().
			Select(postColumns, false, false).
			Preload("Writer").
			Order(orderBy(req.Sort, postSortColumns, "posts.id")).
			Offset(req.offset()).
			Limit(req.Size).
			Find(&posts).Error
		if err != nil {
			return Page[models.Post]{}, fmt.Errorf("gorm: list posts: %w", err)
		}
	}
	return NewPage(posts, req, total), nil
}

func (r *GormPostRepository) FindIDsByWriter(ctx context.Context, memberID uint, deleted *bool) ([]uint, error) {
	var ids []uint
	q := conn(ctx, r.db).Model(&models.Post{}).Where("posts.member_id = ?", memberID)
	if err := withDeleted(q, "posts", deleted).Pluck("posts.id", &ids).Error; err != nil {
		return nil, fmt.Errorf("gorm: post ids of member %d: %w", memberID, err)
	}
	return ids, nil
}

// IncrementViewCount bumps the counter without touching updated_at.
func (r *GormPostRepository) IncrementViewCount(ctx context.Context, id uint) error {
	res := conn(ctx, r.db).Model(&models.Post{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("gorm: increment view count of post %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormPostRepository) SoftDelete(ctx context.Context, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := conn(ctx, r.db).Model(&models.Post{}).Where("id IN ?", ids).Update("deleted", true).Error; err != nil {
		return fmt.Errorf("gorm: soft delete posts: %w", err)
	}
	return nil
}
