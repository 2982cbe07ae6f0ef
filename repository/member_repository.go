package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/bbsforum/models"
)

// MemberRepository stores and retrieves members. A nil deleted filter applies no
// soft-delete predicate.
type MemberRepository interface {
	Create(ctx context.Context, m *models.Member) error
	Save(ctx context.Context, m *models.Member) error
	FindByID(ctx context.Context, id uint, deleted *bool) (*models.Member, error)
	FindByUsername(ctx context.Context, username string, deleted *bool) (*models.Member, error)
	FindByOAuth(ctx context.Context, provider, providerID string) (*models.Member, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByNickname(ctx context.Context, nickname string) (bool, error)
	FindAll(ctx context.Context, req PageRequest, deleted *bool) (Page[models.Member], error)
	SoftDelete(ctx context.Context, id uint) error
}

// GormMemberRepository is the gorm implementation of MemberRepository.
type GormMemberRepository struct {
	db *gorm.DB
}

// NewMemberRepository creates a GormMemberRepository.
func NewMemberRepository(db *gorm.DB) *GormMemberRepository {
	return &GormMemberRepository{db: db}
}

func (r *GormMemberRepository) Create(ctx context.Context, m *models.Member) error {
	if err := conn(ctx, r.db).Omit(clause.Associations).Create(m).Error; err != nil {
		return fmt.Errorf("gorm: create member %q: %w", m.Username, err)
	}
	return nil
}

func (r *GormMemberRepository) Save(ctx context.Context, m *models.Member) error {
	if err := conn(ctx, r.db).Omit(clause.Associations).Save(m).Error; err != nil {
		return fmt.Errorf("gorm: save member %d: %w", m.ID, err)
	}
	return nil
}

func (r *GormMemberRepository) FindByID(ctx context.Context, id uint, deleted *bool) (*models.Member, error) {
	return r.first(withDeleted(conn(ctx, r.db).Where("members.id = ?", id), "members", deleted))
}

// FindByUsername matches case-insensitively.
func (r *GormMemberRepository) FindByUsername(ctx context.Context, username string, deleted *bool) (*models.Member, error) {
	q := conn(ctx, r.db).Where("LOWER(members.username) = ?", strings.ToLower(strings.TrimSpace(username)))
	return r.first(withDeleted(q, "members", deleted))
}

func (r *GormMemberRepository) FindByOAuth(ctx context.Context, provider, providerID string) (*models.Member, error) {
	q := conn(ctx, r.db).Where("members.auth_oauth_provider = ? AND members.auth_oauth_provider_id = ?", provider, providerID)
	return r.first(q)
}

func (r *GormMemberRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.Member{}).
		Where("LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username))).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: count members by username: %w", err)
	}
	return count > 0, nil
}

func (r *GormMemberRepository) ExistsByNickname(ctx context.Context, nickname string) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.Member{}).Where("nickname = ?", nickname).Count(&count).Error; err != nil {
		return false, fmt.Errorf("gorm: count members by nickname: %w", err)
	}
	return count > 0, nil
}

func (r *GormMemberRepository) FindAll(ctx context.Context, req PageRequest, deleted *bool) (Page[models.Member], error) {
	req = req.normalized()
	filtered := func() *gorm.DB {
		return withDeleted(conn(ctx, r.db).Model(&models.Member{}), "members", deleted)
	}
	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return Page[models.Member]{}, fmt.Errorf("gorm: count members: %w", err)
	}
	var members []models.Member
	if total > 0 {
		err := filtered().Order(orderBy(req.Sort, memberSortColumns, "members.id")).
			Offset(req.offset()).Limit(req.Size).Find(&members).Error
		if err != nil {
			return Page[models.Member]{}, fmt.Errorf("gorm: list members: %w", err)
		}
	}
	return NewPage(members, req, total), nil
}

func (r *GormMemberRepository) SoftDelete(ctx context.Context, id uint) error {
	res := conn(ctx, r.db).Model(&models.Member{}).Where("id = ?", id).Update("deleted", true)
	if res.Error != nil {
		return fmt.Errorf("gorm: soft delete member %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormMemberRepository) first(q *gorm.DB) (*models.Member, error) {
	var m models.Member
	if err := q.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find member: %w", err)
	}
	return &m, nil
}

// withDeleted appends the soft-delete predicate only when a filter is given.
func withDeleted(q *gorm.DB, table string, deleted *bool) *gorm.DB {
	if deleted == nil {
		return q
	}
	return q.Where(table+".deleted = ?", *deleted)
}

// Bool returns a pointer to b, for delete filters.
func Bool(b bool) *bool {
	return &b
}
