package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cppla/bbsforum/models"
	"github.com/cppla/bbsforum/repository"
)

// CommentRepository is a testify mock of repository.CommentRepository.
type CommentRepository struct {
	mock.Mock
}

var _ repository.CommentRepository = (*CommentRepository)(nil)

func (m *CommentRepository) Create(ctx context.Context, c *models.Comment) error {
	return m.Called(ctx, c).Error(0)
}

func (m *CommentRepository) Save(ctx context.Context, c *models.Comment) error {
	return m.Called(ctx, c).Error(0)
}

func (m *CommentRepository) FindByID(ctx context.Context, id uint, deleted *bool) (*models.Comment, error) {
	args := m.Called(ctx, id, deleted)
	var c *models.Comment
	if v := args.Get(0); v != nil {
		c = v.(*models.Comment)
	}
	return c, args.Error(1)
}

func (m *CommentRepository) FindAll(ctx context.Context, q repository.CommentQuery) (repository.Page[models.Comment], error) {
	args := m.Called(ctx, q)
	page, _ := args.Get(0).(repository.Page[models.Comment])
	return page, args.Error(1)
}

func (m *CommentRepository) FindIDsByWriter(ctx context.Context, memberID uint, deleted *bool) ([]uint, error) {
	args := m.Called(ctx, memberID, deleted)
	ids, _ := args.Get(0).([]uint)
	return ids, args.Error(1)
}

func (m *CommentRepository) SoftDelete(ctx context.Context, ids ...uint) error {
	return m.Called(ctx, ids).Error(0)
}

func (m *CommentRepository) SoftDeleteByPost(ctx context.Context, postIDs ...uint) error {
	return m.Called(ctx, postIDs).Error(0)
}
