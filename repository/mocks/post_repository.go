package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cppla/bbsforum/models"
	"github.com/cppla/bbsforum/repository"
)

// PostRepository is a testify mock of repository.PostRepository.
type PostRepository struct {
	mock.Mock
}

var _ repository.PostRepository = (*PostRepository)(nil)

func (m *PostRepository) Create(ctx context.Context, p *models.Post) error {
	return m.Called(ctx, p).Error(0)
}

func (m *PostRepository) Save(ctx context.Context, p *models.Post) error {
	return m.Called(ctx, p).Error(0)
}

func (m *PostRepository) FindByID(ctx context.Context, id uint, deleted *bool) (*models.Post, error) {
	args := m.Called(ctx, id, deleted)
	var p *models.Post
	if v := args.Get(0); v != nil {
		p = v.(*models.Post)
	}
	return p, args.Error(1)
}

func (m *PostRepository) FindAll(ctx context.Context, q repository.PostQuery) (repository.Page[models.Post], error) {
	args := m.Called(ctx, q)
	page, _ := args.Get(0).(repository.Page[models.Post])
	return page, args.Error(1)
}

func (m *PostRepository) FindIDsByWriter(ctx context.Context, memberID uint, deleted *bool) ([]uint, error) {
	args := m.Called(ctx, memberID, deleted)
	ids, _ := args.Get(0).([]uint)
	return ids, args.Error(1)
}

func (m *PostRepository) IncrementViewCount(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *PostRepository) SoftDelete(ctx context.Context, ids ...uint) error {
	return m.Called(ctx, ids).Error(0)
}
