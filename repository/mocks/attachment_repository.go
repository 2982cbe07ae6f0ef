package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cppla/bbsforum/models"
	"github.com/cppla/bbsforum/repository"
)

// AttachmentRepository is a testify mock of repository.AttachmentRepository.
type AttachmentRepository struct {
	mock.Mock
}

var _ repository.AttachmentRepository = (*AttachmentRepository)(nil)

func (m *AttachmentRepository) Create(ctx context.Context, a *models.Attachment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *AttachmentRepository) FindByID(ctx context.Context, id uint, deleted *bool) (*models.Attachment, error) {
	args := m.Called(ctx, id, deleted)
	var a *models.Attachment
	if v := args.Get(0); v != nil {
		a = v.(*models.Attachment)
	}
	return a, args.Error(1)
}

func (m *AttachmentRepository) FindByPost(ctx context.Context, postID uint, deleted *bool) ([]models.Attachment, error) {
	args := m.Called(ctx, postID, deleted)
	items, _ := args.Get(0).([]models.Attachment)
	return items, args.Error(1)
}

func (m *AttachmentRepository) SoftDelete(ctx context.Context, ids ...uint) error {
	return m.Called(ctx, ids).Error(0)
}

func (m *AttachmentRepository) SoftDeleteByPost(ctx context.Context, postIDs ...uint) error {
	return m.Called(ctx, postIDs).Error(0)
}
