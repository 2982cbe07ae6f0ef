package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cppla/bbsforum/models"
	"github.com/cppla/bbsforum/repository"
)

// MemberRepository is a testify mock of repository.MemberRepository.
type MemberRepository struct {
	mock.Mock
}

var _ repository.MemberRepository = (*MemberRepository)(nil)

func (m *MemberRepository) Create(ctx context.Context, member *models.Member) error {
	return m.Called(ctx, member).Error(0)
}

func (m *MemberRepository) Save(ctx context.Context, member *models.Member) error {
	return m.Called(ctx, member).Error(0)
}

func (m *MemberRepository) FindByID(ctx context.Context, id uint, deleted *bool) (*models.Member, error) {
	args := m.Called(ctx, id, deleted)
	return memberArg(args, 0), args.Error(1)
}

func (m *MemberRepository) FindByUsername(ctx context.Context, username string, deleted *bool) (*models.Member, error) {
	args := m.Called(ctx, username, deleted)
	return memberArg(args, 0), args.Error(1)
}

func (m *MemberRepository) FindByOAuth(ctx context.Context, provider, providerID string) (*models.Member, error) {
	args := m.Called(ctx, provider, providerID)
	return memberArg(args, 0), args.Error(1)
}

func (m *MemberRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MemberRepository) ExistsByNickname(ctx context.Context, nickname string) (bool, error) {
	args := m.Called(ctx, nickname)
	return args.Bool(0), args.Error(1)
}

func (m *MemberRepository) FindAll(ctx context.Context, req repository.PageRequest, deleted *bool) (repository.Page[models.Member], error) {
	args := m.Called(ctx, req, deleted)
	page, _ := args.Get(0).(repository.Page[models.Member])
	return page, args.Error(1)
}

func (m *MemberRepository) SoftDelete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func memberArg(args mock.Arguments, i int) *models.Member {
	if v := args.Get(i); v != nil {
		return v.(*models.Member)
	}
	return nil
}
