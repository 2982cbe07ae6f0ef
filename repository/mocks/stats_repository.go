package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cppla/bbsforum/repository"
)

// StatsRepository is a testify mock of repository.StatsRepository.
type StatsRepository struct {
	mock.Mock
}

var _ repository.StatsRepository = (*StatsRepository)(nil)

func (m *StatsRepository) Totals(ctx context.Context) (repository.Totals, error) {
	args := m.Called(ctx)
	t, _ := args.Get(0).(repository.Totals)
	return t, args.Error(1)
}
