package mocks

import (
	"context"

	"github.com/cppla/bbsforum/repository"
)

// Transactor runs the unit of work inline, without a database.
type Transactor struct {
	Calls int
}

var _ repository.Transactor = (*Transactor)(nil)

func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.Calls++
	return fn(ctx)
}
