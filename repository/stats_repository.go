package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/cppla/bbsforum/models"
)

// Totals holds forum-wide counts of live (non-deleted) rows.
type Totals struct {
	Members     int64 `json:"member_count"`
	Posts       int64 `json:"post_count"`
	Comments    int64 `json:"comment_count"`
	Attachments int64 `json:"attachment_count"`
}

// StatsRepository computes forum statistics.
type StatsRepository interface {
	Totals(ctx context.Context) (Totals, error)
}

// GormStatsRepository is the gorm implementation of StatsRepository.
type GormStatsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a GormStatsRepository.
func NewStatsRepository(db *gorm.DB) *GormStatsRepository {
	return &GormStatsRepository{db: db}
}

func (r *GormStatsRepository) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	counts := []struct {
		model any
		out   *int64
	}{
		{&models.Member{}, &t.Members},
		{&models.Post{}, &t.Posts},
		{&models.Comment{}, &t.Comments},
		{&models.Attachment{}, &t.Attachments},
	}
	for _, c := range counts {
		if err := conn(ctx, r.db).Model(c.model).Where("deleted = ?", false).Count(c.out).Error; err != nil {
			return Totals{}, err
		}
	}
	return t, nil
}
