package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/bbsforum/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Member{}, &models.Post{}, &models.Comment{}, &models.Attachment{}))
	return db
}

type fixture struct {
	db       *gorm.DB
	members  *GormMemberRepository
	posts    *GormPostRepository
	comments *GormCommentRepository
	files    *GormAttachmentRepository
}

func newFixture(t *testing.T) *fixture {
	db := newTestDB(t)
	return &fixture{
		db:       db,
		members:  NewMemberRepository(db),
		posts:    NewPostRepository(db),
		comments: NewCommentRepository(db),
		files:    NewAttachmentRepository(db),
	}
}

func (f *fixture) member(t *testing.T, username, nickname string) *models.Member {
	t.Helper()
	m := &models.Member{Username: username, Password: "hash", Nickname: nickname, Role: models.RoleUser}
	require.NoError(t, f.members.Create(context.Background(), m))
	return m
}

// post creates a post whose created_at is offset from a fixed base so ordering is deterministic.
func (f *fixture) post(t *testing.T, writer *models.Member, title, content string, minute int) *models.Post {
	t.Helper()
	at := time.Date(2024, 1, 1, 0, minute, 0, 0, time.UTC)
	p := &models.Post{MemberID: writer.ID, Title: title, Content: content, CreatedAt: at, UpdatedAt: at}
	require.NoError(t, f.posts.Create(context.Background(), p))
	return p
}
