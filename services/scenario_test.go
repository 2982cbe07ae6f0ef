package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/bbsforum/models"
	"github.com/cppla/bbsforum/repository"
	"github.com/cppla/bbsforum/services"
	"github.com/cppla/bbsforum/utils"
)

// forum wires the services over a real in-memory SQLite database.
type forum struct {
	db       *gorm.DB
	members  *repository.GormMemberRepository
	posts    *services.PostService
	comments *services.CommentService
}

func newForum(t *testing.T) forum {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Member{}, &models.Post{}, &models.Comment{}, &models.Attachment{}))

	members := repository.NewMemberRepository(db)
	posts := repository.NewPostRepository(db)
	comments := repository.NewCommentRepository(db)
	attachments := repository.NewAttachmentRepository(db)
	tx := repository.NewTransactor(db)
	cache := utils.NewMemoryCache(time.Minute)
	return forum{
		db:       db,
		members:  members,
		posts:    services.NewPostService(posts, comments, attachments, members, tx, cache, time.Hour),
		comments: services.NewCommentService(comments, posts, members, tx),
	}
}

func (f forum) join(t *testing.T, nickname string, role models.Role) *models.Member {
	t.Helper()
	m := &models.Member{Username: nickname + "@example.com", Password: "x", Nickname: nickname, Role: role}
	require.NoError(t, f.members.Create(context.Background(), m))
	return m
}

func TestScenario_CreateReadViewCommentDelete(t *testing.T) {
	f := newForum(t)
	ctx := context.Background()
	w := f.join(t, "writer", models.RoleUser)

	created, err := f.posts.Create(ctx, w.ID, services.PostInput{Title: "T", Content: "C"})
	require.NoError(t, err)

	got, err := f.posts.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "writer", got.WriterNickname)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "C", got.Content)
	assert.Zero(t, got.ViewCount)
	assert.Zero(t, got.CommentCount)

	for i := 0; i < 2; i++ {
		_, err := f.posts.AddViewCountWithCaching(ctx, created.ID, "sess", "127.0.0.1")
		require.NoError(t, err)
	}
	_, err = f.comments.Create(ctx, w.ID, created.ID, "first!")
	require.NoError(t, err)

	got, err = f.posts.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ViewCount)
	assert.Equal(t, int64(1), got.CommentCount)

	require.NoError(t, f.posts.Delete(ctx, w.ID, created.ID))

	_, err = f.posts.Get(ctx, created.ID)
	assert.ErrorIs(t, err, services.ErrEntityNotFound)
	var live int64
	require.NoError(t, f.db.Model(&models.Comment{}).Where("deleted = ?", false).Count(&live).Error)
	assert.Zero(t, live)
}

func TestScenario_NoticeUpdateDeniedLeavesPostUnchanged(t *testing.T) {
	f := newForum(t)
	ctx := context.Background()
	w := f.join(t, "writer", models.RoleUser)

	created, err := f.posts.Create(ctx, w.ID, services.PostInput{Title: "T", Content: "C"})
	require.NoError(t, err)

	_, err = f.posts.Update(ctx, w.ID, created.ID, services.PostInput{Title: "T2", Content: "C2", Notice: true})
	assert.ErrorIs(t, err, services.ErrAccessDenied)

	got, err := f.posts.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "C", got.Content)
	assert.False(t, got.Notice)
}

func TestScenario_PromotionTakesEffectImmediately(t *testing.T) {
	f := newForum(t)
	ctx := context.Background()
	w := f.join(t, "writer", models.RoleUser)
	created, err := f.posts.Create(ctx, w.ID, services.PostInput{Title: "T", Content: "C"})
	require.NoError(t, err)

	w.Role = models.RoleAdmin
	require.NoError(t, f.members.Save(ctx, w))

	got, err := f.posts.Update(ctx, w.ID, created.ID, services.PostInput{Title: "T", Content: "C", Notice: true})
	require.NoError(t, err)
	assert.True(t, got.Notice)
}

func TestScenario_BulkDeleteFlipsOnlyOwnedRows(t *testing.T) {
	f := newForum(t)
	ctx := context.Background()
	alice := f.join(t, "alice", models.RoleUser)
	bob := f.join(t, "bob", models.RoleUser)

	var alicePosts []uint
	for _, title := range []string{"a1", "a2", "a3"} {
		p, err := f.posts.Create(ctx, alice.ID, services.PostInput{Title: title, Content: "x"})
		require.NoError(t, err)
		alicePosts = append(alicePosts, p.ID)
	}
	bobPost, err := f.posts.Create(ctx, bob.ID, services.PostInput{Title: "b1", Content: "x"})
	require.NoError(t, err)

	var aliceComments []uint
	for _, content := range []string{"c1", "c2", "c3"} {
		c, err := f.comments.Create(ctx, alice.ID, bobPost.ID, content)
		require.NoError(t, err)
		aliceComments = append(aliceComments, c.ID)
	}
	bobComment, err := f.comments.Create(ctx, bob.ID, bobPost.ID, "d1")
	require.NoError(t, err)

	require.NoError(t, f.comments.DeleteBulk(ctx, alice.ID, []uint{aliceComments[0], aliceComments[2]}))
	var deleted []uint
	require.NoError(t, f.db.Model(&models.Comment{}).Where("deleted = ?", true).Order("id").Pluck("id", &deleted).Error)
	assert.Equal(t, []uint{aliceComments[0], aliceComments[2]}, deleted)

	err = f.comments.DeleteBulk(ctx, alice.ID, []uint{aliceComments[1], bobComment.ID})
	assert.ErrorIs(t, err, services.ErrNotOwner)

	page := repository.PageRequest{Page: 1, Size: 10}
	mine, err := f.comments.ListByWriter(ctx, alice.ID, repository.Search{}, page)
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, "c2", mine.Items[0].Content)
	assert.Equal(t, "alice", mine.Items[0].WriterNickname)
	theirs, err := f.comments.ListByWriter(ctx, bob.ID, repository.Search{}, page)
	require.NoError(t, err)
	require.Len(t, theirs.Items, 1)
	assert.Equal(t, bobComment.ID, theirs.Items[0].ID)

	require.NoError(t, f.posts.DeleteBulk(ctx, alice.ID, []uint{alicePosts[0], alicePosts[2]}))
	posts, err := f.posts.ListByWriter(ctx, alice.ID, repository.Search{}, page)
	require.NoError(t, err)
	require.Len(t, posts.Items, 1)
	assert.Equal(t, alicePosts[1], posts.Items[0].ID)
	posts, err = f.posts.ListByWriter(ctx, bob.ID, repository.Search{}, page)
	require.NoError(t, err)
	require.Len(t, posts.Items, 1)
	assert.Equal(t, bobPost.ID, posts.Items[0].ID)
}
