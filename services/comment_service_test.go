package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cppla/bbsforum/models"
	"github.com/cppla/bbsforum/repository"
	"github.com/cppla/bbsforum/repository/mocks"
	"github.com/cppla/bbsforum/services"
)

type commentFixture struct {
	comments *mocks.CommentRepository
	posts    *mocks.PostRepository
	members  *mocks.MemberRepository
	svc      *services.CommentService
}

func newCommentFixture() commentFixture {
	f := commentFixture{
		comments: new(mocks.CommentRepository),
		posts:    new(mocks.PostRepository),
		members:  new(mocks.MemberRepository),
	}
	f.svc = services.NewCommentService(f.comments, f.posts, f.members, &mocks.Transactor{})
	return f
}

func TestCommentService_Create(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()
	writer := member(7, "writer", models.RoleUser)
	f.members.On("FindByID", ctx, uint(7), live).Return(writer, nil).Once()
	f.posts.On("FindByID", ctx, uint(3), live).Return(&models.Post{ID: 3}, nil).Once()
	f.comments.On("Create", ctx, mock.MatchedBy(func(c *models.Comment) bool {
		return c.PostID == 3 && c.MemberID == 7 && c.Content == "nice <b>post</b>"
	})).Return(nil).Once()

	c, err := f.svc.Create(ctx, 7, 3, "nice <b>post</b><script>alert(1)</script>")
	require.NoError(t, err)
	assert.Equal(t, "writer", c.WriterNickname)
	f.comments.AssertExpectations(t)
}

func TestCommentService_Create_OnDeletedPost(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()
	f.members.On("FindByID", ctx, uint(7), live).Return(member(7, "writer", models.RoleUser), nil).Once()
	f.posts.On("FindByID", ctx, uint(3), live).Return(nil, repository.ErrNotFound).Once()

	_, err := f.svc.Create(ctx, 7, 3, "hello")
	assert.ErrorIs(t, err, services.ErrEntityNotFound)
	f.comments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCommentService_NonWriterIsNotOwner(t *testing.T) {
	ctx := context.Background()
	comment := &models.Comment{ID: 4, PostID: 3, MemberID: 7, Content: "original"}

	t.Run("update", func(t *testing.T) {
		f := newCommentFixture()
		f.comments.On("FindByID", ctx, uint(4), live).Return(comment, nil).Once()
		f.members.On("FindByID", ctx, uint(8), live).Return(member(8, "other", models.RoleAdmin), nil).Once()

		_, err := f.svc.Update(ctx, 8, 4, "changed")
		assert.ErrorIs(t, err, services.ErrNotOwner)
		assert.Equal(t, "original", comment.Content)
		f.comments.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("delete", func(t *testing.T) {
		f := newCommentFixture()
		f.comments.On("FindByID", ctx, uint(4), live).Return(comment, nil).Once()
		f.members.On("FindByID", ctx, uint(8), live).Return(member(8, "other", models.RoleUser), nil).Once()

		assert.ErrorIs(t, f.svc.Delete(ctx, 8, 4), services.ErrNotOwner)
		f.comments.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
	})

	t.Run("bulk", func(t *testing.T) {
		f := newCommentFixture()
		f.members.On("FindByID", ctx, uint(8), live).Return(member(8, "other", models.RoleUser), nil).Once()
		f.comments.On("FindIDsByWriter", ctx, uint(8), live).Return([]uint{10}, nil).Once()

		assert.ErrorIs(t, f.svc.DeleteBulk(ctx, 8, []uint{10, 4}), services.ErrNotOwner)
		f.comments.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
	})
}

func TestCommentService_UpdateAndDeleteByWriter(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()
	comment := &models.Comment{ID: 4, PostID: 3, MemberID: 7, Content: "original"}
	f.comments.On("FindByID", ctx, uint(4), live).Return(comment, nil).Twice()
	f.members.On("FindByID", ctx, uint(7), live).Return(member(7, "writer", models.RoleUser), nil).Twice()
	f.comments.On("Save", ctx, comment).Return(nil).Once()
	f.comments.On("SoftDelete", ctx, []uint{4}).Return(nil).Once()

	got, err := f.svc.Update(ctx, 7, 4, "changed")
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Content)
	require.NoError(t, f.svc.Delete(ctx, 7, 4))
	f.comments.AssertExpectations(t)
}

func TestCommentService_DeleteBulk(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()
	f.members.On("FindByID", ctx, uint(7), live).Return(member(7, "writer", models.RoleUser), nil).Once()
	f.comments.On("FindIDsByWriter", ctx, uint(7), live).Return([]uint{4, 5, 6}, nil).Once()
	f.comments.On("SoftDelete", ctx, []uint{6, 4}).Return(nil).Once()

	require.NoError(t, f.svc.DeleteBulk(ctx, 7, []uint{6, 4, 6}))
	f.comments.AssertExpectations(t)
	f.members.AssertExpectations(t)
}

func TestCommentService_ListByWriter(t *testing.T) {
	ctx := context.Background()
	writerID := uint(7)
	page := repository.PageRequest{Page: 1, Size: 10}

	t.Run("live writer", func(t *testing.T) {
		f := newCommentFixture()
		f.members.On("FindByID", ctx, writerID, live).Return(member(7, "writer", models.RoleUser), nil).Once()
		f.comments.On("FindAll", ctx, repository.CommentQuery{WriterID: &writerID, Page: page, Deleted: live}).
			Return(repository.Page[models.Comment]{
				Items: []models.Comment{{ID: 1, PostID: 3, MemberID: 7, Content: "hi", Writer: *member(7, "writer", models.RoleUser)}},
				Page:  1, Size: 10, Total: 1, TotalPages: 1,
			}, nil).Once()

		got, err := f.svc.ListByWriter(ctx, writerID, repository.Search{}, page)
		require.NoError(t, err)
		require.Len(t, got.Items, 1)
		assert.Equal(t, services.CommentView{ID: 1, PostID: 3, WriterID: 7, WriterNickname: "writer", Content: "hi"}, got.Items[0])
		f.comments.AssertExpectations(t)
	})

	t.Run("withdrawn writer", func(t *testing.T) {
		f := newCommentFixture()
		f.members.On("FindByID", ctx, writerID, live).Return(nil, repository.ErrNotFound).Once()

		_, err := f.svc.ListByWriter(ctx, writerID, repository.Search{}, page)
		assert.ErrorIs(t, err, services.ErrEntityNotFound)
		f.comments.AssertNotCalled(t, "FindAll", mock.Anything, mock.Anything)
	})
}

func TestCommentService_ListByPost(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()
	postID := uint(3)
	search := repository.Search{Condition: repository.SearchWriter, Keyword: "bob"}
	page := repository.PageRequest{Page: 2, Size: 5}
	f.posts.On("FindByID", ctx, postID, live).Return(&models.Post{ID: 3}, nil).Once()
	f.comments.On("FindAll", ctx, repository.CommentQuery{PostID: &postID, Search: search, Page: page, Deleted: live}).
		Return(repository.Page[models.Comment]{Items: []models.Comment{{ID: 1}}, Page: 2, Size: 5, Total: 6, TotalPages: 2}, nil).Once()

	got, err := f.svc.ListByPost(ctx, postID, search, page)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got.Total)
	f.comments.AssertExpectations(t)
}
