package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/bbsforum/models"
)

func TestCommentRepository_FindAllByPostAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.member(t, "a@example.com", "alice")
	bob := f.member(t, "b@example.com", "bob")
	p := f.post(t, alice, "t", "c", 0)
	other := f.post(t, alice, "t2", "c", 1)

	for _, c := range []*models.Comment{
		{PostID: p.ID, MemberID: alice.ID, Content: "first reply"},
		{PostID: p.ID, MemberID: bob.ID, Content: "second reply"},
		{PostID: other.ID, MemberID: bob.ID, Content: "elsewhere"},
	} {
		require.NoError(t, f.comments.Create(ctx, c))
	}

	page, err := f.comments.FindAll(ctx, CommentQuery{PostID: &p.ID, Deleted: Bool(false)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, "bob", page.Items[0].Writer.Nickname)

	byWriter, err := f.comments.FindAll(ctx, CommentQuery{Search: Search{SearchWriter, "bob"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), byWriter.Total)

	byContent, err := f.comments.FindAll(ctx, CommentQuery{Search: Search{SearchContent, "first elsewhere"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), byContent.Total)
}

func TestCommentRepository_SoftDeleteByPost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.member(t, "w@example.com", "w")
	p := f.post(t, w, "t", "c", 0)
	c := &models.Comment{PostID: p.ID, MemberID: w.ID, Content: "x"}
	require.NoError(t, f.comments.Create(ctx, c))

	require.NoError(t, f.comments.SoftDeleteByPost(ctx, p.ID))
	got, err := f.comments.FindByID(ctx, c.ID, nil)
	require.NoError(t, err)
	assert.True(t, got.Deleted)

	ids, err := f.comments.FindIDsByWriter(ctx, w.ID, Bool(false))
	require.NoError(t, err)
	assert.Empty(t, ids)
}
