package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/bbsforum/models"
)

func TestMemberRepository_UsernameIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.member(t, "someone@example.com", "someone")

	got, err := f.members.FindByUsername(ctx, "SomeOne@Example.com", Bool(false))
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	exists, err := f.members.ExistsByUsername(ctx, "SOMEONE@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = f.members.ExistsByNickname(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemberRepository_SoftDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.member(t, "gone@example.com", "gone")
	require.NoError(t, f.members.SoftDelete(ctx, m.ID))

	_, err := f.members.FindByID(ctx, m.ID, Bool(false))
	assert.True(t, errors.Is(err, ErrNotFound))

	got, err := f.members.FindByID(ctx, m.ID, nil)
	require.NoError(t, err)
	assert.True(t, got.Deleted)

	assert.True(t, errors.Is(f.members.SoftDelete(ctx, 999), ErrNotFound))
}

func TestMemberRepository_AuthInfoRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := &models.Member{
		Username: "oauth@example.com",
		Password: "hash",
		Nickname: "oauth",
		Role:     models.RoleUser,
		AuthInfo: models.AuthInfo{Authenticated: true, OAuthProvider: "github", OAuthProviderID: "42"},
	}
	require.NoError(t, f.members.Create(ctx, m))

	got, err := f.members.FindByOAuth(ctx, "github", "42")
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.True(t, got.AuthInfo.Authenticated)

	_, err = f.members.FindByOAuth(ctx, "google", "42")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemberRepository_FindAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.member(t, "a@example.com", "a")
	b := f.member(t, "b@example.com", "b")
	require.NoError(t, f.members.SoftDelete(ctx, b.ID))

	page, err := f.members.FindAll(ctx, PageRequest{}, Bool(false))
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, "a", page.Items[0].Nickname)
}
