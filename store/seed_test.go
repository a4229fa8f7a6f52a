package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOptions() SeedOptions {
	return SeedOptions{
		DefaultUserEmail: "anonymous@example.com",
		DefaultUserName:  "Anonymous User",
		Categories:       []string{"General", "Travel"},
	}
}

func TestSeedWelcomePost(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		res, err := Seed(ctx, s, seedOptions())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Posts)
		assert.Equal(t, "Anonymous User", res.DefaultUser.DisplayName())

		posts, err := s.ListPosts(ctx, PostFilter{})
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, WelcomeTitle, posts[0].Title)
		assert.Equal(t, WelcomeContent, posts[0].Content)
		assert.Equal(t, "General", posts[0].Category)
		assert.Equal(t, res.DefaultUser.ID, posts[0].UserID)

		// idempotent for the fixtures
		res, err = Seed(ctx, s, seedOptions())
		require.NoError(t, err)
		assert.Zero(t, res.Posts)
		st, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), st.Posts)
		assert.Equal(t, int64(1), st.Users)
	})
}

func TestSeedFakeData(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()
	opts := seedOptions()
	opts.FakePosts = 10
	opts.MaxComments = 3
	opts.RandSeed = 42

	res, err := Seed(ctx, s, opts)
	require.NoError(t, err)
	assert.Equal(t, 11, res.Posts)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(11), st.Posts)
	assert.Equal(t, int64(res.Comments), st.Comments)
	assert.Equal(t, int64(4), st.Users)

	counts, err := s.CountByCategory(ctx)
	require.NoError(t, err)
	for category := range counts {
		assert.Contains(t, opts.Categories, category)
	}

	// same seed again reuses the generated authors
	_, err = Seed(ctx, s, opts)
	require.NoError(t, err)
	st, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), st.Users)
}
