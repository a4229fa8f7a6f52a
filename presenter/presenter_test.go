package presenter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/madickblog/models"
)

func strPtr(s string) *string { return &s }

func fixturePost() models.Post {
	base := time.Date(2024, 3, 9, 10, 30, 15, 123456789, time.FixedZone("CET", 3600))
	alice := models.User{ID: 1, Email: "alice@example.com", Name: strPtr("Alice"), PasswordHash: "secret-hash"}
	bob := models.User{ID: 2, Email: "bob@example.com"}
	return models.Post{
		ID:        7,
		UserID:    1,
		Title:     "Hello",
		Content:   "# Body",
		Category:  "Travel",
		Likes:     3,
		CreatedAt: base,
		UpdatedAt: base.Add(time.Hour),
		User:      alice,
		Comments: []models.Comment{
			{ID: 1, PostID: 7, Content: "oldest", CreatedAt: base.Add(time.Minute), User: bob},
			{ID: 3, PostID: 7, Content: "newest", CreatedAt: base.Add(3 * time.Minute), User: alice},
			{ID: 2, PostID: 7, Content: "tie low", CreatedAt: base.Add(2 * time.Minute), User: bob},
			{ID: 4, PostID: 7, Content: "tie high", CreatedAt: base.Add(2 * time.Minute), User: bob},
		},
	}
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2024, 3, 9, 10, 30, 15, 123456789, time.FixedZone("CET", 3600))
	assert.Equal(t, "2024-03-09T09:30:15.123Z", FormatTime(ts))
}

func TestSummaryDerivesCommentCount(t *testing.T) {
	p := fixturePost()
	s := Summary(p)

	assert.Equal(t, 4, s.CommentCount)
	assert.Equal(t, int64(3), s.Likes)
	assert.Equal(t, "2024-03-09T09:30:15.123Z", s.CreatedAt)
	assert.Equal(t, "Alice", *s.Author.Name)
	assert.Nil(t, s.Author.Image)
}

func TestDetailOrdersComments(t *testing.T) {
	d := Detail(fixturePost())

	require.Len(t, d.Comments, 4)
	ids := []uint{d.Comments[0].ID, d.Comments[1].ID, d.Comments[2].ID, d.Comments[3].ID}
	assert.Equal(t, []uint{3, 4, 2, 1}, ids)
	assert.Equal(t, d.CommentCount, len(d.Comments))
	assert.Nil(t, d.Comments[3].Author.Name)
}

func TestAuthorProjectionHidesUserRecord(t *testing.T) {
	raw, err := json.Marshal(Detail(fixturePost()))
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	author := generic["author"].(map[string]any)
	assert.Len(t, author, 2)
	assert.Contains(t, author, "name")
	assert.Contains(t, author, "image")
	assert.NotContains(t, string(raw), "alice@example.com")
	assert.NotContains(t, string(raw), "secret-hash")
	assert.Contains(t, generic, "commentCount")
	assert.Contains(t, generic, "createdAt")
}

func TestSummariesNeverNil(t *testing.T) {
	views := Summaries(nil)
	require.NotNil(t, views)

	raw, err := json.Marshal(views)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestCommentsDoesNotMutateInput(t *testing.T) {
	p := fixturePost()
	_ = Comments(p.Comments)
	assert.Equal(t, uint(1), p.Comments[0].ID)
}
