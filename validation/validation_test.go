package validation

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/madickblog/models"
)

var categories = []string{"General", "Technology", "Lifestyle", "Travel"}

func requireKind(t *testing.T, err error, kind models.ErrorKind, field string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok, "expected *models.AppError, got %T", err)
	assert.Equal(t, kind, appErr.Kind)
	assert.Equal(t, field, appErr.Field)
}

func TestValidatePostTrims(t *testing.T) {
	got, err := ValidatePost(PostInput{Title: "  Hello  ", Content: "\n# Body\n\n> quote & more\n"}, categories)
	require.NoError(t, err)

	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, "# Body\n\n> quote & more", got.Content)
	assert.Equal(t, "General", got.Category)
}

func TestValidatePostMissingFields(t *testing.T) {
	tests := []struct {
		name  string
		in    PostInput
		field string
	}{
		{"whitespace title", PostInput{Title: "   ", Content: "body"}, "title"},
		{"empty content", PostInput{Title: "t", Content: ""}, "content"},
		{"title checked first", PostInput{Title: "", Content: " "}, "title"},
		{"tags only content", PostInput{Title: "t", Content: "<script>alert(1)</script>"}, "content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidatePost(tt.in, categories)
			requireKind(t, err, models.KindMissingField, tt.field)
		})
	}
}

func TestValidatePostTooLong(t *testing.T) {
	_, err := ValidatePost(PostInput{Title: strings.Repeat("é", MaxTitleLength+1), Content: "x"}, categories)
	requireKind(t, err, models.KindInvalidField, "title")

	got, err := ValidatePost(PostInput{Title: strings.Repeat("é", MaxTitleLength), Content: "x"}, categories)
	require.NoError(t, err)
	assert.Len(t, []rune(got.Title), MaxTitleLength)
}

func TestLengthLimitsFollowConstants(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		validate func(s string) error
	}{
		{"title", MaxTitleLength, func(s string) error {
			_, err := ValidatePost(PostInput{Title: s, Content: "x"}, categories)
			return err
		}},
		{"content", MaxContentLength, func(s string) error {
			_, err := ValidatePost(PostInput{Title: "t", Content: s}, categories)
			return err
		}},
		{"content", MaxCommentLength, func(s string) error {
			_, err := ValidateComment(CommentInput{Content: s})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+strconv.Itoa(tt.limit), func(t *testing.T) {
			require.NoError(t, tt.validate(strings.Repeat("a", tt.limit)))

			err := tt.validate(strings.Repeat("a", tt.limit+1))
			requireKind(t, err, models.KindInvalidField, tt.name)
			assert.Contains(t, err.Error(), "at most "+strconv.Itoa(tt.limit))
		})
	}
}

func TestValidatePostCategory(t *testing.T) {
	got, err := ValidatePost(PostInput{Title: "t", Content: "c", Category: "travel"}, categories)
	require.NoError(t, err)
	assert.Equal(t, "Travel", got.Category)

	_, err = ValidatePost(PostInput{Title: "t", Content: "c", Category: "Cooking"}, categories)
	requireKind(t, err, models.KindInvalidField, "category")
}

func TestValidatePostSanitizes(t *testing.T) {
	got, err := ValidatePost(PostInput{
		Title:   "<b>Bold</b> title",
		Content: `hi <a href="https://example.com" onclick="x()">link</a>`,
	}, categories)
	require.NoError(t, err)

	assert.Equal(t, "Bold title", got.Title)
	assert.NotContains(t, got.Content, "onclick")
	assert.Contains(t, got.Content, "https://example.com")
}

func TestValidateComment(t *testing.T) {
	got, err := ValidateComment(CommentInput{Content: "  nice post  "})
	require.NoError(t, err)
	assert.Equal(t, "nice post", got.Content)

	_, err = ValidateComment(CommentInput{Content: " \t\n"})
	requireKind(t, err, models.KindMissingField, "content")

	_, err = ValidateComment(CommentInput{Content: strings.Repeat("a", MaxCommentLength+1)})
	requireKind(t, err, models.KindInvalidField, "content")
}

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	for _, raw := range []string{"", "0", "-1", "abc", "1.5", "0x10", "99999999999999999999999"} {
		_, err := ParseID(raw)
		requireKind(t, err, models.KindInvalidIdentifier, "id")
	}
}
